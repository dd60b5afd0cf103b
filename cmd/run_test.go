package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airbnb-vacancy/config"
	"airbnb-vacancy/utils"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func setupRun(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	marketDir := filepath.Join(root, "data", "copenhagen")
	if err := os.MkdirAll(marketDir, 0o755); err != nil {
		t.Fatal(err)
	}

	writeFixture(t, marketDir, "listings.csv",
		"id,name,room_type,neighbourhood_cleansed,price,first_review,last_review\n"+
			"1,Cozy flat,Entire home/apt,Nørrebro,,2021-01-01,2021-01-31\n")
	writeFixture(t, marketDir, "calendar.csv",
		"listing_id,date,available\n"+
			"1,2021-02-01,f\n"+
			"1,2021-02-02,t\n")
	writeFixture(t, marketDir, "reviews.csv",
		"id,listing_id,date,comments\n"+
			"10,1,2021-01-05,We stayed 5 nights\n"+
			"11,1,2021-01-31,Lovely\n")

	cfg = &config.Config{
		Market:         "Copenhagen",
		DataDir:        filepath.Join(root, "data"),
		CacheDir:       filepath.Join(root, "cache"),
		CSVOutputPath:  filepath.Join(root, "out", "metrics.csv"),
		PipelineConfig: filepath.Join(root, "missing.yaml"),
		RandomSeed:     42,
		MaxConcurrency: 2,
	}
	logger = utils.NewDiscardLogger()
	fetchFirst, noExport = false, false
	return root
}

func TestRunPipelineEndToEnd(t *testing.T) {
	root := setupRun(t)

	if err := runPipeline(context.Background()); err != nil {
		t.Fatalf("runPipeline: %v", err)
	}

	data, err := os.ReadFile(cfg.CSVOutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("output: got %d lines, want header + 1 row", len(lines))
	}
	want := ",Copenhagen,1,Cozy flat,Nørrebro,Entire home/apt,0.00,10,30,0.6667,false,false,false"
	if !strings.HasSuffix(lines[1], want) {
		t.Errorf("row: got %q, want suffix %q", lines[1], want)
	}

	for _, name := range []string{"copenhagen-ReviewNormalization.gob", "copenhagen-StayDuration.gob"} {
		if _, err := os.Stat(filepath.Join(root, "cache", name)); err != nil {
			t.Errorf("cache entry %s: %v", name, err)
		}
	}
}

func TestRunPipelineMissingDataset(t *testing.T) {
	setupRun(t)
	cfg.Market = "Atlantis"

	if err := runPipeline(context.Background()); err == nil {
		t.Fatal("runPipeline without dataset: got nil error")
	}
}

func TestNewRunnerStageOrder(t *testing.T) {
	setupRun(t)

	runner := newRunner(nil, config.DefaultPipeline(), nil)
	got := strings.Join(runner.Stages(), ",")
	want := "ReviewNormalization,StayDuration,Vacancy,StaleListings,Summary"
	if got != want {
		t.Errorf("stages: got %s, want %s", got, want)
	}
}
