package cmd

import (
	"path/filepath"
	"testing"

	"airbnb-vacancy/cache"
	"airbnb-vacancy/config"
	"airbnb-vacancy/utils"
)

func TestCacheClearOnlyRemovesMarketStages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	store, err := cache.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	keys := []string{"oslo-ReviewNormalization", "oslo-StayDuration", "oslo-bergen-StayDuration", "paris-StayDuration"}
	for _, k := range keys {
		if _, err := store.Save(k, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	cfg = &config.Config{Market: "Oslo", CacheDir: dir}
	logger = utils.NewDiscardLogger()
	allMarkets = false
	if err := cacheClearCmd.RunE(cacheClearCmd, nil); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	entries, err := store.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Key != "oslo-bergen-StayDuration" || entries[1].Key != "paris-StayDuration" {
		t.Errorf("remaining entries: got %+v, want oslo-bergen and paris", entries)
	}

	allMarkets = true
	defer func() { allMarkets = false }()
	if err := cacheClearCmd.RunE(cacheClearCmd, nil); err != nil {
		t.Fatalf("cache clear --all: %v", err)
	}
	if entries, _ := store.Entries(); len(entries) != 0 {
		t.Errorf("after --all: got %d entries, want 0", len(entries))
	}
}
