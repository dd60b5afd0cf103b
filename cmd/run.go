package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"airbnb-vacancy/cache"
	"airbnb-vacancy/config"
	"airbnb-vacancy/pipeline"
	"airbnb-vacancy/scraper/insideairbnb"
	"airbnb-vacancy/services"
	"airbnb-vacancy/storage"
	"airbnb-vacancy/utils"
)

var (
	fetchFirst bool
	noExport   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis pipeline for the market",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runPipeline(ctx)
	},
}

func init() {
	runCmd.Flags().BoolVar(&fetchFirst, "fetch", false, "download the dataset first if it is not on disk")
	runCmd.Flags().BoolVar(&noExport, "no-export", false, "skip writing metrics to CSV/PostgreSQL")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(ctx context.Context) error {
	logger.Info("=== airbnb-vacancy: market %q ===", cfg.Market)

	params, err := config.LoadPipeline(cfg.PipelineConfig)
	if err != nil {
		return err
	}

	dir := cfg.MarketDir()
	if fetchFirst {
		if err := insideairbnb.New(cfg, logger).Fetch(ctx, cfg.Market, dir); err != nil {
			return err
		}
	}

	ds, err := storage.NewLoader(logger).Load(dir, cfg.Market)
	if err != nil {
		return fmt.Errorf("load dataset (try --fetch): %w", err)
	}

	store, err := cache.NewFileStore(cfg.CacheDir)
	if err != nil {
		return err
	}

	var writers []storage.ListingWriter
	if !noExport {
		csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			return err
		}
		defer csvWriter.Close()
		writers = append(writers, csvWriter)

		if cfg.PostgresEnabled() {
			retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}
			pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN(), retry)
			if err != nil {
				return err
			}
			defer pgWriter.Close()
			writers = append(writers, pgWriter)
		}
	}

	runner := newRunner(cache.New(store, logger), params, writers)
	runID, err := runner.Run(ctx, ds)
	if err != nil {
		return err
	}

	logger.Info("Run %s finished, metrics → %s", runID, cfg.CSVOutputPath)
	return nil
}

// newRunner wires the stages in execution order.
func newRunner(c *cache.Cache, params config.Pipeline, writers []storage.ListingWriter) *pipeline.Runner {
	rng := rand.New(rand.NewSource(cfg.RandomSeed))
	pool := utils.NewWorkerPool(cfg.MaxConcurrency, 0)

	stages := []pipeline.Stage{
		services.NewReviewNormalizer(c, logger),
		services.NewStayDurationInferrer(c, pool, rng, logger),
		services.NewVacancyCalculator(logger),
		services.NewStaleClassifier(params.Stale, logger),
		services.NewInsightService(logger),
	}
	if len(writers) > 0 {
		stages = append(stages, services.NewExporter(logger, writers...))
	}
	return pipeline.NewRunner(logger, stages...)
}
