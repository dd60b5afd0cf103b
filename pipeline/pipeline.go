// Package pipeline runs an ordered list of stages against a market dataset.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"airbnb-vacancy/models"
	"airbnb-vacancy/utils"
)

// Stage is one step of the pipeline. Stages run one at a time, in order, and
// may mutate the dataset and the scratch map freely.
type Stage interface {
	Name() string
	Run(ctx context.Context, ds *models.Dataset, scratch Scratch) error
}

// Scratch carries values between stages of a single run. It is emptied when
// the run ends.
type Scratch map[string]any

// Well-known scratch keys.
const (
	KeyRunID              = "pipeline.run_id"
	KeyNightsDistribution = "stay_duration.distribution"
	KeyVacancyClamped     = "vacancy.clamped"
	KeyLowAvailability    = "stale.low_availability"
	KeyNoRecentReviews    = "stale.no_recent_reviews"
	KeyLikelyToCancel     = "stale.likely_to_cancel"
	KeyReport             = "summary.report"
)

// Int64s returns the []int64 stored under key, or nil.
func (s Scratch) Int64s(key string) []int64 {
	v, _ := s[key].([]int64)
	return v
}

// Runner executes stages sequentially.
type Runner struct {
	stages  []Stage
	scratch Scratch
	logger  *utils.Logger
}

// NewRunner creates a Runner for the given stages, in execution order.
func NewRunner(logger *utils.Logger, stages ...Stage) *Runner {
	return &Runner{
		stages:  stages,
		scratch: make(Scratch),
		logger:  logger,
	}
}

// Stages returns the configured stage names in order.
func (r *Runner) Stages() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.Name()
	}
	return names
}

// Scratch exposes the scratch map. It is only populated while Run executes.
func (r *Runner) Scratch() Scratch { return r.scratch }

// Run executes every stage against ds. The first failing stage aborts the
// run; mutations made by earlier stages are kept. The scratch map is reset
// whether the run succeeds or not.
func (r *Runner) Run(ctx context.Context, ds *models.Dataset) (runID string, err error) {
	defer func() { r.scratch = make(Scratch) }()

	runID = uuid.NewString()
	r.scratch[KeyRunID] = runID
	r.logger.Info("[pipeline] Run %s started for market %q (%d stages)", runID, ds.Market, len(r.stages))

	for i, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return runID, fmt.Errorf("pipeline: before stage %s: %w", stage.Name(), err)
		}

		start := time.Now()
		r.logger.Info("[pipeline] (%d/%d) %s", i+1, len(r.stages), stage.Name())

		if err := stage.Run(ctx, ds, r.scratch); err != nil {
			r.logger.Error("[pipeline] Stage %s failed: %v", stage.Name(), err)
			return runID, fmt.Errorf("pipeline: stage %s: %w", stage.Name(), err)
		}
		r.logger.Debug("[pipeline] %s done in %v", stage.Name(), time.Since(start).Round(time.Millisecond))
	}

	r.logger.Info("[pipeline] Run %s complete", runID)
	return runID, nil
}
