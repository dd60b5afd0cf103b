package services

import (
	"context"
	"fmt"
	"math/rand"

	"airbnb-vacancy/cache"
	"airbnb-vacancy/models"
	"airbnb-vacancy/pipeline"
	"airbnb-vacancy/utils"
)

// StageStayDuration is the cache/stage name of StayDurationInferrer.
const StageStayDuration = "StayDuration"

const extractChunkSize = 256

// StayDurationInferrer extracts the stay length from each review's raw text
// and imputes the rest from the empirical distribution of known lengths.
type StayDurationInferrer struct {
	cache     *cache.Cache
	extractor *DurationExtractor
	pool      *utils.WorkerPool
	rng       *rand.Rand
	logger    *utils.Logger
}

// NewStayDurationInferrer creates the stage. rng is the run's seeded random
// source and is only used for imputation.
func NewStayDurationInferrer(c *cache.Cache, pool *utils.WorkerPool, rng *rand.Rand, logger *utils.Logger) *StayDurationInferrer {
	return &StayDurationInferrer{
		cache:     c,
		extractor: NewDurationExtractor(),
		pool:      pool,
		rng:       rng,
		logger:    logger,
	}
}

func (s *StayDurationInferrer) Name() string { return StageStayDuration }

func (s *StayDurationInferrer) Run(_ context.Context, ds *models.Dataset, scratch pipeline.Scratch) error {
	// Cached payload: nights per review in row order, 0 where unknown.
	nights, err := cache.Get(s.cache, ds.Market, StageStayDuration, func() ([]int, error) {
		return s.ExtractAll(ds.Reviews), nil
	})
	if err != nil {
		return err
	}
	if len(nights) != len(ds.Reviews) {
		return fmt.Errorf("stay duration: cached payload has %d rows but dataset has %d reviews; clear the %q cache",
			len(nights), len(ds.Reviews), cache.Key(ds.Market, StageStayDuration))
	}

	known := 0
	for i, r := range ds.Reviews {
		r.Nights = nil
		if nights[i] > 0 {
			n := nights[i]
			r.Nights = &n
			known++
		}
	}

	dist := BuildNightsDistribution(ds.Reviews)
	scratch[pipeline.KeyNightsDistribution] = dist
	if dist.Empty() && len(ds.Reviews) > 0 {
		s.logger.Warn("[stay] No review states a stay length; nothing to impute from")
	}

	imputed := ImputeNights(ds.Reviews, dist, s.rng)
	s.logger.Info("[stay] %d reviews with stated nights, %d imputed, %d unresolved",
		known, imputed, len(ds.Reviews)-known-imputed)
	return nil
}

// ExtractAll runs the extractor over every review on the worker pool and
// returns the nights in review order, 0 where unknown.
func (s *StayDurationInferrer) ExtractAll(reviews []*models.Review) []int {
	out := make([]int, len(reviews))
	chunks := (len(reviews) + extractChunkSize - 1) / extractChunkSize

	s.pool.MapIndexed(chunks, func(c int) {
		start := c * extractChunkSize
		end := start + extractChunkSize
		if end > len(reviews) {
			end = len(reviews)
		}
		for i := start; i < end; i++ {
			if n, ok := s.extractor.Extract(reviews[i].RawComments); ok {
				out[i] = n
			}
		}
	})

	s.logger.Debug("[stay] Extracted durations from %d reviews in %d chunks", len(reviews), chunks)
	return out
}
