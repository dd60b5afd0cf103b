package services

import (
	"context"
	"strings"
	"time"

	"airbnb-vacancy/models"
	"airbnb-vacancy/pipeline"
	"airbnb-vacancy/utils"
)

// StageStaleListings is the stage name of StaleClassifier.
const StageStaleListings = "StaleListings"

const hostCanceledMarker = "host canceled reservation"

// StaleClassifier flags listings that look inactive or unreliable. The three
// heuristics are independent; a listing may be flagged by any of them.
type StaleClassifier struct {
	params models.StaleParams
	logger *utils.Logger
}

// NewStaleClassifier creates the stale-listing stage.
func NewStaleClassifier(params models.StaleParams, logger *utils.Logger) *StaleClassifier {
	return &StaleClassifier{params: params, logger: logger}
}

func (s *StaleClassifier) Name() string { return StageStaleListings }

func (s *StaleClassifier) Run(_ context.Context, ds *models.Dataset, scratch pipeline.Scratch) error {
	p := s.params

	low := LowFutureAvailability(ds.Listings, ds.Calendar, p.AvailabilityMonths, p.AvailabilityThreshold)
	quiet := NoRecentReviews(ds.Listings, ds.Reviews, p.RecentReviewMonths)
	cancel := LikelyToCancel(ds.Listings, ds.Reviews, p.CancelMonths, p.CancelThreshold)

	lowSet, quietSet, cancelSet := idSet(low), idSet(quiet), idSet(cancel)
	stale := 0
	for _, l := range ds.Listings {
		_, l.LowAvailability = lowSet[l.ID]
		_, l.NoRecentReviews = quietSet[l.ID]
		_, l.LikelyToCancel = cancelSet[l.ID]
		if l.IsStale() {
			stale++
		}
	}

	scratch[pipeline.KeyLowAvailability] = low
	scratch[pipeline.KeyNoRecentReviews] = quiet
	scratch[pipeline.KeyLikelyToCancel] = cancel

	s.logger.Info("[stale] low availability: %d | no recent reviews: %d | likely to cancel: %d | stale overall: %d/%d",
		len(low), len(quiet), len(cancel), stale, len(ds.Listings))
	return nil
}

// LowFutureAvailability returns the listings whose share of available days
// in [first calendar date, +months) is at most threshold. Listings without
// calendar rows in the window are not evaluated.
func LowFutureAvailability(listings []*models.Listing, calendar []models.CalendarEntry, months int, threshold float64) []int64 {
	if len(calendar) == 0 {
		return nil
	}

	start := calendar[0].Date
	for _, c := range calendar {
		if c.Date.Before(start) {
			start = c.Date
		}
	}
	end := start.AddDate(0, months, 0)

	total := make(map[int64]int)
	available := make(map[int64]int)
	for _, c := range calendar {
		if c.Date.Before(start) || !c.Date.Before(end) {
			continue
		}
		total[c.ListingID]++
		if c.Available {
			available[c.ListingID]++
		}
	}

	return selectListings(listings, func(id int64) bool {
		days, ok := total[id]
		if !ok {
			return false
		}
		return float64(available[id])/float64(days) <= threshold
	})
}

// NoRecentReviews returns the listings without a review in the last months
// before the most recent review in the dataset.
func NoRecentReviews(listings []*models.Listing, reviews []*models.Review, months int) []int64 {
	reviewed := make(map[int64]struct{})
	for _, r := range recentReviews(reviews, months) {
		reviewed[r.ListingID] = struct{}{}
	}
	return selectListings(listings, func(id int64) bool {
		_, ok := reviewed[id]
		return !ok
	})
}

// LikelyToCancel returns the listings whose share of host-cancellation
// notices among their reviews in the window is at least threshold.
func LikelyToCancel(listings []*models.Listing, reviews []*models.Review, months int, threshold float64) []int64 {
	total := make(map[int64]int)
	canceled := make(map[int64]int)
	for _, r := range recentReviews(reviews, months) {
		total[r.ListingID]++
		text := r.Comments
		if text == "" {
			text = NormalizeText(r.RawComments)
		}
		if strings.Contains(text, hostCanceledMarker) {
			canceled[r.ListingID]++
		}
	}

	return selectListings(listings, func(id int64) bool {
		n, ok := total[id]
		if !ok {
			return false
		}
		return float64(canceled[id])/float64(n) >= threshold
	})
}

// recentReviews returns reviews dated in (latest - months, latest].
func recentReviews(reviews []*models.Review, months int) []*models.Review {
	if len(reviews) == 0 {
		return nil
	}
	var latest time.Time
	for _, r := range reviews {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	since := latest.AddDate(0, -months, 0)

	var recent []*models.Review
	for _, r := range reviews {
		if r.Date.After(since) && !r.Date.After(latest) {
			recent = append(recent, r)
		}
	}
	return recent
}

func selectListings(listings []*models.Listing, keep func(id int64) bool) []int64 {
	var ids []int64
	for _, l := range listings {
		if keep(l.ID) {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
