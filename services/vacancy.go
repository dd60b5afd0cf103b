package services

import (
	"context"
	"time"

	"airbnb-vacancy/models"
	"airbnb-vacancy/pipeline"
	"airbnb-vacancy/utils"
)

// StageVacancy is the stage name of VacancyCalculator.
const StageVacancy = "Vacancy"

// VacancyCalculator derives DaysOccupied, DaysListed and VacancyPercent for
// each listing from the resolved review durations.
type VacancyCalculator struct {
	logger *utils.Logger
}

// NewVacancyCalculator creates the vacancy stage.
func NewVacancyCalculator(logger *utils.Logger) *VacancyCalculator {
	return &VacancyCalculator{logger: logger}
}

func (v *VacancyCalculator) Name() string { return StageVacancy }

func (v *VacancyCalculator) Run(_ context.Context, ds *models.Dataset, scratch pipeline.Scratch) error {
	occupied := OccupiedDaysByListing(ds.Reviews)

	clamped, withVacancy := 0, 0
	for _, l := range ds.Listings {
		l.DaysOccupied, l.DaysListed, l.VacancyPercent = nil, nil, nil

		if days, ok := occupied[l.ID]; ok {
			d := days
			l.DaysOccupied = &d
		}
		l.DaysListed = DaysListed(l.FirstReview, l.LastReview)

		var wasClamped bool
		l.DaysOccupied, l.VacancyPercent, wasClamped = Vacancy(l.DaysOccupied, l.DaysListed)
		if wasClamped {
			clamped++
			v.logger.Debug("[vacancy] Listing %d occupied longer than listed, clamped to %d days", l.ID, *l.DaysListed)
		}
		if l.VacancyPercent != nil {
			withVacancy++
		}
	}

	scratch[pipeline.KeyVacancyClamped] = clamped
	if clamped > 0 {
		v.logger.Warn("[vacancy] %d listings had more occupied days than listed days and were clamped", clamped)
	}
	v.logger.Info("[vacancy] Vacancy computed for %d of %d listings", withVacancy, len(ds.Listings))
	return nil
}

// OccupiedDaysByListing sums DaysOccupied per listing. Listings without any
// resolved review are absent from the result.
func OccupiedDaysByListing(reviews []*models.Review) map[int64]int {
	sums := make(map[int64]int)
	for _, r := range reviews {
		if r.DaysOccupied == nil {
			continue
		}
		sums[r.ListingID] += *r.DaysOccupied
	}
	return sums
}

// DaysListed is the whole number of days between the first and last review,
// or nil when either is missing or they are out of order.
func DaysListed(first, last *time.Time) *int {
	if first == nil || last == nil || last.Before(*first) {
		return nil
	}
	days := int(last.Sub(*first) / (24 * time.Hour))
	return &days
}

// Vacancy clamps occupied to listed and returns the clamped occupancy, the
// vacancy fraction and whether clamping happened. The vacancy is nil when
// either input is missing or listed is zero.
func Vacancy(occupied, listed *int) (*int, *float64, bool) {
	if occupied == nil || listed == nil {
		return occupied, nil, false
	}

	o := min(*occupied, *listed)
	wasClamped := o < *occupied
	if *listed <= 0 {
		return &o, nil, wasClamped
	}

	vacancy := 1 - float64(o)/float64(*listed)
	return &o, &vacancy, wasClamped
}
