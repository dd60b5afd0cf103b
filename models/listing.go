package models

import "time"

// Listing is one row of the market's listings table. The fields below the
// blank line are derived by pipeline stages and are nil/false until then.
type Listing struct {
	ID              int64
	Name            string
	HostID          int64
	Neighbourhood   string
	RoomType        string
	Price           float64
	MinimumNights   int
	Accommodates    int
	Latitude        float64
	Longitude       float64
	NumberOfReviews int
	InstantBookable bool
	HostIsSuperhost bool
	FirstReview     *time.Time
	LastReview      *time.Time

	DaysOccupied    *int
	DaysListed      *int
	VacancyPercent  *float64
	LowAvailability bool
	NoRecentReviews bool
	LikelyToCancel  bool
}

// IsStale reports whether any stale-listing heuristic flagged the listing.
func (l *Listing) IsStale() bool {
	return l.LowAvailability || l.NoRecentReviews || l.LikelyToCancel
}

// CalendarEntry is one listing's availability on one date.
type CalendarEntry struct {
	ListingID int64
	Date      time.Time
	Available bool
	Price     float64
}

// Review is a guest review. RawComments keeps the text as published;
// Comments holds the normalized text once ReviewNormalization has run.
type Review struct {
	ID          int64
	ListingID   int64
	Date        time.Time
	RawComments string
	Comments    string

	// Nights is the stay length extracted from the text, nil when unknown.
	Nights *int
	// EstimatedNights is drawn from the empirical distribution of Nights.
	EstimatedNights *int
	// DaysOccupied is Nights when known, otherwise EstimatedNights.
	DaysOccupied *int
}
