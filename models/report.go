package models

// GroupVacancy is the mean vacancy of listings sharing a categorical value.
type GroupVacancy struct {
	Group       string
	Listings    int
	MeanVacancy float64
}

// Report summarises a pipeline run for the inspection stage.
type Report struct {
	Market               string
	TotalListings        int
	TotalReviews         int
	TotalCalendarEntries int

	ReviewsWithNights   int
	ReviewsImputed      int
	ListingsWithVacancy int
	MeanVacancy         float64
	ClampedListings     int

	VacancyByRoomType      []GroupVacancy
	VacancyByNeighbourhood []GroupVacancy

	LowAvailability int
	NoRecentReviews int
	LikelyToCancel  int
	StaleListings   int
}
