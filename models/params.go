package models

// StaleParams holds the windows and thresholds of the stale-listing
// heuristics.
type StaleParams struct {
	AvailabilityMonths    int     `yaml:"availability_months"`
	AvailabilityThreshold float64 `yaml:"availability_threshold"`
	RecentReviewMonths    int     `yaml:"recent_review_months"`
	CancelMonths          int     `yaml:"cancel_months"`
	CancelThreshold       float64 `yaml:"cancel_threshold"`
}

// DefaultStaleParams returns the default heuristic parameters.
func DefaultStaleParams() StaleParams {
	return StaleParams{
		AvailabilityMonths:    1,
		AvailabilityThreshold: 0.1,
		RecentReviewMonths:    3,
		CancelMonths:          24,
		CancelThreshold:       0.5,
	}
}
