package storage

import "airbnb-vacancy/models"

// ListingWriter is the interface any export backend must satisfy. Each call
// writes the listings of one pipeline run.
type ListingWriter interface {
	Write(runID, market string, listings []*models.Listing) error
	Close() error
}
