package models

// Dataset holds the three linked tables of one market. It is owned by the
// pipeline runner for the duration of a run and mutated in place by stages.
type Dataset struct {
	Market   string
	Listings []*Listing
	Calendar []CalendarEntry
	Reviews  []*Review
}

// ListingIndex maps listing IDs to their rows.
func (d *Dataset) ListingIndex() map[int64]*Listing {
	idx := make(map[int64]*Listing, len(d.Listings))
	for _, l := range d.Listings {
		idx[l.ID] = l
	}
	return idx
}
