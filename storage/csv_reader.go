package storage

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"airbnb-vacancy/models"
	"airbnb-vacancy/utils"
)

// Dataset file names inside a market directory. Each may also be gzipped
// with a ".gz" suffix.
const (
	ListingsFile = "listings.csv"
	CalendarFile = "calendar.csv"
	ReviewsFile  = "reviews.csv"
)

// Loader reads a market's three tables from a directory of Inside Airbnb
// CSV files.
type Loader struct {
	logger *utils.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *utils.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads listings, calendar and reviews from dir. Rows with a missing
// ID or an unparseable date are dropped; duplicate listing and review IDs
// keep their first occurrence.
func (l *Loader) Load(dir, market string) (*models.Dataset, error) {
	ds := &models.Dataset{Market: market}

	listings, err := l.loadListings(dir)
	if err != nil {
		return nil, err
	}
	ds.Listings = listings

	calendar, err := l.loadCalendar(dir)
	if err != nil {
		return nil, err
	}
	ds.Calendar = calendar

	reviews, err := l.loadReviews(dir)
	if err != nil {
		return nil, err
	}
	ds.Reviews = reviews

	l.logger.Info("[loader] %s: %d listings, %d calendar entries, %d reviews",
		market, len(ds.Listings), len(ds.Calendar), len(ds.Reviews))
	return ds, nil
}

// table is a CSV file with columns addressed by header name.
type table struct {
	r       *csv.Reader
	columns map[string]int
	closers []io.Closer
}

func openTable(dir, name string) (*table, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	gz := false
	if errors.Is(err, fs.ErrNotExist) {
		path += ".gz"
		f, err = os.Open(path)
		gz = true
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", name, err)
	}

	t := &table{closers: []io.Closer{f}}
	var src io.Reader = f
	if gz {
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: gunzip %q: %w", path, err)
		}
		t.closers = append(t.closers, zr)
		src = zr
	}

	t.r = csv.NewReader(src)
	t.r.FieldsPerRecord = -1
	t.r.LazyQuotes = true

	header, err := t.r.Read()
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("csv: read header of %q: %w", path, err)
	}
	t.columns = make(map[string]int, len(header))
	for i, h := range header {
		t.columns[h] = i
	}
	return t, nil
}

func (t *table) require(cols ...string) error {
	for _, c := range cols {
		if _, ok := t.columns[c]; !ok {
			return fmt.Errorf("csv: missing column %q", c)
		}
	}
	return nil
}

// each calls fn for every record; get returns "" for absent columns.
func (t *table) each(fn func(get func(col string) string)) error {
	for {
		rec, err := t.r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("csv: read row: %w", err)
		}
		fn(func(col string) string {
			i, ok := t.columns[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		})
	}
}

func (t *table) Close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		_ = t.closers[i].Close()
	}
}

func (l *Loader) loadListings(dir string) ([]*models.Listing, error) {
	t, err := openTable(dir, ListingsFile)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	if err := t.require("id"); err != nil {
		return nil, fmt.Errorf("%s: %w", ListingsFile, err)
	}

	seen := utils.NewSet[int64]()
	var listings []*models.Listing
	dropped := 0
	err = t.each(func(get func(string) string) {
		id, ok := parseID(get("id"))
		if !ok || !seen.Add(id) {
			dropped++
			return
		}
		hostID, _ := parseID(get("host_id"))
		neighbourhood := get("neighbourhood_cleansed")
		if neighbourhood == "" {
			neighbourhood = get("neighbourhood")
		}
		listings = append(listings, &models.Listing{
			ID:              id,
			Name:            get("name"),
			HostID:          hostID,
			Neighbourhood:   neighbourhood,
			RoomType:        get("room_type"),
			Price:           parsePrice(get("price")),
			MinimumNights:   parseInt(get("minimum_nights")),
			Accommodates:    parseInt(get("accommodates")),
			Latitude:        parseFloat(get("latitude")),
			Longitude:       parseFloat(get("longitude")),
			NumberOfReviews: parseInt(get("number_of_reviews")),
			InstantBookable: parseFlag(get("instant_bookable")),
			HostIsSuperhost: parseFlag(get("host_is_superhost")),
			FirstReview:     parseOptionalDate(get("first_review")),
			LastReview:      parseOptionalDate(get("last_review")),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ListingsFile, err)
	}
	if dropped > 0 {
		l.logger.Warn("[loader] Dropped %d listings with missing or duplicate IDs", dropped)
	}
	return listings, nil
}

func (l *Loader) loadCalendar(dir string) ([]models.CalendarEntry, error) {
	t, err := openTable(dir, CalendarFile)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	if err := t.require("listing_id", "date", "available"); err != nil {
		return nil, fmt.Errorf("%s: %w", CalendarFile, err)
	}

	var entries []models.CalendarEntry
	dropped := 0
	err = t.each(func(get func(string) string) {
		id, ok := parseID(get("listing_id"))
		date, dateOK := parseDate(get("date"))
		if !ok || !dateOK {
			dropped++
			return
		}
		entries = append(entries, models.CalendarEntry{
			ListingID: id,
			Date:      date,
			Available: parseFlag(get("available")),
			Price:     parsePrice(get("price")),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CalendarFile, err)
	}
	if dropped > 0 {
		l.logger.Debug("[loader] Dropped %d malformed calendar rows", dropped)
	}
	return entries, nil
}

func (l *Loader) loadReviews(dir string) ([]*models.Review, error) {
	t, err := openTable(dir, ReviewsFile)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	if err := t.require("listing_id", "date", "comments"); err != nil {
		return nil, fmt.Errorf("%s: %w", ReviewsFile, err)
	}

	seen := utils.NewSet[int64]()
	var reviews []*models.Review
	dropped := 0
	err = t.each(func(get func(string) string) {
		listingID, ok := parseID(get("listing_id"))
		date, dateOK := parseDate(get("date"))
		if !ok || !dateOK {
			dropped++
			return
		}
		id, hasID := parseID(get("id"))
		if hasID && !seen.Add(id) {
			dropped++
			return
		}
		reviews = append(reviews, &models.Review{
			ID:          id,
			ListingID:   listingID,
			Date:        date,
			RawComments: get("comments"),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ReviewsFile, err)
	}
	if dropped > 0 {
		l.logger.Debug("[loader] Dropped %d malformed or duplicate reviews", dropped)
	}
	return reviews, nil
}
