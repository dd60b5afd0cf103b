package storage

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"airbnb-vacancy/utils"
)

const listingsCSV = `id,name,host_id,neighbourhood_cleansed,room_type,price,minimum_nights,first_review,last_review
1,Loft,10,Nørrebro,Entire home/apt,"$1,200.00",2,2021-01-01,2021-01-31
2,Room,11,Vesterbro,Private room,$450.00,1,,
2,Duplicate,11,Vesterbro,Private room,$450.00,1,,
,No ID,12,Vesterbro,Private room,$100.00,1,,
`

const calendarCSV = `listing_id,date,available,price
1,2021-02-01,t,$1200.00
1,2021-02-02,f,$1200.00
2,not-a-date,t,$450.00
`

const reviewsCSV = `listing_id,id,date,reviewer_id,reviewer_name,comments
1,100,2021-01-05,5,Ann,"Stayed 3 nights, lovely<br/>place"
1,101,2021-01-20,6,Bob,
1,100,2021-01-05,5,Ann,duplicate
99,102,2021-01-21,7,Cy,Listing that does not exist
`

func writeFile(t *testing.T, path, content string, gz bool) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if !gz {
		if _, err := f.WriteString(content); err != nil {
			t.Fatal(err)
		}
		return
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLoaderLoadsPlainAndGzip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ListingsFile), listingsCSV, false)
	writeFile(t, filepath.Join(dir, CalendarFile+".gz"), calendarCSV, true)
	writeFile(t, filepath.Join(dir, ReviewsFile+".gz"), reviewsCSV, true)

	ds, err := NewLoader(utils.NewDiscardLogger()).Load(dir, "Copenhagen")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if ds.Market != "Copenhagen" {
		t.Errorf("Market: got %q", ds.Market)
	}
	if len(ds.Listings) != 2 {
		t.Fatalf("listings: got %d, want 2", len(ds.Listings))
	}
	loft := ds.Listings[0]
	if loft.Price != 1200 {
		t.Errorf("Price: got %.2f, want 1200", loft.Price)
	}
	if loft.FirstReview == nil || loft.LastReview == nil {
		t.Fatal("review dates should be parsed")
	}
	if ds.Listings[1].FirstReview != nil {
		t.Error("empty first_review should be nil")
	}

	if len(ds.Calendar) != 2 {
		t.Errorf("calendar: got %d rows, want 2", len(ds.Calendar))
	}
	if !ds.Calendar[0].Available || ds.Calendar[1].Available {
		t.Error("calendar availability flags misparsed")
	}

	// duplicate review ID dropped; empty comment and orphan listing kept for later stages
	if len(ds.Reviews) != 3 {
		t.Fatalf("reviews: got %d, want 3", len(ds.Reviews))
	}
	if ds.Reviews[0].RawComments != "Stayed 3 nights, lovely<br/>place" {
		t.Errorf("RawComments: got %q", ds.Reviews[0].RawComments)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	if _, err := NewLoader(utils.NewDiscardLogger()).Load(t.TempDir(), "Nowhere"); err == nil {
		t.Fatal("expected error for missing dataset files")
	}
}

func TestLoaderMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ListingsFile), "name\nLoft\n", false)
	if _, err := NewLoader(utils.NewDiscardLogger()).Load(dir, "X"); err == nil {
		t.Fatal("expected error for listings without id column")
	}
}
