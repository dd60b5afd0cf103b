package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"airbnb-vacancy/models"
)

var metricsHeader = []string{
	"run_id", "market", "listing_id", "name", "neighbourhood", "room_type", "price",
	"days_occupied", "days_listed", "vacancy_percent",
	"low_availability", "no_recent_reviews", "likely_to_cancel",
}

// CSVWriter writes enriched listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(metricsHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{path: path, file: f, writer: w}, nil
}

// Path returns the output file path.
func (c *CSVWriter) Path() string { return c.path }

// Write appends one row per listing. Missing metrics are written as empty
// cells.
func (c *CSVWriter) Write(runID, market string, listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			runID,
			market,
			strconv.FormatInt(l.ID, 10),
			l.Name,
			l.Neighbourhood,
			l.RoomType,
			strconv.FormatFloat(l.Price, 'f', 2, 64),
			formatOptionalInt(l.DaysOccupied),
			formatOptionalInt(l.DaysListed),
			formatOptionalFloat(l.VacancyPercent),
			strconv.FormatBool(l.LowAvailability),
			strconv.FormatBool(l.NoRecentReviews),
			strconv.FormatBool(l.LikelyToCancel),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
