package storage

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// priceRegexp captures numeric price values
var priceRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)

// parsePrice reads Inside Airbnb prices such as "$1,250.00". Unparseable
// values yield 0.
func parsePrice(raw string) float64 {
	cleaned := strings.ReplaceAll(raw, ",", "")
	match := priceRegexp.FindString(cleaned)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseDate parses a date in any common layout. Empty input is reported as
// not ok rather than an error.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseOptionalDate(raw string) *time.Time {
	t, ok := parseDate(raw)
	if !ok {
		return nil
	}
	return &t
}

// parseFlag reads the "t"/"f" booleans used throughout the dataset.
func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "t", "true", "1", "yes":
		return true
	}
	return false
}

func parseInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseFloat(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return f
}
