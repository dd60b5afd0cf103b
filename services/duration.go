package services

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MinStayNights and MaxStayNights bound plausible stay lengths.
	MinStayNights = 2
	MaxStayNights = 200

	automatedPostingMarker = "this is an automated posting"
)

var errNoDuration = errors.New("duration: no duration expression")

const (
	quantityPattern = `(?:\d+(?:\.\d+)?|an?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty)`
	unitPattern     = `(?:nights?|days?|weeks?|weekends?|months?|years?|hours?)`
	termPattern     = `(?:` + quantityPattern + `[\s-]+)?(?:more\s+|full\s+|whole\s+)?` + unitPattern
)

var (
	// dateEntityRegexp finds date/duration expressions, including chained
	// terms ("1 week and 2 days") and a trailing "old" or "-old" so age
	// references can be recognised downstream.
	dateEntityRegexp = regexp.MustCompile(`(?i)\b` + termPattern + `(?:\s*(?:,|and)\s*` + termPattern + `)*(?:[\s-]+old)?\b`)

	// durationTermRegexp matches one "<number> <unit>" term understood by
	// ParseDuration.
	durationTermRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?|\ban?\b)[\s-]*(seconds?|minutes?|hours?|days?|weeks?|months?|years?)\b`)
	separatorRegexp    = regexp.MustCompile(`^(?:[\s,]|and)*$`)

	nightWordRegexp = regexp.MustCompile(`\bnights?\b|\bdayss\b`)
	modifierRegexp  = regexp.MustCompile(`\b(?:more|full|whole)\s+`)

	spelledNumbers = compileSpelledNumbers("one", "two", "three", "four", "five", "six", "seven",
		"eight", "nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
		"seventeen", "eighteen", "nineteen", "twenty")
)

type spelledNumber struct {
	re    *regexp.Regexp
	digit string
}

// compileSpelledNumbers maps words[i] to the digits of i+1.
func compileSpelledNumbers(words ...string) []spelledNumber {
	out := make([]spelledNumber, len(words))
	for i, w := range words {
		out[i] = spelledNumber{re: regexp.MustCompile(`\b` + w + `\b`), digit: strconv.Itoa(i + 1)}
	}
	return out
}

var unitDays = map[string]float64{
	"second": 1.0 / 86400,
	"minute": 1.0 / 1440,
	"hour":   1.0 / 24,
	"day":    1,
	"week":   7,
	"month":  30,
	"year":   365,
}

// ParseDuration converts an expression such as "2 weeks" or "1 week and
// 3 days" to a number of days. Only digits (or "a"/"an") are accepted as
// quantities and only calendar units are understood; anything else is an
// error.
func ParseDuration(text string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	matches := durationTermRegexp.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: %q", errNoDuration, text)
	}

	var days float64
	prev := 0
	for _, m := range matches {
		if !separatorRegexp.MatchString(s[prev:m[0]]) {
			return 0, fmt.Errorf("duration: unexpected text %q in %q", s[prev:m[0]], text)
		}
		prev = m[1]

		qty := 1.0
		if q := s[m[2]:m[3]]; q != "a" && q != "an" {
			v, err := strconv.ParseFloat(q, 64)
			if err != nil {
				return 0, fmt.Errorf("duration: quantity %q: %w", q, err)
			}
			qty = v
		}
		unit := strings.TrimSuffix(s[m[4]:m[5]], "s")
		days += qty * unitDays[unit]
	}
	if !separatorRegexp.MatchString(s[prev:]) {
		return 0, fmt.Errorf("duration: unexpected text %q in %q", s[prev:], text)
	}
	return days, nil
}

// repairDurationText rewrites spelled-out numbers to digits, drops
// "full"/"whole"/"more" and turns night words into "days" so ParseDuration
// can read them.
func repairDurationText(text string) string {
	text = strings.ToLower(text)
	text = modifierRegexp.ReplaceAllString(text, "")
	for _, n := range spelledNumbers {
		text = n.re.ReplaceAllString(text, n.digit)
	}
	return nightWordRegexp.ReplaceAllString(text, "days")
}

// DurationExtractor infers how many nights a review describes.
type DurationExtractor struct {
	findSpans func(text string) []string
	parse     func(text string) (float64, error)
}

// NewDurationExtractor returns an extractor using the pattern-based entity
// finder and ParseDuration.
func NewDurationExtractor() *DurationExtractor {
	return &DurationExtractor{
		findSpans: FindDateEntities,
		parse:     ParseDuration,
	}
}

// FindDateEntities returns the date/duration expressions in text, in order.
func FindDateEntities(text string) []string {
	return dateEntityRegexp.FindAllString(text, -1)
}

// Extract returns the stay length in nights and whether one was found.
// Automated postings never yield a duration. The first span that parses to
// a plausible stay wins.
func (e *DurationExtractor) Extract(text string) (int, bool) {
	if strings.Contains(strings.ToLower(text), automatedPostingMarker) {
		return 0, false
	}
	for _, span := range e.findSpans(text) {
		if nights, ok := e.spanToNights(span); ok {
			return nights, true
		}
	}
	return 0, false
}

func (e *DurationExtractor) spanToNights(span string) (int, bool) {
	// "5 months old" is nearly always someone's age, not a stay.
	if strings.Contains(strings.ToLower(span), "old") {
		return 0, false
	}

	days, err := e.parse(span)
	if err != nil {
		repaired := repairDurationText(span)
		days, err = e.parse(repaired)
		if err != nil {
			days, err = e.parse(repairDurationText(repaired))
		}
	}
	if err != nil {
		return 0, false
	}

	if days < MinStayNights || days > MaxStayNights {
		return 0, false
	}
	return int(math.Round(days)), true
}
