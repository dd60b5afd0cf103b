package services

import (
	"context"
	"regexp"
	"strings"

	"airbnb-vacancy/cache"
	"airbnb-vacancy/models"
	"airbnb-vacancy/pipeline"
	"airbnb-vacancy/utils"
)

// StageReviewNormalization is the cache/stage name of ReviewNormalizer.
const StageReviewNormalization = "ReviewNormalization"

var (
	// breakLineRegexp matches HTML line breaks left in review bodies
	breakLineRegexp = regexp.MustCompile(`(?i)<br\s*/?>`)
	// symbolRegexp matches mentions, URLs, a leading "rt" and any symbol
	// that is not a letter, digit, space or tab
	symbolRegexp = regexp.MustCompile(`(@[a-z0-9]+)|(\w+://\S+)|^rt\b|http\S*|[^0-9a-z \t]`)
	spaceRegexp  = regexp.MustCompile(`\s+`)
)

// ReviewNormalizer cleans review text in place and drops reviews without
// any text.
type ReviewNormalizer struct {
	cache  *cache.Cache
	logger *utils.Logger
}

// NewReviewNormalizer creates the review normalization stage.
func NewReviewNormalizer(c *cache.Cache, logger *utils.Logger) *ReviewNormalizer {
	return &ReviewNormalizer{cache: c, logger: logger}
}

func (n *ReviewNormalizer) Name() string { return StageReviewNormalization }

func (n *ReviewNormalizer) Run(_ context.Context, ds *models.Dataset, _ pipeline.Scratch) error {
	before := len(ds.Reviews)

	reviews, err := cache.Get(n.cache, ds.Market, StageReviewNormalization, func() ([]*models.Review, error) {
		return n.Normalize(ds.Reviews), nil
	})
	if err != nil {
		return err
	}
	ds.Reviews = reviews

	n.logger.Info("[normalize] Normalized %d → %d reviews (dropped %d without text)",
		before, len(reviews), before-len(reviews))
	return nil
}

// Normalize returns the reviews that carry text, with Comments set to the
// cleaned form of RawComments.
func (n *ReviewNormalizer) Normalize(reviews []*models.Review) []*models.Review {
	out := make([]*models.Review, 0, len(reviews))
	for _, r := range reviews {
		if strings.TrimSpace(r.RawComments) == "" {
			continue
		}
		r.Comments = NormalizeText(r.RawComments)
		out = append(out, r)
	}
	return out
}

// NormalizeText lowercases s, strips line breaks and symbols, collapses
// whitespace and removes English stop-words.
func NormalizeText(s string) string {
	cleaned := strings.ToLower(s)
	cleaned = breakLineRegexp.ReplaceAllString(cleaned, " ")
	cleaned = symbolRegexp.ReplaceAllString(cleaned, " ")
	cleaned = spaceRegexp.ReplaceAllString(cleaned, " ")

	words := strings.Fields(cleaned)
	kept := words[:0]
	for _, w := range words {
		if _, stop := englishStopwords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
