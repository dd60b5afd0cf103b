package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"airbnb-vacancy/models"
	"airbnb-vacancy/pipeline"
	"airbnb-vacancy/utils"
)

// StageSummary is the stage name of InsightService.
const StageSummary = "Summary"

const topGroups = 10

// InsightService summarises a run and prints the report.
type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

func (s *InsightService) Name() string { return StageSummary }

func (s *InsightService) Run(_ context.Context, ds *models.Dataset, scratch pipeline.Scratch) error {
	report := s.Generate(ds, scratch)
	scratch[pipeline.KeyReport] = report
	s.Print(report)
	return nil
}

func (s *InsightService) Generate(ds *models.Dataset, scratch pipeline.Scratch) *models.Report {
	report := &models.Report{
		Market:               ds.Market,
		TotalListings:        len(ds.Listings),
		TotalReviews:         len(ds.Reviews),
		TotalCalendarEntries: len(ds.Calendar),
		LowAvailability:      len(scratch.Int64s(pipeline.KeyLowAvailability)),
		NoRecentReviews:      len(scratch.Int64s(pipeline.KeyNoRecentReviews)),
		LikelyToCancel:       len(scratch.Int64s(pipeline.KeyLikelyToCancel)),
	}
	if clamped, ok := scratch[pipeline.KeyVacancyClamped].(int); ok {
		report.ClampedListings = clamped
	}

	for _, r := range ds.Reviews {
		if r.Nights != nil {
			report.ReviewsWithNights++
		} else if r.EstimatedNights != nil {
			report.ReviewsImputed++
		}
	}

	var total float64
	for _, l := range ds.Listings {
		if l.IsStale() {
			report.StaleListings++
		}
		if l.VacancyPercent == nil {
			continue
		}
		report.ListingsWithVacancy++
		total += *l.VacancyPercent
	}
	if report.ListingsWithVacancy > 0 {
		report.MeanVacancy = round2(total / float64(report.ListingsWithVacancy))
	}

	report.VacancyByRoomType = groupVacancy(ds.Listings, func(l *models.Listing) string { return l.RoomType })
	report.VacancyByNeighbourhood = groupVacancy(ds.Listings, func(l *models.Listing) string { return l.Neighbourhood })
	return report
}

// groupVacancy averages vacancy per group, highest first.
func groupVacancy(listings []*models.Listing, key func(*models.Listing) string) []models.GroupVacancy {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, l := range listings {
		k := key(l)
		if k == "" || l.VacancyPercent == nil {
			continue
		}
		sums[k] += *l.VacancyPercent
		counts[k]++
	}

	groups := make([]models.GroupVacancy, 0, len(counts))
	for k, n := range counts {
		groups = append(groups, models.GroupVacancy{Group: k, Listings: n, MeanVacancy: round2(sums[k] / float64(n))})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].MeanVacancy != groups[j].MeanVacancy {
			return groups[i].MeanVacancy > groups[j].MeanVacancy
		}
		return groups[i].Group < groups[j].Group
	})
	return groups
}

func (s *InsightService) Print(r *models.Report) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 VACANCY REPORT: %s\033[0m\n", strings.ToUpper(r.Market))
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Dataset\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings         : \033[1m%s\033[0m\n", humanize.Comma(int64(r.TotalListings)))
	fmt.Fprintf(w, "  Reviews          : \033[1m%s\033[0m\n", humanize.Comma(int64(r.TotalReviews)))
	fmt.Fprintf(w, "  Calendar entries : \033[1m%s\033[0m\n", humanize.Comma(int64(r.TotalCalendarEntries)))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Stay Durations\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Stated in review : \033[1m%s\033[0m\n", humanize.Comma(int64(r.ReviewsWithNights)))
	fmt.Fprintf(w, "  Imputed          : \033[1m%s\033[0m\n", humanize.Comma(int64(r.ReviewsImputed)))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Vacancy\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.ListingsWithVacancy > 0 {
		fmt.Fprintf(w, "  Listings with vacancy : \033[1m%d\033[0m\n", r.ListingsWithVacancy)
		fmt.Fprintf(w, "  Mean vacancy          : \033[1;32m%.0f%%\033[0m\n", r.MeanVacancy*100)
		fmt.Fprintf(w, "  Clamped (data issues) : \033[1;31m%d\033[0m\n", r.ClampedListings)
	} else {
		fmt.Fprintf(w, "  No vacancy data available\n")
	}
	fmt.Fprintln(w)

	printGroups(w, "Vacancy by Room Type", r.VacancyByRoomType, thin)
	printGroups(w, "Vacancy by Neighbourhood (top 10)", r.VacancyByNeighbourhood, thin)

	fmt.Fprintf(w, "\033[1;33m  Stale Listings\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Low future availability : \033[1m%d\033[0m\n", r.LowAvailability)
	fmt.Fprintf(w, "  No recent reviews       : \033[1m%d\033[0m\n", r.NoRecentReviews)
	fmt.Fprintf(w, "  Likely to cancel        : \033[1m%d\033[0m\n", r.LikelyToCancel)
	fmt.Fprintf(w, "  Flagged by any          : \033[1;31m%d\033[0m\n", r.StaleListings)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printGroups(w io.Writer, title string, groups []models.GroupVacancy, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(groups) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}
	if len(groups) > topGroups {
		groups = groups[:topGroups]
	}
	for _, g := range groups {
		bar := strings.Repeat("█", int(g.MeanVacancy*20+0.5))
		fmt.Fprintf(w, "  %-28s %-20s %3.0f%% (%d)\n", truncate(g.Group, 26), bar, g.MeanVacancy*100, g.Listings)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
