package services

import (
	"math/rand"
	"testing"

	"airbnb-vacancy/models"
)

func intPtr(v int) *int { return &v }

func reviewsWithNights(nights ...*int) []*models.Review {
	reviews := make([]*models.Review, len(nights))
	for i, n := range nights {
		reviews[i] = &models.Review{ID: int64(i + 1), ListingID: 1, Nights: n}
	}
	return reviews
}

func TestBuildNightsDistribution(t *testing.T) {
	d := BuildNightsDistribution(reviewsWithNights(intPtr(5), intPtr(2), nil, intPtr(2)))

	if d.Total != 3 {
		t.Errorf("Total: got %d, want 3", d.Total)
	}
	if len(d.Values) != 2 || d.Values[0] != 2 || d.Values[1] != 5 {
		t.Errorf("Values: got %v, want [2 5]", d.Values)
	}
	if got := d.Frequency(2); got != 2 {
		t.Errorf("Frequency(2): got %d, want 2", got)
	}
	if got := d.Frequency(3); got != 0 {
		t.Errorf("Frequency(3): got %d, want 0", got)
	}
}

func TestSampleOnlyDrawsObservedValues(t *testing.T) {
	d := BuildNightsDistribution(reviewsWithNights(intPtr(3), intPtr(3), intPtr(7)))
	rng := rand.New(rand.NewSource(1))

	seen := map[int]int{}
	for i := 0; i < 3000; i++ {
		v := d.Sample(rng)
		if d.Frequency(v) == 0 {
			t.Fatalf("Sample: drew %d, not in distribution", v)
		}
		seen[v]++
	}
	// 3 is twice as frequent as 7
	if seen[3] <= seen[7] {
		t.Errorf("Sample weights: got 3→%d 7→%d, want 3 drawn more often", seen[3], seen[7])
	}
}

func TestImputeNightsDeterministic(t *testing.T) {
	run := func() []int {
		reviews := reviewsWithNights(intPtr(2), nil, intPtr(4), nil, nil, intPtr(9), nil)
		dist := BuildNightsDistribution(reviews)
		ImputeNights(reviews, dist, rand.New(rand.NewSource(42)))
		out := make([]int, len(reviews))
		for i, r := range reviews {
			out[i] = *r.DaysOccupied
		}
		return out
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed: run 1 %v, run 2 %v", first, second)
		}
	}
}

func TestImputeNightsPrecedence(t *testing.T) {
	reviews := reviewsWithNights(intPtr(3), nil, nil)
	dist := BuildNightsDistribution(reviewsWithNights(intPtr(10)))

	imputed := ImputeNights(reviews, dist, rand.New(rand.NewSource(7)))
	if imputed != 2 {
		t.Errorf("imputed: got %d, want 2", imputed)
	}

	if reviews[0].EstimatedNights != nil {
		t.Errorf("review with stated nights: EstimatedNights got %d, want nil", *reviews[0].EstimatedNights)
	}
	if got := *reviews[0].DaysOccupied; got != 3 {
		t.Errorf("stated DaysOccupied: got %d, want 3", got)
	}
	for _, r := range reviews[1:] {
		if r.EstimatedNights == nil || *r.EstimatedNights != 10 {
			t.Fatalf("review %d: EstimatedNights got %v, want 10", r.ID, r.EstimatedNights)
		}
		if r.DaysOccupied == nil || *r.DaysOccupied != 10 {
			t.Errorf("review %d: DaysOccupied got %v, want 10", r.ID, r.DaysOccupied)
		}
	}
}

func TestImputeNightsEmptyDistribution(t *testing.T) {
	reviews := reviewsWithNights(nil, nil)
	imputed := ImputeNights(reviews, NightsDistribution{}, rand.New(rand.NewSource(1)))

	if imputed != 0 {
		t.Errorf("imputed: got %d, want 0", imputed)
	}
	for _, r := range reviews {
		if r.DaysOccupied != nil {
			t.Errorf("review %d: DaysOccupied got %d, want nil", r.ID, *r.DaysOccupied)
		}
	}
}
