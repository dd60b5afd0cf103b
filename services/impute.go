package services

import (
	"math/rand"
	"sort"

	"airbnb-vacancy/models"
)

// NightsDistribution is the empirical distribution of extracted stay
// lengths: Counts[i] reviews stated Values[i] nights. Values are ascending.
type NightsDistribution struct {
	Values []int
	Counts []int
	Total  int
}

// BuildNightsDistribution counts the known Nights across reviews.
func BuildNightsDistribution(reviews []*models.Review) NightsDistribution {
	freq := make(map[int]int)
	for _, r := range reviews {
		if r.Nights != nil {
			freq[*r.Nights]++
		}
	}

	d := NightsDistribution{Values: make([]int, 0, len(freq))}
	for v := range freq {
		d.Values = append(d.Values, v)
	}
	sort.Ints(d.Values)

	d.Counts = make([]int, len(d.Values))
	for i, v := range d.Values {
		d.Counts[i] = freq[v]
		d.Total += freq[v]
	}
	return d
}

// Empty reports whether no known values were observed.
func (d NightsDistribution) Empty() bool { return d.Total == 0 }

// Frequency returns how often v was observed.
func (d NightsDistribution) Frequency(v int) int {
	i := sort.SearchInts(d.Values, v)
	if i < len(d.Values) && d.Values[i] == v {
		return d.Counts[i]
	}
	return 0
}

// Sample draws a value with probability proportional to its frequency.
// It panics on an empty distribution.
func (d NightsDistribution) Sample(rng *rand.Rand) int {
	target := rng.Intn(d.Total)
	for i, c := range d.Counts {
		if target < c {
			return d.Values[i]
		}
		target -= c
	}
	return d.Values[len(d.Values)-1]
}

// ImputeNights fills EstimatedNights for every review without Nights by
// sampling dist, then resolves DaysOccupied with extracted values taking
// precedence. It returns the number of imputed reviews. Reviews are visited
// in slice order so a given seed always yields the same draws.
func ImputeNights(reviews []*models.Review, dist NightsDistribution, rng *rand.Rand) int {
	imputed := 0
	for _, r := range reviews {
		switch {
		case r.Nights != nil:
			n := *r.Nights
			r.EstimatedNights = nil
			r.DaysOccupied = &n
		case !dist.Empty():
			n := dist.Sample(rng)
			r.EstimatedNights = &n
			occupied := n
			r.DaysOccupied = &occupied
			imputed++
		default:
			r.EstimatedNights = nil
			r.DaysOccupied = nil
		}
	}
	return imputed
}
