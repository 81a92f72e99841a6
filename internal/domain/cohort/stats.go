package cohort

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0..100) of sorted using linear
// interpolation between the two closest ranks, rank = p/100·(n−1).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Summarize computes n, median and quartiles of values. values is not
// modified.
func Summarize(values []float64) GroupStats {
	if len(values) == 0 {
		return GroupStats{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	median := Percentile(sorted, 50)
	p25 := Percentile(sorted, 25)
	p75 := Percentile(sorted, 75)
	return GroupStats{
		N:      len(sorted),
		Median: &median,
		P25:    &p25,
		P75:    &p75,
	}
}

// SummarizeGroups summarises each cohort's values. Cohorts without values are
// omitted.
func SummarizeGroups(groups map[string][]float64) map[string]GroupStats {
	out := make(map[string]GroupStats, len(groups))
	for cohort, values := range groups {
		if len(values) == 0 {
			continue
		}
		out[cohort] = Summarize(values)
	}
	return out
}
