// Package stats provides statistical helpers for similarity distributions.
package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of a sample.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// Summarize computes distribution statistics for the given values.
// Returns a zero Summary for an empty sample.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s := Summary{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		P50:   Percentile(sorted, 50),
		P95:   Percentile(sorted, 95),
		Max:   sorted[len(sorted)-1],
	}
	// Sample standard deviation is undefined for a single observation
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// Percentile calculates the p-th percentile of a sorted slice.
// The slice must already be sorted in ascending order.
// Returns 0 if the slice is empty.
func Percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
