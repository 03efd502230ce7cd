package stats

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	values := []float64{0.9, 0.6, 0.8, 0.7, 1.0}
	s := Summarize(values)

	if s.Count != 5 {
		t.Errorf("Count = %d, want 5", s.Count)
	}
	if math.Abs(s.Mean-0.8) > 1e-9 {
		t.Errorf("Mean = %f, want 0.8", s.Mean)
	}
	if s.P50 != 0.8 {
		t.Errorf("P50 = %f, want 0.8", s.P50)
	}
	if s.P95 != 1.0 {
		t.Errorf("P95 = %f, want 1.0", s.P95)
	}
	if s.Max != 1.0 {
		t.Errorf("Max = %f, want 1.0", s.Max)
	}
	if s.StdDev <= 0 {
		t.Errorf("StdDev = %f, want > 0", s.StdDev)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", s)
	}
}

func TestSummarizeSingle(t *testing.T) {
	s := Summarize([]float64{0.75})
	if s.Count != 1 || s.Mean != 0.75 || s.Max != 0.75 {
		t.Errorf("Summarize single = %+v", s)
	}
	if s.StdDev != 0 {
		t.Errorf("StdDev of single sample = %f, want 0", s.StdDev)
	}
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	values := []float64{0.9, 0.1, 0.5}
	Summarize(values)
	if values[0] != 0.9 || values[1] != 0.1 || values[2] != 0.5 {
		t.Errorf("input mutated: %v", values)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    int
		want float64
	}{
		{0, 1},
		{50, 6},
		{95, 10},
		{100, 10},
	}

	for _, tt := range tests {
		if got := Percentile(sorted, tt.p); got != tt.want {
			t.Errorf("Percentile(%d) = %f, want %f", tt.p, got, tt.want)
		}
	}
}

func TestPercentileEmpty(t *testing.T) {
	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("Percentile(nil, 50) = %f, want 0", got)
	}
}
