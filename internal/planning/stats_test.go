package planning

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestReducers(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		mean       float64
		sampleStd  float64
		populStd   float64
		coeffOfVar float64
	}{
		{name: "empty", values: nil},
		{name: "single", values: []float64{7}, mean: 7, coeffOfVar: 0},
		{
			name:       "textbook",
			values:     []float64{2, 4, 4, 4, 5, 5, 7, 9},
			mean:       5,
			sampleStd:  math.Sqrt(32.0 / 7.0),
			populStd:   2,
			coeffOfVar: math.Sqrt(32.0/7.0) / 5 * 100,
		},
		{name: "non-positive mean", values: []float64{-3, 1, 2}, mean: 0, sampleStd: math.Sqrt(14.0 / 2.0), populStd: math.Sqrt(14.0 / 3.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.values); !approxEqual(got, tt.mean, 1e-9) {
				t.Errorf("Mean() = %v, want %v", got, tt.mean)
			}
			if got := SampleStdDev(tt.values); !approxEqual(got, tt.sampleStd, 1e-9) {
				t.Errorf("SampleStdDev() = %v, want %v", got, tt.sampleStd)
			}
			if got := PopulationStdDev(tt.values); !approxEqual(got, tt.populStd, 1e-9) {
				t.Errorf("PopulationStdDev() = %v, want %v", got, tt.populStd)
			}
			if got := CoefficientOfVariation(tt.values); !approxEqual(got, tt.coeffOfVar, 1e-9) {
				t.Errorf("CoefficientOfVariation() = %v, want %v", got, tt.coeffOfVar)
			}
		})
	}
}

func TestCoefficientOfVariationIsScaleInvariant(t *testing.T) {
	base := []float64{10, 12, 8, 15, 11, 9}
	want := CoefficientOfVariation(base)

	for _, factor := range []float64{0.5, 3.7, 1000} {
		scaled := make([]float64, len(base))
		for i, v := range base {
			scaled[i] = v * factor
		}
		if got := CoefficientOfVariation(scaled); !approxEqual(got, want, 1e-9) {
			t.Errorf("factor %v: CV = %v, want %v", factor, got, want)
		}
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		in     float64
		places int32
		want   float64
	}{
		{2.345, 2, 2.35},
		{-2.345, 2, -2.35},
		{316.2277660168, 2, 316.23},
		{43.65489, 1, 43.7},
		{10, 2, 10},
	}
	for _, tt := range tests {
		if got := RoundTo(tt.in, tt.places); got != tt.want {
			t.Errorf("RoundTo(%v, %d) = %v, want %v", tt.in, tt.places, got, tt.want)
		}
	}

	if got := RoundTo(math.Inf(1), 2); !math.IsInf(got, 1) {
		t.Errorf("RoundTo(+Inf) = %v, want +Inf", got)
	}
}
