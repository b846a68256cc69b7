package planning

import (
	"math"

	"github.com/shopspring/decimal"
)

// Mean returns the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev returns the Bessel-corrected standard deviation (n-1 denominator).
// Returns 0 when fewer than two values are available.
func SampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	return math.Sqrt(sumSquaredDeviations(values) / float64(n-1))
}

// PopulationStdDev returns the standard deviation with an n denominator.
func PopulationStdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	return math.Sqrt(sumSquaredDeviations(values) / float64(n))
}

// CoefficientOfVariation returns SampleStdDev/Mean*100, or 0 when the mean is not positive.
func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	if mean <= 0 {
		return 0
	}
	return SampleStdDev(values) / mean * 100
}

func sumSquaredDeviations(values []float64) float64 {
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// RoundTo rounds v half away from zero to the given number of decimal places.
// NaN and infinite values are returned unchanged.
func RoundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// positiveOrZero maps NaN, infinities and negatives to 0.
func positiveOrZero(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}
