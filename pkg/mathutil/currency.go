// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/mortgage-calendar/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// Truncate drops the fractional part of a value, yielding whole currency units.
func Truncate(val float64) int64 {
	return int64(math.Trunc(val))
}

// IsZero checks if a value is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.CurrencyTolerance
}

// IsPositive checks if a value is positive (greater than tolerance)
func IsPositive(val float64) bool {
	return val > constants.CurrencyTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// IsFinite reports whether val is neither NaN nor an infinity.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// MeanNonZero returns the arithmetic mean of the values that are not exactly zero.
// It returns 0 when every value is zero or the slice is empty.
func MeanNonZero(values []float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v == 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
