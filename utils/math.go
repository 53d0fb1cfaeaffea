// Package utils contains small numeric, parallelism and configuration helpers shared by
// the fitting and imaging packages.
package utils

import (
	"math"
)

// MaxInt returns the larger of two ints.
func MaxInt(a, b int) int {
	if a < b {
		return b
	}
	return a
}

// MinInt returns the smaller of two ints.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ClampF64 restricts n to the interval [low, high].
func ClampF64(n, low, high float64) float64 {
	if n < low {
		return low
	}
	if n > high {
		return high
	}
	return n
}

// Square returns n*n. Math.pow( x, 2 ) is slow, this is faster.
func Square(n float64) float64 {
	return n * n
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CeilDiv returns ceil(n / d) as an int for a positive real divisor. Values that land within
// float noise of an integer are not bumped to the next integer.
func CeilDiv(n int, d float64) int {
	const eps = 1e-9
	q := float64(n) / d
	r := math.Round(q)
	if math.Abs(q-r) < eps {
		return int(r)
	}
	return int(math.Ceil(q))
}
