package cityblocks

import (
	"math"
)

// roundToBase rounds x to the nearest multiple of base, halves go to even
// (ie. 125 -> 100, 175 -> 200 for base 50)
func roundToBase(x, base int64) int64 {
	return base * int64(math.RoundToEven(float64(x)/float64(base)))
}

// maxint returns the highest of two ints
func maxint(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// minint returns the lowest of two ints
func minint(a, b int) int {
	if a < b {
		return a
	}
	return b
}
