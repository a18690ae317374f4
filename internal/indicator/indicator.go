// Package indicator provides technical indicator calculations over price
// and candle series.
//
// Every function takes an ordered series (oldest first) and returns a
// series of equal length. Indices before the warm-up point hold NaN,
// except EMA which emits progressively-averaged warm-up values so that
// callers can still reference early bars; values before index period-1
// are unreliable for signal generation either way.
package indicator

import "math"

// nan is the undefined marker used for warm-up indices.
var nan = math.NaN()

// nanPrefix fills out[0:n] with NaN.
func nanPrefix(out []float64, n int) {
	for i := 0; i < n && i < len(out); i++ {
		out[i] = nan
	}
}

// Defined reports whether an indicator value is usable (not NaN).
func Defined(v float64) bool {
	return !math.IsNaN(v)
}
