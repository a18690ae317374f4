package indicator

// EMA calculates the Exponential Moving Average of prices over period
// with multiplier 2/(period+1). The seed at index period-1 is the SMA
// of the first period prices; earlier indices carry the cumulative mean
// of the prices seen so far rather than NaN, so strategies can reference
// them during warm-up. Values before index period-1 must not be used
// for signal generation.
func EMA(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out
	}

	multiplier := 2.0 / float64(period+1)
	sum := 0.0
	for i, p := range prices {
		if i < period {
			// Warm-up: progressive cumulative mean, becomes the SMA
			// seed exactly at index period-1.
			sum += p
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = (p-out[i-1])*multiplier + out[i-1]
	}
	return out
}
