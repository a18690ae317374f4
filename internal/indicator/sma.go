package indicator

// SMA calculates the Simple Moving Average of prices over period.
// Values before index period-1 are NaN. Uses a rolling sum so the
// whole series is computed in O(n).
func SMA(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if period <= 0 {
		nanPrefix(out, len(out))
		return out
	}

	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i < period-1 {
			out[i] = nan
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}
