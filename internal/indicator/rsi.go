package indicator

// DefaultRSIPeriod is the conventional RSI lookback.
const DefaultRSIPeriod = 14

// RSI calculates the Relative Strength Index from average gain/loss over
// the trailing period of price changes. Values before index period are
// NaN. When the average loss is zero the RSI is exactly 100, never a
// division by zero.
func RSI(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out
	}

	// gains[k] / losses[k] hold the move from prices[k] to prices[k+1].
	gains := make([]float64, 0, len(prices))
	losses := make([]float64, 0, len(prices))

	out[0] = nan
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}

		if i < period {
			out[i] = nan
			continue
		}

		var avgGain, avgLoss float64
		for k := i - period; k < i; k++ {
			avgGain += gains[k]
			avgLoss += losses[k]
		}
		avgGain /= float64(period)
		avgLoss /= float64(period)

		if avgLoss == 0 {
			out[i] = 100.0
		} else {
			rs := avgGain / avgLoss
			out[i] = 100.0 - (100.0 / (1.0 + rs))
		}
	}
	return out
}
