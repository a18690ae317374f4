package indicator

import "math"

// Bands holds the three Bollinger Band series. Middle is SMA(period);
// Upper/Lower are Middle ± multiplier·populationStdDev of the trailing
// window. All three are NaN before index period-1.
type Bands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// BollingerBands calculates Bollinger Bands over prices.
func BollingerBands(prices []float64, period int, stdDevMultiplier float64) Bands {
	middle := SMA(prices, period)
	upper := make([]float64, len(prices))
	lower := make([]float64, len(prices))

	for i := range prices {
		if i < period-1 {
			upper[i] = nan
			lower[i] = nan
			continue
		}
		mean := middle[i]
		variance := 0.0
		for k := i - period + 1; k <= i; k++ {
			d := prices[k] - mean
			variance += d * d
		}
		variance /= float64(period)
		band := stdDevMultiplier * math.Sqrt(variance)
		upper[i] = mean + band
		lower[i] = mean - band
	}

	return Bands{Middle: middle, Upper: upper, Lower: lower}
}
