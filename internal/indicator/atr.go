package indicator

import (
	"math"

	"fxbot/internal/model"
)

// DefaultATRPeriod is the conventional ATR lookback.
const DefaultATRPeriod = 14

// TrueRange returns the true range of a bar given the previous close:
// max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if hc := math.Abs(high - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

// ATR calculates the Average True Range with Wilder smoothing. The seed
// at index period-1 is the mean of the first period true ranges, then
// atr[i] = (atr[i-1]*(period-1) + tr[i]) / period. Values before index
// period-1 are NaN.
func ATR(candles []model.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	if len(candles) == 0 {
		return out
	}

	tr := make([]float64, len(candles))
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		tr[i] = TrueRange(candles[i].High, candles[i].Low, candles[i-1].Close)
	}

	seedSum := 0.0
	for i := range candles {
		if i < period-1 {
			out[i] = nan
			seedSum += tr[i]
			continue
		}
		if i == period-1 {
			seedSum += tr[i]
			out[i] = seedSum / float64(period)
			continue
		}
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return out
}
