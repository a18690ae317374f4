package risk

import "math"

// minLots is the smallest tradable volume; lot steps are 0.01.
const minLots = 0.01

// PositionSize computes the lot volume that puts riskPct percent of
// equity at risk over a stop distance of slPips. Lots are floored to
// the nearest 0.01 with a 0.01 minimum; the returned riskAmount is the
// actual amount at risk after rounding.
func PositionSize(equity, riskPct, slPips float64, symbol string) (lots, riskAmount float64) {
	target := equity * (riskPct / 100)
	pipValue := PipValue(symbol, 1)

	lots = target / (slPips * pipValue)
	lots = math.Max(minLots, math.Floor(lots*100)/100)
	riskAmount = lots * slPips * pipValue
	return lots, riskAmount
}

// estimatedMargin approximates the margin a position requires,
// assuming 1:100 leverage on 100,000-unit lots.
func estimatedMargin(lots, price float64) float64 {
	return lots * price * 100000 / 100
}
