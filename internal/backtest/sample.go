package backtest

import (
	"math"
	"math/rand"
	"time"

	"fxbot/internal/model"
)

// timeframeInterval maps a timeframe code to its bar duration. Unknown
// codes fall back to one hour.
func timeframeInterval(tf string) time.Duration {
	switch tf {
	case "M1":
		return time.Minute
	case "M5":
		return 5 * time.Minute
	case "M15":
		return 15 * time.Minute
	case "M30":
		return 30 * time.Minute
	case "H1":
		return time.Hour
	case "H4":
		return 4 * time.Hour
	case "D1":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// GenerateSampleCandles synthesizes a candle series for runs with no
// stored history: a slow sinusoidal trend around 1.1000 with random
// bar-level noise. Deterministic for a fixed seed.
func GenerateSampleCandles(symbol, timeframe string, start, end time.Time, seed int64) []model.Candle {
	interval := timeframeInterval(timeframe)
	rng := rand.New(rand.NewSource(seed))

	var candles []model.Candle
	price := 1.1000
	i := 0
	for t := start; t.Before(end); t = t.Add(interval) {
		trend := math.Sin(float64(i)/50) * 0.002
		noise := (rng.Float64() - 0.5) * 0.0010

		open := price
		close := open + trend + noise
		high := math.Max(open, close) + rng.Float64()*0.0005
		low := math.Min(open, close) - rng.Float64()*0.0005

		candles = append(candles, model.Candle{
			Symbol:    symbol,
			Timeframe: timeframe,
			Time:      t,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    float64(100 + rng.Intn(900)),
		})
		price = close
		i++
	}
	return candles
}
