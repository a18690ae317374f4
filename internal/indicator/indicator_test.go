package indicator

import (
	"math"
	"testing"
	"time"

	"fxbot/internal/model"
)

func candle(close float64) model.Candle {
	return model.Candle{
		Symbol: "EURUSD", Timeframe: "H1", Time: time.Now(),
		Open: close, High: close + 0.0005, Low: close - 0.0005, Close: close,
	}
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func TestSMA_Correctness_Period3(t *testing.T) {
	// Prices: 100, 102, 104, 103, 105
	// SMA(3) at index 2: (100+102+104)/3 = 102
	// SMA(3) at index 3: (102+104+103)/3 = 103
	// SMA(3) at index 4: (104+103+105)/3 = 104
	prices := []float64{100, 102, 104, 103, 105}
	sma := SMA(prices, 3)

	if Defined(sma[0]) || Defined(sma[1]) {
		t.Error("SMA(3): expected NaN during warm-up")
	}
	assertClose(t, "SMA(3) idx 2", sma[2], 102.0, 0.0001)
	assertClose(t, "SMA(3) idx 3", sma[3], 103.0, 0.0001)
	assertClose(t, "SMA(3) idx 4", sma[4], 104.0, 0.0001)
}

func TestSMA_RollingMatchesNaive(t *testing.T) {
	prices := []float64{1.1, 1.2, 1.15, 1.3, 1.25, 1.4, 1.35, 1.5}
	period := 4
	sma := SMA(prices, period)

	for i := period - 1; i < len(prices); i++ {
		sum := 0.0
		for k := i - period + 1; k <= i; k++ {
			sum += prices[k]
		}
		assertClose(t, "SMA naive check", sma[i], sum/float64(period), 1e-9)
	}
}

func TestEMA_SeedIsSMA(t *testing.T) {
	// EMA(3) seed at index 2 equals SMA of the first 3 prices.
	prices := []float64{10, 12, 14, 13, 15}
	ema := EMA(prices, 3)

	assertClose(t, "EMA(3) seed", ema[2], 12.0, 0.0001)
	// Recurrence with multiplier 2/(3+1)=0.5:
	// ema[3] = (13-12)*0.5 + 12 = 12.5
	// ema[4] = (15-12.5)*0.5 + 12.5 = 13.75
	assertClose(t, "EMA(3) idx 3", ema[3], 12.5, 0.0001)
	assertClose(t, "EMA(3) idx 4", ema[4], 13.75, 0.0001)
}

func TestEMA_ConstantSeries(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 1.2345
	}
	ema := EMA(prices, 9)
	for i, v := range ema {
		assertClose(t, "EMA constant", v, 1.2345, 1e-9)
		_ = i
	}
}

func TestEMA_ConvergesTowardLevelShift(t *testing.T) {
	// After a level shift the EMA must approach the new level
	// monotonically from below.
	prices := make([]float64, 60)
	for i := range prices {
		if i < 20 {
			prices[i] = 100
		} else {
			prices[i] = 110
		}
	}
	ema := EMA(prices, 9)

	if ema[25] <= 100 || ema[25] >= 110 {
		t.Errorf("EMA mid-convergence out of range: %v", ema[25])
	}
	if ema[59] < 109.5 {
		t.Errorf("EMA should approach 110, got %v", ema[59])
	}
	for i := 21; i < 60; i++ {
		if ema[i] < ema[i-1] {
			t.Fatalf("EMA should rise monotonically after shift, fell at %d", i)
		}
	}
}

func TestRSI_Bounds(t *testing.T) {
	prices := []float64{
		1.10, 1.11, 1.09, 1.12, 1.08, 1.13, 1.11, 1.14, 1.10, 1.15,
		1.12, 1.16, 1.13, 1.17, 1.14, 1.18, 1.15, 1.19, 1.16, 1.20,
	}
	rsi := RSI(prices, DefaultRSIPeriod)
	for i, v := range rsi {
		if !Defined(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Errorf("RSI[%d] = %v out of [0,100]", i, v)
		}
	}
	if Defined(rsi[13]) {
		t.Error("RSI: expected NaN before index period")
	}
	if !Defined(rsi[14]) {
		t.Error("RSI: expected defined value at index period")
	}
}

func TestRSI_AllGainsIs100(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	rsi := RSI(prices, DefaultRSIPeriod)
	assertClose(t, "RSI all gains", rsi[len(rsi)-1], 100.0, 0.0001)
}

func TestRSI_AllLossesNearZero(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100 - float64(i)
	}
	rsi := RSI(prices, DefaultRSIPeriod)
	assertClose(t, "RSI all losses", rsi[len(rsi)-1], 0.0, 0.0001)
}

func TestTrueRange_TakesGapIntoAccount(t *testing.T) {
	// Gap up: high-low = 2, but |low - prevClose| = 5 dominates.
	assertClose(t, "TR gap", TrueRange(112, 110, 105), 7.0, 0.0001)
	// No gap: plain range.
	assertClose(t, "TR range", TrueRange(106, 104, 105), 2.0, 0.0001)
}

func TestATR_ConstantRange(t *testing.T) {
	// Identical bars: every true range is High-Low = 0.0010, so the
	// ATR is exactly 0.0010 once seeded.
	candles := make([]model.Candle, 30)
	for i := range candles {
		candles[i] = candle(1.1000)
	}
	atr := ATR(candles, DefaultATRPeriod)

	if Defined(atr[12]) {
		t.Error("ATR: expected NaN before index period-1")
	}
	assertClose(t, "ATR seed", atr[13], 0.0010, 1e-9)
	assertClose(t, "ATR steady", atr[29], 0.0010, 1e-9)
}

func TestATR_HandCalculated(t *testing.T) {
	// Three bars, period 2.
	candles := []model.Candle{
		{High: 10, Low: 8, Close: 9},
		{High: 12, Low: 9, Close: 11},
		{High: 12, Low: 10, Close: 10},
	}
	// tr[0]=2, tr[1]=max(3,3,2)=3, tr[2]=max(2,1,1)=2
	// seed at idx1 = (2+3)/2 = 2.5
	// atr[2] = (2.5*1 + 2)/2 = 2.25
	atr := ATR(candles, 2)
	assertClose(t, "ATR seed", atr[1], 2.5, 0.0001)
	assertClose(t, "ATR wilder", atr[2], 2.25, 0.0001)
}

func TestBollingerBands_HandCalculated(t *testing.T) {
	// Window 2,4,6 at period 3: mean 4, population stddev
	// sqrt(((2-4)^2+(4-4)^2+(6-4)^2)/3) = sqrt(8/3).
	prices := []float64{2, 4, 6}
	b := BollingerBands(prices, 3, 2)

	sd := math.Sqrt(8.0 / 3.0)
	assertClose(t, "BB middle", b.Middle[2], 4.0, 0.0001)
	assertClose(t, "BB upper", b.Upper[2], 4.0+2*sd, 0.0001)
	assertClose(t, "BB lower", b.Lower[2], 4.0-2*sd, 0.0001)
}

func TestBollingerBands_ConstantSeriesCollapses(t *testing.T) {
	prices := make([]float64, 25)
	for i := range prices {
		prices[i] = 1.25
	}
	b := BollingerBands(prices, 20, 2)
	assertClose(t, "BB collapse upper", b.Upper[24], 1.25, 1e-9)
	assertClose(t, "BB collapse lower", b.Lower[24], 1.25, 1e-9)
}
