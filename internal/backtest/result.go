package backtest

import (
	"math"
	"time"

	"fxbot/internal/model"
)

// tradingDaysPerYear annualizes the per-trade Sharpe ratio.
const tradingDaysPerYear = 252

// Trade is one completed round trip in a simulation.
type Trade struct {
	ID         string     `json:"id"`
	Time       time.Time  `json:"time"`
	CloseTime  time.Time  `json:"closeTime"`
	Symbol     string     `json:"symbol"`
	Side       model.Side `json:"side"`
	EntryPrice float64    `json:"entryPrice"`
	ExitPrice  float64    `json:"exitPrice"`
	Volume     float64    `json:"volume"`
	PnL        float64    `json:"pnl"`
	Pips       float64    `json:"pips"`
	Strategy   string     `json:"strategy"`
}

// EquityPoint is one sampled point of the equity curve.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Result aggregates the statistics of one run. All ratio fields are
// well-defined for degenerate inputs: a run with no trades reports
// zeros, and a run with no losers reports the raw winning P/L sum as
// its profit factor rather than an unencodable infinity.
type Result struct {
	TotalTrades      int           `json:"totalTrades"`
	WinningTrades    int           `json:"winningTrades"`
	LosingTrades     int           `json:"losingTrades"`
	WinRate          float64       `json:"winRate"`
	ProfitFactor     float64       `json:"profitFactor"`
	TotalPnL         float64       `json:"totalPnL"`
	MaxDrawdown      float64       `json:"maxDrawdown"`
	MaxDrawdownPct   float64       `json:"maxDrawdownPct"`
	SharpeRatio      float64       `json:"sharpeRatio"`
	AvgWin           float64       `json:"avgWin"`
	AvgLoss          float64       `json:"avgLoss"`
	AvgRR            float64       `json:"avgRR"`
	LargestWin       float64       `json:"largestWin"`
	LargestLoss      float64       `json:"largestLoss"`
	AvgTradeDuration float64       `json:"avgTradeDuration"` // hours
	EquityCurve      []EquityPoint `json:"equityCurve"`
	Trades           []Trade       `json:"trades"`
}

func computeResult(trades []Trade, curve []EquityPoint, initialBalance, finalEquity, maxDD, maxDDPct float64) Result {
	r := Result{
		TotalTrades:    len(trades),
		TotalPnL:       finalEquity - initialBalance,
		MaxDrawdown:    maxDD,
		MaxDrawdownPct: maxDDPct,
		EquityCurve:    curve,
		Trades:         trades,
	}
	if curve == nil {
		r.EquityCurve = []EquityPoint{}
	}
	if trades == nil {
		r.Trades = []Trade{}
	}
	if len(trades) == 0 {
		return r
	}

	var (
		winSum, lossSum float64
		durationSum     time.Duration
	)
	for _, t := range trades {
		if t.PnL > 0 {
			r.WinningTrades++
			winSum += t.PnL
			if t.PnL > r.LargestWin {
				r.LargestWin = t.PnL
			}
		} else {
			r.LosingTrades++
			lossSum += -t.PnL
			if t.PnL < r.LargestLoss {
				r.LargestLoss = t.PnL
			}
		}
		durationSum += t.CloseTime.Sub(t.Time)
	}

	r.WinRate = float64(r.WinningTrades) / float64(len(trades)) * 100
	if lossSum > 0 {
		r.ProfitFactor = winSum / lossSum
	} else {
		r.ProfitFactor = winSum
	}
	if r.WinningTrades > 0 {
		r.AvgWin = winSum / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = lossSum / float64(r.LosingTrades)
	}
	if r.AvgLoss > 0 {
		r.AvgRR = r.AvgWin / r.AvgLoss
	}
	r.AvgTradeDuration = durationSum.Hours() / float64(len(trades))
	r.SharpeRatio = sharpe(trades)
	return r
}

// sharpe is the annualized per-trade Sharpe ratio: mean over standard
// deviation of trade P/L, scaled by sqrt of trading days per year.
// A zero-variance series yields 0.
func sharpe(trades []Trade) float64 {
	n := float64(len(trades))
	var mean float64
	for _, t := range trades {
		mean += t.PnL
	}
	mean /= n

	var variance float64
	for _, t := range trades {
		d := t.PnL - mean
		variance += d * d
	}
	variance /= n

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}
