// Package backtest replays historical candles through a strategy and
// produces aggregate run statistics.
//
// One Run is a pure function of its config and candle series. Candles
// must be ordered by strictly increasing timestamp; the simulator is
// history-dependent and gives wrong results if fed out of order.
// Cancellation is cooperative: the context is checked between bar
// iterations and a cancelled run yields no result.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fxbot/internal/model"
	"fxbot/internal/strategy"
)

// warmUpBars is the number of leading candles skipped so indicators
// stabilize before the first evaluation.
const warmUpBars = 50

// demoLots is the fixed lot size used for simulated fills.
const demoLots = 0.1

// equitySampleEvery bounds output size: the equity curve keeps one
// point per this many bars.
const equitySampleEvery = 10

// pipUnit converts spread/slippage pips into price for the simulated
// 4-decimal fills.
const pipUnit = 0.0001

// Config describes one backtest run.
type Config struct {
	StrategyID     string          `json:"strategyId"`
	Symbol         string          `json:"symbol"`
	Timeframe      string          `json:"timeframe"`
	StartDate      string          `json:"startDate"`
	EndDate        string          `json:"endDate"`
	InitialBalance float64         `json:"initialBalance"`
	Spread         float64         `json:"spread"`   // pips
	Slippage       float64         `json:"slippage"` // pips
	Params         strategy.Params `json:"params"`
}

// simPosition is the simulator's open trade.
type simPosition struct {
	side       model.Side
	entryPrice float64
	entryTime  time.Time
	volume     float64
	sl         float64
	tp         float64
}

// Run simulates the configured strategy over candles and returns the
// aggregate result. An unrecognized strategy id falls back to the
// default variant; the fallback is logged, not silent.
func Run(ctx context.Context, cfg Config, candles []model.Candle) (*Result, error) {
	id, err := strategy.ParseID(cfg.StrategyID)
	if err != nil {
		slog.Warn("backtest: unknown strategy id, using default",
			slog.String("strategyId", cfg.StrategyID),
			slog.String("default", string(strategy.DefaultID)))
		id = strategy.DefaultID
	}
	strat, err := strategy.New(id, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("backtest: initial balance must be positive, got %g", cfg.InitialBalance)
	}

	var (
		trades      []Trade
		equityCurve []EquityPoint
		pos         *simPosition
		equity      = cfg.InitialBalance
		tracker     = newEquityTracker(cfg.InitialBalance)
		tradeSeq    int
	)

	closeTrade := func(exitPrice float64, exitTime time.Time) {
		var pips float64
		if pos.side == model.SideBuy {
			pips = (exitPrice - pos.entryPrice) * 10000
		} else {
			pips = (pos.entryPrice - exitPrice) * 10000
		}
		pnl := pips * pos.volume * 10 // ≈$10 per pip per lot

		tradeSeq++
		trades = append(trades, Trade{
			ID:         fmt.Sprintf("trade-%d", tradeSeq),
			Time:       pos.entryTime,
			CloseTime:  exitTime,
			Symbol:     cfg.Symbol,
			Side:       pos.side,
			EntryPrice: pos.entryPrice,
			ExitPrice:  exitPrice,
			Volume:     pos.volume,
			PnL:        pnl,
			Pips:       pips,
			Strategy:   cfg.StrategyID,
		})
		equity += pnl
		pos = nil
	}

	for i := warmUpBars; i < len(candles); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		cur := candles[i]

		// Stop/target touches resolve before any new evaluation. When
		// both could trigger on the same bar the stop wins: intrabar
		// ordering is unknowable from OHLC, so the pessimistic fill is
		// taken.
		if pos != nil {
			if pos.side == model.SideBuy {
				if cur.Low <= pos.sl {
					closeTrade(pos.sl-cfg.Slippage*pipUnit, cur.Time)
				} else if cur.High >= pos.tp {
					closeTrade(pos.tp, cur.Time)
				}
			} else {
				if cur.High >= pos.sl {
					closeTrade(pos.sl+cfg.Slippage*pipUnit, cur.Time)
				} else if cur.Low <= pos.tp {
					closeTrade(pos.tp, cur.Time)
				}
			}
		}

		var open *strategy.Open
		if pos != nil {
			open = &strategy.Open{Side: pos.side}
		}
		decision := strat.Decide(candles[:i+1], open)

		switch {
		case decision.Action == strategy.ActionBuy && pos == nil:
			entry := cur.Close + cfg.Spread*pipUnit + cfg.Slippage*pipUnit
			pos = &simPosition{
				side:       model.SideBuy,
				entryPrice: entry,
				entryTime:  cur.Time,
				volume:     demoLots,
				sl:         fallbackPrice(decision.SL, entry-0.002),
				tp:         fallbackPrice(decision.TP, entry+0.004),
			}
		case decision.Action == strategy.ActionSell && pos == nil:
			entry := cur.Close - cfg.Spread*pipUnit - cfg.Slippage*pipUnit
			pos = &simPosition{
				side:       model.SideSell,
				entryPrice: entry,
				entryTime:  cur.Time,
				volume:     demoLots,
				sl:         fallbackPrice(decision.SL, entry+0.002),
				tp:         fallbackPrice(decision.TP, entry-0.004),
			}
		case decision.Action == strategy.ActionClose && pos != nil:
			// Strategy-driven exits fill at the bar close, no slippage.
			closeTrade(cur.Close, cur.Time)
		}

		tracker.observe(equity)

		if i%equitySampleEvery == 0 {
			equityCurve = append(equityCurve, EquityPoint{Time: cur.Time, Equity: equity})
		}
	}

	result := computeResult(trades, equityCurve, cfg.InitialBalance, equity, tracker.maxDD, tracker.maxDDPct)
	return &result, nil
}

// equityTracker follows the running equity peak and retains the
// largest absolute and percentage drawdown observed.
type equityTracker struct {
	peak     float64
	maxDD    float64
	maxDDPct float64
}

func newEquityTracker(initial float64) *equityTracker {
	return &equityTracker{peak: initial}
}

func (t *equityTracker) observe(equity float64) {
	if equity > t.peak {
		t.peak = equity
	}
	if dd := t.peak - equity; dd > t.maxDD {
		t.maxDD = dd
	}
	if ddPct := (t.peak - equity) / t.peak * 100; ddPct > t.maxDDPct {
		t.maxDDPct = ddPct
	}
}

// fallbackPrice returns v, or fb when the strategy left the level
// unset.
func fallbackPrice(v, fb float64) float64 {
	if v == 0 {
		return fb
	}
	return v
}
