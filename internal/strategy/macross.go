package strategy

import (
	"fmt"
	"math"
	"time"

	"fxbot/internal/indicator"
	"fxbot/internal/model"
)

// MACross trades fast/slow EMA crossovers.
//
// Live variant: buy when the fast EMA crosses above the slow EMA, sell
// on the mirror; if a position is open and a contrary crossover
// appears, a close signal is emitted instead of a new open. Stop
// distance is ATR-multiple based with the target at twice the stop.
//
// Backtest variant: the same crossover test is entry-only; an open
// position is closed by an explicit close decision when the EMAs flip.
type MACross struct {
	params Params
}

// NewMACross creates an MA-Cross strategy with the given parameters.
func NewMACross(params Params) *MACross {
	return &MACross{params: params}
}

func (s *MACross) ID() ID { return MACrossID }

func (s *MACross) Evaluate(candles []model.Candle, pos *model.Position, now time.Time) *model.Signal {
	fast := int(s.params.Float(9, "fast", "fastPeriod"))
	slow := int(s.params.Float(21, "slow", "slowPeriod"))
	atrMult := s.params.Float(1.5, "atrMultiplier", "multiplier")

	if len(candles) < slow+2 {
		return nil
	}

	closes := model.Closes(candles)
	fastMA := indicator.EMA(closes, fast)
	slowMA := indicator.EMA(closes, slow)
	atr := indicator.ATR(candles, indicator.DefaultATRPeriod)

	i := len(closes) - 1
	fastNow, fastPrev := fastMA[i], fastMA[i-1]
	slowNow, slowPrev := slowMA[i], slowMA[i-1]
	if !indicator.Defined(fastNow) || !indicator.Defined(slowNow) ||
		!indicator.Defined(fastPrev) || !indicator.Defined(slowPrev) {
		return nil
	}

	crossUp := fastPrev <= slowPrev && fastNow > slowNow
	crossDown := fastPrev >= slowPrev && fastNow < slowNow
	if !crossUp && !crossDown {
		return nil
	}

	// Contrary crossover against an open position closes it instead of
	// stacking a new entry.
	if pos != nil {
		if (crossUp && pos.Side == model.SideSell) || (crossDown && pos.Side == model.SideBuy) {
			return &model.Signal{
				Type:       model.SignalClose,
				Symbol:     candles[0].Symbol,
				Reason:     fmt.Sprintf("MA Cross CLOSE: crossover against open %s position", pos.Side),
				Confidence: 0.7,
				Timestamp:  now,
			}
		}
		return nil
	}

	slPips, tpPips := 30.0, 60.0
	if a := atr[i]; indicator.Defined(a) && a > 0 {
		slPips = math.Max(math.Round(a*atrMult*10000), 10)
		tpPips = slPips * 2
	}

	side := model.SideBuy
	reason := fmt.Sprintf("MA Cross BUY: Fast EMA(%d) crossed above Slow EMA(%d)", fast, slow)
	if crossDown {
		side = model.SideSell
		reason = fmt.Sprintf("MA Cross SELL: Fast EMA(%d) crossed below Slow EMA(%d)", fast, slow)
	}

	return &model.Signal{
		Type:       model.SignalOpen,
		Side:       side,
		Symbol:     candles[0].Symbol,
		Reason:     reason,
		Confidence: 0.7,
		SLPips:     slPips,
		TPPips:     tpPips,
		Timestamp:  now,
	}
}

func (s *MACross) Decide(candles []model.Candle, open *Open) Decision {
	fast := int(s.params.Float(10, "fastPeriod", "fast"))
	slow := int(s.params.Float(20, "slowPeriod", "slow"))
	atrMult := s.params.Float(1.5, "atrMultiplier", "multiplier")

	i := len(candles) - 1
	if i < slow+1 {
		return Decision{}
	}

	closes := model.Closes(candles)
	fastMA := indicator.EMA(closes, fast)
	slowMA := indicator.EMA(closes, slow)
	atr := indicator.ATR(candles, indicator.DefaultATRPeriod)

	fastNow, fastPrev := fastMA[i], fastMA[i-1]
	slowNow, slowPrev := slowMA[i], slowMA[i-1]
	currentATR := atr[i]
	if !indicator.Defined(currentATR) || currentATR == 0 {
		currentATR = 0.001
	}
	price := closes[i]

	if open == nil {
		if fastPrev <= slowPrev && fastNow > slowNow {
			return Decision{
				Action: ActionBuy,
				SL:     price - currentATR*atrMult,
				TP:     price + currentATR*atrMult*2,
			}
		}
		if fastPrev >= slowPrev && fastNow < slowNow {
			return Decision{
				Action: ActionSell,
				SL:     price + currentATR*atrMult,
				TP:     price - currentATR*atrMult*2,
			}
		}
		return Decision{}
	}

	if open.Side == model.SideBuy && fastNow < slowNow {
		return Decision{Action: ActionClose}
	}
	if open.Side == model.SideSell && fastNow > slowNow {
		return Decision{Action: ActionClose}
	}
	return Decision{}
}
