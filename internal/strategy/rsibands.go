package strategy

import (
	"fmt"
	"time"

	"fxbot/internal/indicator"
	"fxbot/internal/model"
)

// RSIBands trades RSI crossings back out of the oversold/overbought
// bands: buy when the RSI climbs back above oversold, sell when it
// drops back below overbought. A same-direction open position blocks
// re-entry.
type RSIBands struct {
	params Params
}

// NewRSIBands creates an RSI-Bands strategy with the given parameters.
func NewRSIBands(params Params) *RSIBands {
	return &RSIBands{params: params}
}

func (s *RSIBands) ID() ID { return RSIBandsID }

func (s *RSIBands) Evaluate(candles []model.Candle, pos *model.Position, now time.Time) *model.Signal {
	period := int(s.params.Float(indicator.DefaultRSIPeriod, "period", "rsiPeriod"))
	overbought := s.params.Float(70, "overbought")
	oversold := s.params.Float(30, "oversold")

	if len(candles) < period+2 {
		return nil
	}

	rsi := indicator.RSI(model.Closes(candles), period)
	i := len(rsi) - 1
	rsiNow, rsiPrev := rsi[i], rsi[i-1]
	if !indicator.Defined(rsiNow) || !indicator.Defined(rsiPrev) {
		return nil
	}

	var side model.Side
	var reason string
	switch {
	case rsiPrev < oversold && rsiNow >= oversold:
		side = model.SideBuy
		reason = fmt.Sprintf("RSI BUY: RSI(%d) crossed above oversold level %g", period, oversold)
	case rsiPrev > overbought && rsiNow <= overbought:
		side = model.SideSell
		reason = fmt.Sprintf("RSI SELL: RSI(%d) crossed below overbought level %g", period, overbought)
	default:
		return nil
	}

	// No re-entry while a same-direction position is open.
	if pos != nil && pos.Side == side {
		return nil
	}

	return &model.Signal{
		Type:       model.SignalOpen,
		Side:       side,
		Symbol:     candles[0].Symbol,
		Reason:     reason,
		Confidence: 0.65,
		SLPips:     25,
		TPPips:     50,
		Timestamp:  now,
	}
}

func (s *RSIBands) Decide(candles []model.Candle, open *Open) Decision {
	period := int(s.params.Float(indicator.DefaultRSIPeriod, "rsiPeriod", "period"))
	oversold := s.params.Float(30, "oversold")
	overbought := s.params.Float(70, "overbought")
	atrMult := s.params.Float(1.5, "atrMultiplier", "multiplier")

	i := len(candles) - 1
	if i < period+1 {
		return Decision{}
	}

	rsi := indicator.RSI(model.Closes(candles), period)
	atr := indicator.ATR(candles, indicator.DefaultATRPeriod)

	rsiNow, rsiPrev := rsi[i], rsi[i-1]
	if !indicator.Defined(rsiNow) || !indicator.Defined(rsiPrev) {
		return Decision{}
	}
	currentATR := atr[i]
	if !indicator.Defined(currentATR) || currentATR == 0 {
		currentATR = 0.001
	}
	price := candles[i].Close

	if open == nil {
		if rsiPrev < oversold && rsiNow >= oversold {
			return Decision{
				Action: ActionBuy,
				SL:     price - currentATR*atrMult,
				TP:     price + currentATR*atrMult*2,
			}
		}
		if rsiPrev > overbought && rsiNow <= overbought {
			return Decision{
				Action: ActionSell,
				SL:     price + currentATR*atrMult,
				TP:     price - currentATR*atrMult*2,
			}
		}
		return Decision{}
	}

	if open.Side == model.SideBuy && rsiNow >= overbought {
		return Decision{Action: ActionClose}
	}
	if open.Side == model.SideSell && rsiNow <= oversold {
		return Decision{Action: ActionClose}
	}
	return Decision{}
}
