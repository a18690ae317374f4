package strategy

import (
	"math"
	"time"

	"fxbot/internal/indicator"
	"fxbot/internal/model"
)

// Scalper trades Bollinger Band bounces: buy when the previous close
// sat at or below the previous lower band and the current close comes
// back above the lower band, mirror at the upper band. The target is
// the band middle; the stop is an ATR multiple.
type Scalper struct {
	params Params
}

// NewScalper creates a Bollinger-bounce scalper with the given
// parameters.
func NewScalper(params Params) *Scalper {
	return &Scalper{params: params}
}

func (s *Scalper) ID() ID { return ScalperID }

func (s *Scalper) Evaluate(candles []model.Candle, pos *model.Position, now time.Time) *model.Signal {
	bbPeriod := int(s.params.Float(20, "bbPeriod"))
	bbStdDev := s.params.Float(2, "bbStdDev")
	atrPeriod := int(s.params.Float(indicator.DefaultATRPeriod, "atrPeriod"))
	atrMult := s.params.Float(1.5, "multiplier", "atrMultiplier")

	if len(candles) < bbPeriod+2 {
		return nil
	}

	closes := model.Closes(candles)
	bb := indicator.BollingerBands(closes, bbPeriod, bbStdDev)
	atr := indicator.ATR(candles, atrPeriod)

	i := len(closes) - 1
	price, prevPrice := closes[i], closes[i-1]
	currentATR := atr[i]
	if !indicator.Defined(currentATR) || !indicator.Defined(bb.Upper[i]) ||
		!indicator.Defined(bb.Lower[i]) || !indicator.Defined(bb.Upper[i-1]) ||
		!indicator.Defined(bb.Lower[i-1]) {
		return nil
	}

	var side model.Side
	var reason string
	switch {
	case prevPrice <= bb.Lower[i-1] && price > bb.Lower[i]:
		side = model.SideBuy
		reason = "Scalper BUY: Price bounced off lower Bollinger Band"
	case prevPrice >= bb.Upper[i-1] && price < bb.Upper[i]:
		side = model.SideSell
		reason = "Scalper SELL: Price bounced off upper Bollinger Band"
	default:
		return nil
	}

	slPips := math.Max(math.Round(currentATR*atrMult*10000), 10)
	// Target the band middle; if the middle sits on the close, fall back
	// to twice the stop distance.
	tpPips := math.Round(math.Abs(bb.Middle[i]-price) * 10000)
	if tpPips < 20 {
		tpPips = math.Max(slPips*2, 20)
	}

	return &model.Signal{
		Type:       model.SignalOpen,
		Side:       side,
		Symbol:     candles[0].Symbol,
		Reason:     reason,
		Confidence: 0.6,
		SLPips:     slPips,
		TPPips:     tpPips,
		Timestamp:  now,
	}
}

func (s *Scalper) Decide(candles []model.Candle, open *Open) Decision {
	bbPeriod := int(s.params.Float(20, "bbPeriod"))
	bbStdDev := s.params.Float(2, "bbStdDev")
	atrPeriod := int(s.params.Float(indicator.DefaultATRPeriod, "atrPeriod"))

	i := len(candles) - 1
	if i < bbPeriod+1 {
		return Decision{}
	}

	closes := model.Closes(candles)
	bb := indicator.BollingerBands(closes, bbPeriod, bbStdDev)
	atr := indicator.ATR(candles, atrPeriod)

	price, prevPrice := closes[i], closes[i-1]
	currentATR := atr[i]
	if !indicator.Defined(currentATR) || currentATR == 0 {
		currentATR = 0.001
	}

	if open != nil {
		return Decision{}
	}

	if prevPrice <= bb.Lower[i-1] && price > bb.Lower[i] {
		return Decision{
			Action: ActionBuy,
			SL:     price - currentATR*1.5,
			TP:     bb.Middle[i],
		}
	}
	if prevPrice >= bb.Upper[i-1] && price < bb.Upper[i] {
		return Decision{
			Action: ActionSell,
			SL:     price + currentATR*1.5,
			TP:     bb.Middle[i],
		}
	}
	return Decision{}
}
