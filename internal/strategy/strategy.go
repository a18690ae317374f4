// Package strategy provides the trade signal generators.
//
// A Strategy is a pure function of its inputs: it receives the full
// candle history (oldest first) plus the caller's open position, and
// emits at most one Signal per evaluation. No state is retained between
// calls. Strategies are dispatched over a closed set of IDs so that an
// unrecognized identifier is an explicit decision at the call site,
// never a silent fallback inside the package.
package strategy

import (
	"fmt"
	"time"

	"fxbot/internal/model"
)

// ID identifies a strategy variant. The set is closed: New is an
// exhaustive switch over these values.
type ID string

const (
	MACrossID  ID = "ma-cross"
	RSIBandsID ID = "rsi-bands"
	ScalperID  ID = "scalper"
)

// DefaultID is the variant callers fall back to when a stored config
// carries an identifier this build does not know.
const DefaultID = MACrossID

// ParseID maps the identifier spellings found in stored configs
// ("ma-cross" and the display name "MA Cross") to an ID. Unknown
// identifiers return an error; choosing a fallback is the caller's
// explicit decision.
func ParseID(s string) (ID, error) {
	switch s {
	case "ma-cross", "MA Cross":
		return MACrossID, nil
	case "rsi-bands", "RSI Bands":
		return RSIBandsID, nil
	case "scalper", "Scalper":
		return ScalperID, nil
	}
	return "", fmt.Errorf("strategy: unknown id %q", s)
}

// Params holds free-form strategy parameters from the settings store.
type Params map[string]any

// Float returns the first present numeric parameter among keys, or def.
// JSON-decoded numbers arrive as float64; ints are accepted for
// hand-built params in tests.
func (p Params) Float(def float64, keys ...string) float64 {
	for _, k := range keys {
		switch v := p[k].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return def
}

// Config is one stored strategy configuration, as supplied by the
// settings store.
type Config struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Enabled   bool   `json:"enabled"`
	Params    Params `json:"params"`
}

// Action is a backtest-variant decision kind.
type Action string

const (
	ActionNone  Action = ""
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionClose Action = "close"
)

// Decision is the backtest-variant output: an entry with absolute
// stop/target prices, a close instruction, or nothing.
type Decision struct {
	Action Action
	SL     float64
	TP     float64
}

// Open is the minimal view of a simulated open position that Decide
// needs.
type Open struct {
	Side model.Side
}

// Strategy is implemented by all signal generators.
//
// Evaluate is the live-engine variant: full history in, at most one
// Signal out. A nil result means no qualifying pattern (or not enough
// warm-up history), never an error.
//
// Decide is the backtest variant: entry-only crossover tests with
// absolute stop/target prices; position exits are decided separately by
// the simulator or by an explicit close decision.
type Strategy interface {
	ID() ID
	Evaluate(candles []model.Candle, pos *model.Position, now time.Time) *model.Signal
	Decide(candles []model.Candle, open *Open) Decision
}

// New constructs a strategy for the given ID. The switch is exhaustive
// over the closed ID set.
func New(id ID, params Params) (Strategy, error) {
	if params == nil {
		params = Params{}
	}
	switch id {
	case MACrossID:
		return NewMACross(params), nil
	case RSIBandsID:
		return NewRSIBands(params), nil
	case ScalperID:
		return NewScalper(params), nil
	}
	return nil, fmt.Errorf("strategy: no implementation for id %q", id)
}
