package model

import "time"

// SignalType classifies what a strategy wants done.
type SignalType string

const (
	SignalOpen  SignalType = "open"
	SignalClose SignalType = "close"
	SignalHold  SignalType = "hold"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the mirror side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Signal is a single trade intent emitted by a strategy evaluation.
// Side is set iff Type is SignalOpen. SLPips/TPPips are stop and target
// distances in pips; zero means the strategy left them unset.
// A Signal is produced fresh per evaluation and never mutated.
type Signal struct {
	Type       SignalType `json:"type"`
	Side       Side       `json:"side,omitempty"`
	Symbol     string     `json:"symbol"`
	Strategy   string     `json:"strategy,omitempty"`
	Reason     string     `json:"reason"`
	Confidence float64    `json:"confidence"` // [0,1]
	SLPips     float64    `json:"slPips,omitempty"`
	TPPips     float64    `json:"tpPips,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}
