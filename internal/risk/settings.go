// Package risk gates trade signals and sizes the resulting orders.
//
// Evaluate is a pure function of its inputs: signal, account snapshot,
// open positions, settings, daily stats and market microstructure go
// in; an approve/reject decision with a sized order comes out. Gating
// failures are data (Approved=false with a reason), never errors.
package risk

// SessionFilter restricts trading to named global session windows.
type SessionFilter struct {
	Enabled         bool `json:"enabled"`
	AllowLondon     bool `json:"allowLondon"`
	AllowNewYork    bool `json:"allowNewYork"`
	AllowTokyo      bool `json:"allowTokyo"`
	AllowSydney     bool `json:"allowSydney"`
	BlockWeekends   bool `json:"blockWeekends"`
	BlockNewsEvents bool `json:"blockNewsEvents"`
}

// Settings holds the configurable risk thresholds. The schema follows
// the v2 risk engine: weekly drawdown, trades/day and the session
// filter are part of the canonical shape.
type Settings struct {
	MaxDailyDrawdownPct  float64       `json:"maxDailyDrawdownPct"`
	MaxWeeklyDrawdownPct float64       `json:"maxWeeklyDrawdownPct"`
	DefaultRiskPct       float64       `json:"defaultRiskPct"`
	MaxConcurrentTrades  int           `json:"maxConcurrentTrades"`
	MaxTradesPerDay      int           `json:"maxTradesPerDay"`
	SpreadFilterPips     float64       `json:"spreadFilterPips"`
	NewsFilterMinutes    int           `json:"newsFilterMinutes"`
	HardStopLoss         bool          `json:"hardStopLoss"`
	AutoBreakeven        bool          `json:"autoBreakeven"`
	AutoBreakevenPips    float64       `json:"autoBreakevenPips"`
	TrailingStop         bool          `json:"trailingStop"`
	TrailingStopPips     float64       `json:"trailingStopPips"`
	SessionFilter        SessionFilter `json:"sessionFilter"`
}

// DefaultSettings returns conservative defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxDailyDrawdownPct:  5,
		MaxWeeklyDrawdownPct: 10,
		DefaultRiskPct:       1,
		MaxConcurrentTrades:  3,
		MaxTradesPerDay:      10,
		SpreadFilterPips:     3,
		NewsFilterMinutes:    30,
		HardStopLoss:         true,
		AutoBreakevenPips:    20,
		TrailingStopPips:     15,
		SessionFilter: SessionFilter{
			AllowLondon:   true,
			AllowNewYork:  true,
			AllowTokyo:    true,
			AllowSydney:   true,
			BlockWeekends: true,
		},
	}
}

// DailyStats is the rolling per-day account state. It is mutated
// externally (once per accepted trade and at day/week rollover) and
// read-only here.
type DailyStats struct {
	TradesOpened     int     `json:"tradesOpened"`
	StartBalance     float64 `json:"startBalance"`
	LowestEquity     float64 `json:"lowestEquity"`
	WeekStartBalance float64 `json:"weekStartBalance"`
}
