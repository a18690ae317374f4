package model

// Order is the sized, gated trade request produced by a successful risk
// evaluation. It is the terminal artifact of the decision pipeline and
// is never re-evaluated; a broker adapter translates it to venue calls.
type Order struct {
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Volume     float64 `json:"volume"` // lots
	SLPrice    float64 `json:"slPrice"`
	TPPrice    float64 `json:"tpPrice"`
	SLPips     float64 `json:"slPips"`
	TPPips     float64 `json:"tpPips"`
	RiskAmount float64 `json:"riskAmount"` // account currency at risk
	Reason     string  `json:"reason"`     // originating signal reason
}
