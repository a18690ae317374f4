package model

import "time"

// Position is an open trade owned by the caller (broker/session state).
// The core only reads positions to evaluate risk.
type Position struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Side         Side      `json:"side"`
	Volume       float64   `json:"volume"` // lots
	OpenPrice    float64   `json:"openPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	SL           float64   `json:"sl"`
	TP           float64   `json:"tp"`
	Profit       float64   `json:"profit"` // unrealized, account currency
	OpenTime     time.Time `json:"openTime"`
}
