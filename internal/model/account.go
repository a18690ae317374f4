package model

// AccountInfo is a read-only snapshot of the trading account.
// Equity = Balance + unrealized P/L of open positions; the caller
// maintains that invariant, the core only consumes it.
type AccountInfo struct {
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"freeMargin"`
	Currency   string  `json:"currency"`
}
