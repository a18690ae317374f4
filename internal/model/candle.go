package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLC bar for a single symbol and timeframe.
// Prices are quote-currency floats (e.g. 1.10345 for EURUSD).
// A candle series is ordered by strictly increasing Time and is
// immutable once produced.
type Candle struct {
	Symbol    string    `json:"symbol,omitempty"`
	Timeframe string    `json:"timeframe,omitempty"`
	Time      time.Time `json:"time"` // bar open time (UTC)
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Key returns a unique key for this candle's stream: "symbol:timeframe".
func (c *Candle) Key() string {
	return c.Symbol + ":" + c.Timeframe
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Closes extracts the close prices of a candle series, oldest first.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}
