package risk

import "strings"

// pipValues maps a symbol to its approximate per-pip value for one
// standard lot, in account currency. These are the v2 risk-engine
// constants; the legacy v1 table disagrees for JPY pairs and metals and
// is deliberately NOT merged in (see DESIGN.md).
var pipValues = map[string]float64{
	"EURUSD": 10, "GBPUSD": 10, "AUDUSD": 10, "NZDUSD": 10,
	"USDJPY": 9.1, "EURJPY": 9.1, "GBPJPY": 9.1, "AUDJPY": 9.1,
	"USDCHF": 10.5, "EURCHF": 10.5, "GBPCHF": 10.5,
	"USDCAD": 7.5, "EURCAD": 7.5, "GBPCAD": 7.5,
	"XAUUSD": 1, "XAGUSD": 50, "BTCUSD": 1, "ETHUSD": 1,
}

// defaultPipValue is the fallback for symbols missing from the table.
const defaultPipValue = 10

// PipValue returns the per-pip value of lotSize lots of symbol.
func PipValue(symbol string, lotSize float64) float64 {
	base, ok := pipValues[strings.ToUpper(symbol)]
	if !ok {
		base = defaultPipValue
	}
	return base * lotSize
}

// IsJPYPair reports whether symbol is quoted in Japanese yen.
func IsJPYPair(symbol string) bool {
	return strings.Contains(strings.ToUpper(symbol), "JPY")
}

// PipSize returns the price increment of one pip for symbol:
// 0.01 for JPY-quoted pairs, 0.1 for gold, 0.0001 otherwise.
func PipSize(symbol string) float64 {
	if IsJPYPair(symbol) {
		return 0.01
	}
	if strings.Contains(strings.ToUpper(symbol), "XAU") {
		return 0.1
	}
	return 0.0001
}

// PipsToPrice converts a pip distance into a price offset for symbol.
func PipsToPrice(symbol string, pips float64) float64 {
	return pips * PipSize(symbol)
}
