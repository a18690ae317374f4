package risk

import (
	"fmt"
	"time"

	"fxbot/internal/model"
)

// defaultSLPips is used to size an approved open signal that carries no
// stop distance (only reachable when HardStopLoss is off).
const defaultSLPips = 20

// warnFraction is the share of a drawdown limit at which a non-blocking
// warning is attached to the result.
const warnFraction = 0.8

// Modifications are the auto-management features downstream execution
// must apply on subsequent ticks; the evaluator only reports them.
type Modifications struct {
	AutoBreakeven bool    `json:"autoBreakeven,omitempty"`
	TrailingStop  float64 `json:"trailingStop,omitempty"`
}

// CheckResult is the outcome of one risk evaluation.
type CheckResult struct {
	Approved      bool           `json:"approved"`
	Reason        string         `json:"reason,omitempty"`
	Warnings      []string       `json:"warnings"`
	AdjustedLots  float64        `json:"adjustedLots,omitempty"`
	RiskAmount    float64        `json:"riskAmount,omitempty"`
	Modifications *Modifications `json:"modifications,omitempty"`
	Order         *model.Order   `json:"order,omitempty"`
}

func rejected(reason string, warnings []string) CheckResult {
	return CheckResult{Approved: false, Reason: reason, Warnings: warnings}
}

// Evaluate gates a signal against account state, open positions and the
// configured limits, and sizes the resulting order. Checks run in a
// fixed order and the first failure short-circuits; later checks assume
// earlier-checked state is valid. Non-open signals pass through
// approved with no sizing. now is injected so session gating stays a
// pure function of its inputs.
func Evaluate(
	signal model.Signal,
	account model.AccountInfo,
	positions []model.Position,
	settings Settings,
	stats DailyStats,
	currentPrice, currentSpread float64,
	now time.Time,
) CheckResult {
	warnings := []string{}

	if signal.Type != model.SignalOpen {
		return CheckResult{Approved: true, Warnings: warnings}
	}

	// 1. Session filter
	if ok, reason := checkSessionFilter(settings.SessionFilter, now); !ok {
		return rejected(reason, warnings)
	}

	// 2. Hard stop-loss requirement
	if settings.HardStopLoss && signal.SLPips <= 0 {
		return rejected("Hard stop-loss required but not provided", warnings)
	}

	// 3. Max concurrent trades
	if len(positions) >= settings.MaxConcurrentTrades {
		return rejected(fmt.Sprintf("Max concurrent trades (%d) reached", settings.MaxConcurrentTrades), warnings)
	}

	// 4. Max trades per day
	if stats.TradesOpened >= settings.MaxTradesPerDay {
		return rejected(fmt.Sprintf("Max daily trades (%d) reached", settings.MaxTradesPerDay), warnings)
	}

	// 5. Daily drawdown
	if stats.StartBalance > 0 {
		dd := (stats.StartBalance - account.Equity) / stats.StartBalance * 100
		if dd >= settings.MaxDailyDrawdownPct {
			return rejected(fmt.Sprintf("Daily drawdown limit (%g%%) exceeded: %.2f%%", settings.MaxDailyDrawdownPct, dd), warnings)
		}
		if dd >= settings.MaxDailyDrawdownPct*warnFraction {
			warnings = append(warnings, fmt.Sprintf("Approaching daily drawdown limit: %.2f%%", dd))
		}
	}

	// 6. Weekly drawdown
	if stats.WeekStartBalance > 0 {
		dd := (stats.WeekStartBalance - account.Equity) / stats.WeekStartBalance * 100
		if dd >= settings.MaxWeeklyDrawdownPct {
			return rejected(fmt.Sprintf("Weekly drawdown limit (%g%%) exceeded: %.2f%%", settings.MaxWeeklyDrawdownPct, dd), warnings)
		}
		if dd >= settings.MaxWeeklyDrawdownPct*warnFraction {
			warnings = append(warnings, fmt.Sprintf("Approaching weekly drawdown limit: %.2f%%", dd))
		}
	}

	// 7. Spread filter
	if currentSpread > settings.SpreadFilterPips {
		return rejected(fmt.Sprintf("Spread (%g pips) exceeds max (%g pips)", currentSpread, settings.SpreadFilterPips), warnings)
	}

	// 8. Duplicate position
	for i := range positions {
		if positions[i].Symbol == signal.Symbol && positions[i].Side == signal.Side {
			return rejected(fmt.Sprintf("Duplicate %s position on %s already exists", signal.Side, signal.Symbol), warnings)
		}
	}

	// 9. Position sizing and margin
	slPips := signal.SLPips
	if slPips <= 0 {
		slPips = defaultSLPips
	}
	tpPips := signal.TPPips
	if tpPips <= 0 {
		tpPips = slPips * 2
	}

	lots, riskAmount := PositionSize(account.Equity, settings.DefaultRiskPct, slPips, signal.Symbol)

	required := estimatedMargin(lots, currentPrice) * 1.2
	if account.FreeMargin < required {
		return rejected(fmt.Sprintf("Insufficient margin. Required: %.2f, Available: %.2f", required, account.FreeMargin), warnings)
	}

	var mods *Modifications
	if settings.AutoBreakeven || settings.TrailingStop {
		mods = &Modifications{}
		if settings.AutoBreakeven {
			mods.AutoBreakeven = true
		}
		if settings.TrailingStop {
			mods.TrailingStop = settings.TrailingStopPips
		}
	}

	return CheckResult{
		Approved:      true,
		Warnings:      warnings,
		AdjustedLots:  lots,
		RiskAmount:    riskAmount,
		Modifications: mods,
		Order:         buildOrder(signal, lots, riskAmount, slPips, tpPips, currentPrice),
	}
}

// buildOrder assembles the terminal sized order, converting pip
// distances into absolute stop/target prices around the current price.
func buildOrder(signal model.Signal, lots, riskAmount, slPips, tpPips, currentPrice float64) *model.Order {
	slOffset := PipsToPrice(signal.Symbol, slPips)
	tpOffset := PipsToPrice(signal.Symbol, tpPips)

	var slPrice, tpPrice float64
	if signal.Side == model.SideBuy {
		slPrice = currentPrice - slOffset
		tpPrice = currentPrice + tpOffset
	} else {
		slPrice = currentPrice + slOffset
		tpPrice = currentPrice - tpOffset
	}

	return &model.Order{
		Symbol:     signal.Symbol,
		Side:       signal.Side,
		Volume:     lots,
		SLPrice:    slPrice,
		TPPrice:    tpPrice,
		SLPips:     slPips,
		TPPips:     tpPips,
		RiskAmount: riskAmount,
		Reason:     signal.Reason,
	}
}
