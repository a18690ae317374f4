// Package notify delivers trading events to external channels
// (Telegram, webhooks) and to the log.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fxbot/internal/model"
)

// Level is the severity of an alert.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

// Alert is one formatted notification.
type Alert struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notifier delivers an alert to one channel.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log. Always available,
// used when no external channel is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	slog.Info("notify: alert",
		slog.String("level", string(alert.Level)),
		slog.String("title", alert.Title),
		slog.String("message", alert.Message))
	return nil
}

// Multi fans one alert out to several channels. Individual delivery
// failures are logged and do not stop the others.
type Multi struct {
	notifiers []Notifier
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Send(ctx context.Context, alert Alert) error {
	var failed int
	for _, n := range m.notifiers {
		if err := n.Send(ctx, alert); err != nil {
			slog.Warn("notify: delivery failed", slog.String("err", err.Error()))
			failed++
		}
	}
	if failed == len(m.notifiers) && failed > 0 {
		return fmt.Errorf("notify: all %d channels failed", failed)
	}
	return nil
}

// TradeEvent describes an executed trade for notification.
type TradeEvent struct {
	Action string // opened, closed, modified
	Symbol string
	Side   model.Side
	Volume float64
	Price  float64
	PnL    *float64
	Pips   *float64
}

// TradeAlert formats a trade event in the dashboard's message style.
func TradeAlert(t TradeEvent) Alert {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n", t.Symbol)
	fmt.Fprintf(&b, "Side: %s\n", strings.ToUpper(string(t.Side)))
	fmt.Fprintf(&b, "Volume: %g lots\n", t.Volume)
	fmt.Fprintf(&b, "Price: %.5f", t.Price)
	if t.Action == "closed" && t.PnL != nil {
		fmt.Fprintf(&b, "\nP/L: $%.2f", *t.PnL)
		if t.Pips != nil {
			fmt.Fprintf(&b, " (%.1f pips)", *t.Pips)
		}
	}
	return Alert{
		Level:   LevelInfo,
		Title:   "Trade " + strings.ToUpper(t.Action),
		Message: b.String(),
	}
}

// ReportAlert formats a periodic performance summary.
func ReportAlert(period string, totalTrades int, winRate, totalPnL, maxDrawdownPct float64) Alert {
	var b strings.Builder
	fmt.Fprintf(&b, "Total Trades: %d\n", totalTrades)
	fmt.Fprintf(&b, "Win Rate: %.1f%%\n", winRate)
	fmt.Fprintf(&b, "Total P/L: $%.2f\n", totalPnL)
	fmt.Fprintf(&b, "Max Drawdown: %.2f%%", maxDrawdownPct)
	return Alert{
		Level:   LevelInfo,
		Title:   strings.ToUpper(period) + " REPORT",
		Message: b.String(),
	}
}

// RiskAlert formats a risk warning or rejection.
func RiskAlert(title, message string) Alert {
	return Alert{Level: LevelWarning, Title: title, Message: message}
}

// KillSwitchAlert formats the halt notification.
func KillSwitchAlert(reason string) Alert {
	return Alert{Level: LevelCritical, Title: "KILL SWITCH ENGAGED", Message: reason}
}
