package risk

import (
	"math"
	"strings"
	"testing"
	"time"

	"fxbot/internal/model"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func openSignal() model.Signal {
	return model.Signal{
		Type:   model.SignalOpen,
		Side:   model.SideBuy,
		Symbol: "EURUSD",
		SLPips: 20,
		TPPips: 40,
	}
}

func healthyAccount() model.AccountInfo {
	return model.AccountInfo{
		Balance:    10000,
		Equity:     10000,
		FreeMargin: 9000,
	}
}

func openSettings() Settings {
	s := DefaultSettings()
	s.SessionFilter.Enabled = false
	return s
}

// londonTuesday is well inside the London session on a weekday.
var londonTuesday = time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

func TestPipValue_Table(t *testing.T) {
	cases := []struct {
		symbol string
		lots   float64
		want   float64
	}{
		{"EURUSD", 1, 10},
		{"eurusd", 1, 10},
		{"USDJPY", 1, 9.1},
		{"USDCHF", 0.5, 5.25},
		{"XAGUSD", 1, 50},
		{"UNKNWN", 2, 20},
	}
	for _, c := range cases {
		assertClose(t, "PipValue "+c.symbol, PipValue(c.symbol, c.lots), c.want, 1e-9)
	}
}

func TestPipSize(t *testing.T) {
	assertClose(t, "EURUSD", PipSize("EURUSD"), 0.0001, 1e-12)
	assertClose(t, "USDJPY", PipSize("USDJPY"), 0.01, 1e-12)
	assertClose(t, "gbpjpy", PipSize("gbpjpy"), 0.01, 1e-12)
	assertClose(t, "XAUUSD", PipSize("XAUUSD"), 0.1, 1e-12)
}

func TestPositionSize_RiskBudget(t *testing.T) {
	// 1% of 10000 = 100 at risk over 20 pips at $10/pip: 0.5 lots.
	lots, riskAmount := PositionSize(10000, 1, 20, "EURUSD")
	assertClose(t, "lots", lots, 0.5, 1e-9)
	assertClose(t, "riskAmount", riskAmount, 100, 1e-9)
}

func TestPositionSize_FloorsAndMinimum(t *testing.T) {
	// 0.1% of 1000 = 1 over 50 pips would be 0.002 lots; floor to min.
	lots, _ := PositionSize(1000, 0.1, 50, "EURUSD")
	assertClose(t, "min lots", lots, 0.01, 1e-9)

	// Rounding never risks more than the raw target.
	equities := []float64{2500, 7341, 10000, 53210}
	for _, eq := range equities {
		lots, riskAmount := PositionSize(eq, 1.5, 33, "GBPUSD")
		target := eq * 0.015
		if lots > minLots && riskAmount > target+1e-9 {
			t.Errorf("equity %v: rounded risk %.4f exceeds target %.4f", eq, riskAmount, target)
		}
		assertClose(t, "risk identity", riskAmount, lots*33*PipValue("GBPUSD", 1), 1e-9)
	}
}

func TestCurrentSessions(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2026, 3, 4, h, 30, 0, 0, time.UTC) }

	s := CurrentSessions(at(8))
	if !s.London || !s.Tokyo || s.NewYork {
		t.Errorf("08:30 UTC: %+v", s)
	}
	s = CurrentSessions(at(14))
	if !s.London || !s.NewYork || s.Tokyo {
		t.Errorf("14:30 UTC: %+v", s)
	}
	s = CurrentSessions(at(22))
	if !s.Sydney || s.London || s.NewYork {
		t.Errorf("22:30 UTC: %+v", s)
	}
	s = CurrentSessions(at(3))
	if !s.Sydney || !s.Tokyo {
		t.Errorf("03:30 UTC sydney wrap: %+v", s)
	}
}

func TestIsWeekend_Boundaries(t *testing.T) {
	cases := []struct {
		t    time.Time
		want bool
	}{
		{time.Date(2026, 3, 6, 20, 59, 0, 0, time.UTC), false}, // Friday before close
		{time.Date(2026, 3, 6, 21, 0, 0, 0, time.UTC), true},   // Friday close
		{time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC), true},   // Saturday
		{time.Date(2026, 3, 8, 20, 59, 0, 0, time.UTC), true},  // Sunday before open
		{time.Date(2026, 3, 8, 21, 0, 0, 0, time.UTC), false},  // Sunday open
		{time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), false},   // Monday
	}
	for _, c := range cases {
		if got := IsWeekend(c.t); got != c.want {
			t.Errorf("IsWeekend(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestSessionFilter_DisabledAlwaysPasses(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	ok, _ := checkSessionFilter(SessionFilter{Enabled: false, BlockWeekends: true}, saturday)
	if !ok {
		t.Error("disabled filter must pass even on a weekend")
	}
}

func TestEvaluate_NonOpenSignalsPassThrough(t *testing.T) {
	sig := model.Signal{Type: model.SignalClose, Symbol: "EURUSD"}
	res := Evaluate(sig, healthyAccount(), nil, openSettings(), DailyStats{}, 1.1, 1, londonTuesday)
	if !res.Approved {
		t.Fatalf("close signal should pass through: %+v", res)
	}
	if res.Order != nil {
		t.Error("pass-through must not size an order")
	}
}

func TestEvaluate_Approved(t *testing.T) {
	res := Evaluate(openSignal(), healthyAccount(), nil, openSettings(), DailyStats{StartBalance: 10000, WeekStartBalance: 10000}, 1.1000, 1, londonTuesday)
	if !res.Approved {
		t.Fatalf("expected approval, got reason %q", res.Reason)
	}
	if res.Order == nil {
		t.Fatal("approved open signal must carry a sized order")
	}
	assertClose(t, "lots", res.AdjustedLots, 0.5, 1e-9)
	assertClose(t, "sl price", res.Order.SLPrice, 1.1000-20*0.0001, 1e-9)
	assertClose(t, "tp price", res.Order.TPPrice, 1.1000+40*0.0001, 1e-9)
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestEvaluate_SellOrderStopsFlip(t *testing.T) {
	sig := openSignal()
	sig.Side = model.SideSell
	res := Evaluate(sig, healthyAccount(), nil, openSettings(), DailyStats{}, 1.1000, 1, londonTuesday)
	if !res.Approved {
		t.Fatalf("expected approval, got %q", res.Reason)
	}
	assertClose(t, "sell sl", res.Order.SLPrice, 1.1000+20*0.0001, 1e-9)
	assertClose(t, "sell tp", res.Order.TPPrice, 1.1000-40*0.0001, 1e-9)
}

func TestEvaluate_GateOrder(t *testing.T) {
	settings := openSettings()
	account := healthyAccount()
	stats := DailyStats{StartBalance: 10000, WeekStartBalance: 10000}

	cases := []struct {
		name   string
		mutate func(*model.Signal, *model.AccountInfo, *[]model.Position, *Settings, *DailyStats, *float64)
		reason string
	}{
		{
			"no allowed session", func(_ *model.Signal, _ *model.AccountInfo, _ *[]model.Position, s *Settings, _ *DailyStats, _ *float64) {
				s.SessionFilter = SessionFilter{Enabled: true}
			}, "Trading blocked",
		},
		{
			"missing stop", func(sig *model.Signal, _ *model.AccountInfo, _ *[]model.Position, _ *Settings, _ *DailyStats, _ *float64) {
				sig.SLPips = 0
			}, "Hard stop-loss",
		},
		{
			"concurrent cap", func(_ *model.Signal, _ *model.AccountInfo, pos *[]model.Position, s *Settings, _ *DailyStats, _ *float64) {
				s.MaxConcurrentTrades = 1
				*pos = []model.Position{{Symbol: "GBPUSD", Side: model.SideSell}}
			}, "Max concurrent",
		},
		{
			"daily cap", func(_ *model.Signal, _ *model.AccountInfo, _ *[]model.Position, s *Settings, st *DailyStats, _ *float64) {
				s.MaxTradesPerDay = 5
				st.TradesOpened = 5
			}, "Max daily",
		},
		{
			"daily drawdown", func(_ *model.Signal, a *model.AccountInfo, _ *[]model.Position, _ *Settings, _ *DailyStats, _ *float64) {
				a.Equity = 9400 // 6% down vs 5% limit
			}, "Daily drawdown",
		},
		{
			"weekly drawdown", func(_ *model.Signal, a *model.AccountInfo, _ *[]model.Position, _ *Settings, st *DailyStats, _ *float64) {
				st.StartBalance = 9000 // keep the daily gate quiet
				a.Equity = 8900       // 11% down vs 10% weekly limit
			}, "Weekly drawdown",
		},
		{
			"wide spread", func(_ *model.Signal, _ *model.AccountInfo, _ *[]model.Position, _ *Settings, _ *DailyStats, spread *float64) {
				*spread = 4.5
			}, "Spread",
		},
		{
			"duplicate", func(_ *model.Signal, _ *model.AccountInfo, pos *[]model.Position, _ *Settings, _ *DailyStats, _ *float64) {
				*pos = []model.Position{{Symbol: "EURUSD", Side: model.SideBuy}}
			}, "Duplicate",
		},
		{
			"margin", func(_ *model.Signal, a *model.AccountInfo, _ *[]model.Position, _ *Settings, _ *DailyStats, _ *float64) {
				a.FreeMargin = 10
			}, "Insufficient margin",
		},
	}

	for _, c := range cases {
		sig := openSignal()
		acct := account
		pos := []model.Position{}
		set := settings
		st := stats
		spread := 1.0
		c.mutate(&sig, &acct, &pos, &set, &st, &spread)

		res := Evaluate(sig, acct, pos, set, st, 1.1, spread, londonTuesday)
		if res.Approved {
			t.Errorf("%s: expected rejection", c.name)
			continue
		}
		if !strings.HasPrefix(res.Reason, c.reason) {
			t.Errorf("%s: reason %q does not start with %q", c.name, res.Reason, c.reason)
		}
	}
}

func TestEvaluate_WarnsNearDrawdownLimit(t *testing.T) {
	account := healthyAccount()
	account.Equity = 9550 // 4.5% down, past 80% of the 5% limit
	stats := DailyStats{StartBalance: 10000, WeekStartBalance: 10000}

	res := Evaluate(openSignal(), account, nil, openSettings(), stats, 1.1, 1, londonTuesday)
	if !res.Approved {
		t.Fatalf("4.5%% drawdown should still be approved, got %q", res.Reason)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected an approaching-limit warning")
	}
	if !strings.Contains(res.Warnings[0], "daily drawdown") {
		t.Errorf("warning text: %q", res.Warnings[0])
	}
}

func TestEvaluate_ModificationsReported(t *testing.T) {
	settings := openSettings()
	settings.AutoBreakeven = true
	settings.TrailingStop = true
	settings.TrailingStopPips = 12

	res := Evaluate(openSignal(), healthyAccount(), nil, settings, DailyStats{}, 1.1, 1, londonTuesday)
	if !res.Approved {
		t.Fatalf("expected approval, got %q", res.Reason)
	}
	if res.Modifications == nil || !res.Modifications.AutoBreakeven {
		t.Fatalf("modifications not reported: %+v", res.Modifications)
	}
	assertClose(t, "trailing pips", res.Modifications.TrailingStop, 12, 1e-9)
}

func TestEvaluate_DefaultStopWhenHardSLOff(t *testing.T) {
	settings := openSettings()
	settings.HardStopLoss = false
	sig := openSignal()
	sig.SLPips = 0
	sig.TPPips = 0

	res := Evaluate(sig, healthyAccount(), nil, settings, DailyStats{}, 1.1, 1, londonTuesday)
	if !res.Approved {
		t.Fatalf("expected approval without a stop when hard SL is off, got %q", res.Reason)
	}
	assertClose(t, "default sl", res.Order.SLPips, defaultSLPips, 1e-9)
	assertClose(t, "derived tp", res.Order.TPPips, defaultSLPips*2, 1e-9)
}
