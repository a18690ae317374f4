package aggregate

import (
	"context"
	"testing"
	"time"

	"fxbot/internal/model"
	"fxbot/internal/relay"
)

func tick(symbol string, bid, ask float64, at time.Time) relay.TickPayload {
	return relay.TickPayload{Symbol: symbol, Bid: bid, Ask: ask, Time: at}
}

func TestProcessTick_SameBucketMerges(t *testing.T) {
	a := New("M1")
	out := make(chan model.Candle, 4)
	base := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

	a.processTick(tick("EURUSD", 1.1000, 1.1002, base), out)
	a.processTick(tick("EURUSD", 1.1010, 1.1012, base.Add(10*time.Second)), out)
	a.processTick(tick("EURUSD", 1.0990, 1.0992, base.Add(30*time.Second)), out)

	if len(out) != 0 {
		t.Fatalf("no candle should finalize inside one bucket, got %d", len(out))
	}

	state := a.states["EURUSD"]
	if state == nil {
		t.Fatal("missing in-progress state for EURUSD")
	}
	c := state.candle
	if c.Open != 1.1001 || c.High != 1.1011 || c.Low != 1.0991 || c.Close != 1.0991 {
		t.Errorf("OHLC from mid prices: %+v", c)
	}
	if c.Volume != 3 {
		t.Errorf("tick count: got %v, want 3", c.Volume)
	}
	if !c.Time.Equal(base) {
		t.Errorf("candle time should be the bucket start, got %v", c.Time)
	}
}

func TestProcessTick_RolloverEmitsFinalizedCandle(t *testing.T) {
	a := New("M1")
	out := make(chan model.Candle, 4)
	base := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

	a.processTick(tick("EURUSD", 1.1000, 1.1002, base.Add(5*time.Second)), out)
	a.processTick(tick("EURUSD", 1.1020, 1.1022, base.Add(61*time.Second)), out)

	if len(out) != 1 {
		t.Fatalf("rollover should emit exactly one candle, got %d", len(out))
	}
	c := <-out
	if c.Close != 1.1001 || c.Timeframe != "M1" {
		t.Errorf("finalized candle: %+v", c)
	}

	state := a.states["EURUSD"]
	if state == nil || state.candle.Open != 1.1021 {
		t.Errorf("new bucket should start from the rollover tick: %+v", state)
	}
}

func TestProcessTick_LateTickDropped(t *testing.T) {
	a := New("M1")
	dropped := 0
	a.OnDroppedTick = func() { dropped++ }
	out := make(chan model.Candle, 4)
	base := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

	a.processTick(tick("EURUSD", 1.1000, 1.1002, base.Add(70*time.Second)), out)
	a.processTick(tick("EURUSD", 1.2000, 1.2002, base), out)

	if dropped != 1 {
		t.Errorf("late tick should be counted dropped, got %d", dropped)
	}
	if c := a.states["EURUSD"].candle; c.High != 1.1001 {
		t.Errorf("late tick must not touch the current candle: %+v", c)
	}
}

func TestProcessTick_SymbolsAreIndependent(t *testing.T) {
	a := New("M1")
	out := make(chan model.Candle, 4)
	base := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

	a.processTick(tick("EURUSD", 1.1000, 1.1002, base), out)
	a.processTick(tick("USDJPY", 150.00, 150.02, base.Add(61*time.Second)), out)

	if len(out) != 0 {
		t.Fatalf("a new symbol must not finalize another symbol's candle")
	}
	if len(a.states) != 2 {
		t.Errorf("expected two independent states, got %d", len(a.states))
	}
}

func TestRun_FlushesOpenCandlesOnClose(t *testing.T) {
	a := New("M1")
	tickCh := make(chan relay.TickPayload, 4)
	out := make(chan model.Candle, 4)

	tickCh <- tick("EURUSD", 1.1000, 1.1002, time.Date(2026, 3, 2, 9, 15, 5, 0, time.UTC))
	close(tickCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		a.Run(ctx, tickCh, out)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after tick channel close")
	}
	if len(out) != 1 {
		t.Fatalf("open candle should flush on shutdown, got %d", len(out))
	}
}

func TestTimeframeDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"M1": time.Minute, "M5": 5 * time.Minute, "M15": 15 * time.Minute,
		"M30": 30 * time.Minute, "H1": time.Hour, "H4": 4 * time.Hour,
		"D1": 24 * time.Hour, "W1": time.Hour,
	}
	for tf, want := range cases {
		if got := timeframeDuration(tf); got != want {
			t.Errorf("timeframeDuration(%q) = %v, want %v", tf, got, want)
		}
	}
}
