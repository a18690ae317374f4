package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fxbot/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func hourCandles(symbol string, n int, start time.Time) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		price := 1.1000 + float64(i)*0.0001
		candles[i] = model.Candle{
			Symbol: symbol, Timeframe: "H1",
			Time: start.Add(time.Duration(i) * time.Hour),
			Open: price, High: price + 0.0005, Low: price - 0.0005, Close: price + 0.0002,
			Volume: float64(100 + i),
		}
	}
	return candles
}

func TestInsertAndReadCandles(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	if err := s.InsertCandles(hourCandles("EURUSD", 10, start)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.ReadCandles("EURUSD", "H1", start, start.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("candle count: got %d, want 10", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Time.After(got[i-1].Time) {
			t.Fatalf("candles not ascending at %d", i)
		}
	}
	if got[0].Close != 1.1002 || got[0].Volume != 100 {
		t.Errorf("first candle round trip: %+v", got[0])
	}
}

func TestReadCandles_RangeAndSymbolFilter(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	if err := s.InsertCandles(hourCandles("EURUSD", 10, start)); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertCandles(hourCandles("GBPUSD", 10, start)); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadCandles("EURUSD", "H1", start.Add(2*time.Hour), start.Add(5*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Errorf("inclusive range: got %d candles, want 4", len(got))
	}
	for _, c := range got {
		if c.Symbol != "EURUSD" {
			t.Errorf("leaked symbol %s", c.Symbol)
		}
	}

	none, err := s.ReadCandles("USDJPY", "H1", start, start.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("unknown symbol: got %d candles", len(none))
	}
}

func TestInsertCandles_UpsertReplacesSameBar(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	c := model.Candle{Symbol: "EURUSD", Timeframe: "H1", Time: at, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15}

	if err := s.InsertCandles([]model.Candle{c}); err != nil {
		t.Fatal(err)
	}
	c.Close = 1.18
	if err := s.InsertCandles([]model.Candle{c}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadCandles("EURUSD", "H1", at, at)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("duplicate bar not replaced: %d rows", len(got))
	}
	if got[0].Close != 1.18 {
		t.Errorf("replace kept old close: %v", got[0].Close)
	}
}

func TestLastTimestamp(t *testing.T) {
	s := newTestStore(t)

	ts, err := s.LastTimestamp("EURUSD", "H1")
	if err != nil {
		t.Fatal(err)
	}
	if ts != 0 {
		t.Errorf("empty table: got %d, want 0", ts)
	}

	start := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	if err := s.InsertCandles(hourCandles("EURUSD", 5, start)); err != nil {
		t.Fatal(err)
	}
	ts, err = s.LastTimestamp("EURUSD", "H1")
	if err != nil {
		t.Fatal(err)
	}
	if want := start.Add(4 * time.Hour).Unix(); ts != want {
		t.Errorf("last ts: got %d, want %d", ts, want)
	}
}

func TestRunWriter_FlushesOnChannelClose(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	candleCh := make(chan model.Candle, 8)
	for _, c := range hourCandles("EURUSD", 3, start) {
		candleCh <- c
	}
	close(candleCh)

	done := make(chan struct{})
	go func() {
		s.RunWriter(context.Background(), candleCh)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not drain after channel close")
	}

	got, err := s.ReadCandles("EURUSD", "H1", start, start.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("flushed candles: got %d, want 3", len(got))
	}
}

func TestSaveBacktestRun(t *testing.T) {
	s := newTestStore(t)

	cfg := map[string]any{"strategyId": "ma-cross", "symbol": "EURUSD"}
	res := map[string]any{"totalTrades": 4, "totalPnL": 120.5}
	if err := s.SaveBacktestRun(cfg, res); err != nil {
		t.Fatalf("save: %v", err)
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM backtest_runs`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("stored runs: got %d, want 1", count)
	}
}
