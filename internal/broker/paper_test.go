package broker

import (
	"context"
	"math"
	"testing"

	"fxbot/internal/model"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func TestParseType(t *testing.T) {
	if typ, err := ParseType("mt5"); err != nil || typ != TypeMT5 {
		t.Errorf("mt5: %v, %v", typ, err)
	}
	if typ, err := ParseType("paper"); err != nil || typ != TypePaper {
		t.Errorf("paper: %v, %v", typ, err)
	}
	for _, legacy := range []string{"ctrader", "okx"} {
		if _, err := ParseType(legacy); err == nil {
			t.Errorf("%s: expected explicit rejection", legacy)
		}
	}
	if _, err := ParseType("ibkr"); err == nil {
		t.Error("unknown type accepted")
	}
}

func TestPaper_RequiresConnectAndPrice(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(10000, 0)

	req := OrderRequest{Symbol: "EURUSD", Side: model.SideBuy, Volume: 0.1}
	if _, err := p.PlaceOrder(ctx, req); err == nil {
		t.Error("order before Connect should fail")
	}

	p.Connect(ctx)
	if _, err := p.PlaceOrder(ctx, req); err == nil {
		t.Error("order with no market price should fail")
	}
}

func TestPaper_FillAppliesSlippage(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(10000, 2)
	p.Connect(ctx)
	p.UpdatePrice("EURUSD", 1.1000)

	resp, err := p.PlaceOrder(ctx, OrderRequest{Symbol: "EURUSD", Side: model.SideBuy, Volume: 0.1})
	if err != nil || !resp.Success {
		t.Fatalf("buy: %+v, %v", resp, err)
	}
	positions, _ := p.Positions(ctx)
	if len(positions) != 1 {
		t.Fatalf("positions: %d", len(positions))
	}
	assertClose(t, "buy fill", positions[0].OpenPrice, 1.1002, 1e-9)

	resp, err = p.PlaceOrder(ctx, OrderRequest{Symbol: "EURUSD", Side: model.SideSell, Volume: 0.1})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	positions, _ = p.Positions(ctx)
	for _, pos := range positions {
		if pos.ID == resp.OrderID {
			assertClose(t, "sell fill", pos.OpenPrice, 1.0998, 1e-9)
		}
	}
}

func TestPaper_UnrealizedAndRealizedProfit(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(10000, 0)
	p.Connect(ctx)
	p.UpdatePrice("EURUSD", 1.1000)

	resp, err := p.PlaceOrder(ctx, OrderRequest{Symbol: "EURUSD", Side: model.SideBuy, Volume: 1})
	if err != nil {
		t.Fatal(err)
	}

	// 20 pips up on 1 lot at $10/pip: $200 unrealized.
	p.UpdatePrice("EURUSD", 1.1020)
	positions, _ := p.Positions(ctx)
	assertClose(t, "unrealized", positions[0].Profit, 200, 1e-6)

	acct, _ := p.AccountInfo(ctx)
	assertClose(t, "equity", acct.Equity, 10200, 1e-6)
	assertClose(t, "balance unchanged", acct.Balance, 10000, 1e-9)

	if _, err := p.ClosePosition(ctx, resp.OrderID); err != nil {
		t.Fatal(err)
	}
	acct, _ = p.AccountInfo(ctx)
	assertClose(t, "realized balance", acct.Balance, 10200, 1e-6)

	if _, err := p.ClosePosition(ctx, resp.OrderID); err == nil {
		t.Error("double close should fail")
	}
}

func TestPaper_ModifyPosition(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(10000, 0)
	p.Connect(ctx)
	p.UpdatePrice("EURUSD", 1.1000)

	resp, _ := p.PlaceOrder(ctx, OrderRequest{
		Symbol: "EURUSD", Side: model.SideBuy, Volume: 0.1,
		SLPrice: 1.0980, TPPrice: 1.1040,
	})

	if _, err := p.ModifyPosition(ctx, resp.OrderID, 1.0990, 0); err != nil {
		t.Fatal(err)
	}
	positions, _ := p.Positions(ctx)
	assertClose(t, "moved sl", positions[0].SL, 1.0990, 1e-9)
	assertClose(t, "tp untouched", positions[0].TP, 1.1040, 1e-9)

	if _, err := p.ModifyPosition(ctx, "PAPER-404", 1, 1); err == nil {
		t.Error("modify on missing position should fail")
	}
}
