package broker

import (
	"context"
	"testing"

	"fxbot/internal/model"
	"fxbot/internal/relay"
)

func newTestHub(t *testing.T) *relay.Hub {
	t.Helper()
	auth, err := relay.NewAuthenticator("correct-horse-battery", "")
	if err != nil {
		t.Fatal(err)
	}
	return relay.NewHub(auth, 16)
}

func TestMT5_ConnectRequiresBridge(t *testing.T) {
	m := NewMT5(newTestHub(t))
	if err := m.Connect(context.Background()); err == nil {
		t.Error("Connect with no bridge attached should fail")
	}
}

func TestMT5_AccountInfoRequiresSnapshot(t *testing.T) {
	m := NewMT5(newTestHub(t))
	if _, err := m.AccountInfo(context.Background()); err == nil {
		t.Error("AccountInfo before any account_update should fail")
	}
	if _, err := m.Positions(context.Background()); err == nil {
		t.Error("Positions before any account_update should fail")
	}
}

func TestMT5_OrdersFailWithoutAuthenticatedBridge(t *testing.T) {
	ctx := context.Background()
	m := NewMT5(newTestHub(t))

	resp, err := m.PlaceOrder(ctx, OrderRequest{Symbol: "EURUSD", Side: model.SideBuy, Volume: 0.1})
	if err == nil || resp.Success {
		t.Errorf("PlaceOrder with no bridge: %+v, %v", resp, err)
	}
	if resp.Error == "" {
		t.Error("failure response must carry the error text")
	}

	if resp, err := m.ClosePosition(ctx, "12345"); err == nil || resp.Success {
		t.Errorf("ClosePosition with no bridge: %+v, %v", resp, err)
	}
	if resp, err := m.ModifyPosition(ctx, "12345", 1.09, 1.12); err == nil || resp.Success {
		t.Errorf("ModifyPosition with no bridge: %+v, %v", resp, err)
	}
}

func TestMT5_OrdersFailWhenHalted(t *testing.T) {
	hub := newTestHub(t)
	hub.KillSwitch("test")
	m := NewMT5(hub)

	resp, err := m.PlaceOrder(context.Background(), OrderRequest{Symbol: "EURUSD", Side: model.SideBuy, Volume: 0.1})
	if err == nil || resp.Success {
		t.Errorf("PlaceOrder while halted: %+v, %v", resp, err)
	}
}
