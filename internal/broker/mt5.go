package broker

import (
	"context"
	"fmt"

	"fxbot/internal/model"
	"fxbot/internal/relay"
)

// MT5 routes execution through a terminal bridge connected to the
// relay hub. Account state and positions come from the bridge's last
// account_update; order placement is fire-and-forward, with the fill
// reported asynchronously as an order_result frame.
type MT5 struct {
	hub *relay.Hub
}

// NewMT5 wraps the relay hub as a broker adapter.
func NewMT5(hub *relay.Hub) *MT5 {
	return &MT5{hub: hub}
}

// Connect verifies a bridge is attached. The WebSocket lifecycle is
// owned by the hub, not the adapter.
func (m *MT5) Connect(context.Context) error {
	if m.hub.ClientCount() == 0 {
		return fmt.Errorf("broker: no bridge connected to relay")
	}
	return nil
}

func (m *MT5) Disconnect() error { return nil }

func (m *MT5) AccountInfo(context.Context) (model.AccountInfo, error) {
	snap, ok := m.hub.Account()
	if !ok {
		return model.AccountInfo{}, fmt.Errorf("broker: no account snapshot from bridge yet")
	}
	return snap.Account, nil
}

func (m *MT5) Positions(context.Context) ([]model.Position, error) {
	snap, ok := m.hub.Account()
	if !ok {
		return nil, fmt.Errorf("broker: no account snapshot from bridge yet")
	}
	return snap.Positions, nil
}

func (m *MT5) PlaceOrder(_ context.Context, req OrderRequest) (OrderResponse, error) {
	id, err := m.hub.SendOrderRequest(relay.OrderRequestPayload{
		Action: "place",
		Order: model.Order{
			Symbol:  req.Symbol,
			Side:    req.Side,
			Volume:  req.Volume,
			SLPrice: req.SLPrice,
			TPPrice: req.TPPrice,
			Reason:  req.Comment,
		},
	})
	if err != nil {
		return OrderResponse{Success: false, Error: err.Error()}, err
	}
	return OrderResponse{Success: true, OrderID: id}, nil
}

func (m *MT5) ClosePosition(_ context.Context, positionID string) (OrderResponse, error) {
	id, err := m.hub.SendOrderRequest(relay.OrderRequestPayload{
		Action:     "close",
		PositionID: positionID,
	})
	if err != nil {
		return OrderResponse{Success: false, Error: err.Error()}, err
	}
	return OrderResponse{Success: true, OrderID: id}, nil
}

func (m *MT5) ModifyPosition(_ context.Context, positionID string, sl, tp float64) (OrderResponse, error) {
	id, err := m.hub.SendOrderRequest(relay.OrderRequestPayload{
		Action:     "modify",
		PositionID: positionID,
		SL:         sl,
		TP:         tp,
	})
	if err != nil {
		return OrderResponse{Success: false, Error: err.Error()}, err
	}
	return OrderResponse{Success: true, OrderID: id}, nil
}
