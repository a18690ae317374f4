// Package broker defines the execution seam between the decision core
// and a trading venue. The adapter set is closed: a broker type the
// core has no adapter for is an explicit error, never a silent no-op.
package broker

import (
	"context"
	"fmt"

	"fxbot/internal/model"
)

// Type identifies a supported broker backend.
type Type string

const (
	TypeMT5   Type = "mt5"
	TypePaper Type = "paper"
)

// OrderRequest is a fully sized order handed to an adapter.
type OrderRequest struct {
	Symbol  string     `json:"symbol"`
	Side    model.Side `json:"side"`
	Volume  float64    `json:"volume"`
	SLPrice float64    `json:"slPrice,omitempty"`
	TPPrice float64    `json:"tpPrice,omitempty"`
	Comment string     `json:"comment,omitempty"`
}

// OrderResponse is the venue's answer to a placement or modification.
type OrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Adapter is the venue-facing surface. Implementations must be safe
// for concurrent use.
type Adapter interface {
	Connect(ctx context.Context) error
	Disconnect() error
	AccountInfo(ctx context.Context) (model.AccountInfo, error)
	Positions(ctx context.Context) ([]model.Position, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	ClosePosition(ctx context.Context, positionID string) (OrderResponse, error)
	ModifyPosition(ctx context.Context, positionID string, sl, tp float64) (OrderResponse, error)
}

// ParseType validates a broker type string against the closed set.
// Legacy names (ctrader, okx) are recognized and rejected with a
// pointed message rather than the generic one.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeMT5:
		return TypeMT5, nil
	case TypePaper:
		return TypePaper, nil
	case "ctrader", "okx":
		return "", fmt.Errorf("broker: %s is not supported, use mt5 or paper", s)
	default:
		return "", fmt.Errorf("broker: unknown broker type %q", s)
	}
}
