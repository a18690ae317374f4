// Package relay hosts the WebSocket endpoint that links terminal
// bridges and dashboard clients to the decision core. Messages are a
// closed set of typed kinds; anything else is rejected at the boundary
// instead of being passed through opaquely.
package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"fxbot/internal/model"
)

// Kind discriminates relay messages.
type Kind string

const (
	KindConnected     Kind = "connected"
	KindAuth          Kind = "auth"
	KindAuthSuccess   Kind = "auth_success"
	KindAuthFailed    Kind = "auth_failed"
	KindTick          Kind = "tick"
	KindCandle        Kind = "candle"
	KindAccountUpdate Kind = "account_update"
	KindOrderUpdate   Kind = "order_update"
	KindOrderRequest  Kind = "order_request"
	KindOrderResult   Kind = "order_result"
	KindPing          Kind = "ping"
	KindPong          Kind = "pong"
	KindSubscribe     Kind = "subscribe"
	KindStartTrading  Kind = "start_trading"
	KindStopTrading   Kind = "stop_trading"
	KindKillSwitch    Kind = "kill_switch"
	KindError         Kind = "error"
)

// knownKinds is the closed accept set for inbound traffic.
var knownKinds = map[Kind]bool{
	KindAuth: true, KindTick: true, KindCandle: true,
	KindAccountUpdate: true, KindOrderUpdate: true, KindOrderResult: true,
	KindPing: true, KindPong: true, KindSubscribe: true,
	KindStartTrading: true, KindStopTrading: true, KindKillSwitch: true,
}

// Envelope is the wire frame. Data holds the kind-specific payload and
// is decoded only after the kind is validated.
type Envelope struct {
	Type Kind            `json:"type"`
	Seq  int64           `json:"seq,omitempty"`
	TS   time.Time       `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeEnvelope parses and validates one inbound frame. Unknown kinds
// are an error, not a passthrough.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("relay: malformed frame: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("relay: frame missing type")
	}
	if !knownKinds[env.Type] {
		return Envelope{}, fmt.Errorf("relay: unknown message type %q", env.Type)
	}
	return env, nil
}

// AuthPayload carries the bridge credentials.
type AuthPayload struct {
	Key      string `json:"key"`
	TOTPCode string `json:"totpCode,omitempty"`
	Terminal string `json:"terminal,omitempty"`
}

// TickPayload is one price update from a bridge.
type TickPayload struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Spread float64   `json:"spread"` // pips
	Time   time.Time `json:"time"`
}

// AccountPayload is the periodic account snapshot from a bridge.
type AccountPayload struct {
	Account   model.AccountInfo `json:"account"`
	Positions []model.Position  `json:"positions"`
}

// OrderRequestPayload asks the bridge to act on the terminal. ID
// correlates the eventual order_result. Action selects what to do:
// place needs Order, close and modify need PositionID.
type OrderRequestPayload struct {
	ID         string      `json:"id"`
	Action     string      `json:"action"` // place, close, modify
	Order      model.Order `json:"order,omitempty"`
	PositionID string      `json:"positionId,omitempty"`
	SL         float64     `json:"sl,omitempty"`
	TP         float64     `json:"tp,omitempty"`
}

// OrderUpdatePayload reports a bridge-side position lifecycle event:
// a terminal position opened, closed or modified outside the core's
// own order flow. Profit and Pips are set on closes.
type OrderUpdatePayload struct {
	PositionID string     `json:"positionId"`
	Symbol     string     `json:"symbol"`
	Side       model.Side `json:"side"`
	Volume     float64    `json:"volume"`
	Price      float64    `json:"price"`
	Profit     *float64   `json:"profit,omitempty"`
	Pips       *float64   `json:"pips,omitempty"`
	Status     string     `json:"status"` // opened, closed, modified
}

// OrderResultPayload reports a bridge-side execution outcome.
type OrderResultPayload struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	OrderID string `json:"orderId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SubscribePayload narrows which symbols a dashboard client receives.
type SubscribePayload struct {
	Symbols []string `json:"symbols"`
}

// KillPayload explains a kill-switch broadcast.
type KillPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload is sent to a client on protocol violations.
type ErrorPayload struct {
	Message string `json:"message"`
}

func marshalEnvelope(kind Kind, seq int64, payload any) []byte {
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	out, _ := json.Marshal(Envelope{Type: kind, Seq: seq, TS: time.Now().UTC(), Data: raw})
	return out
}
