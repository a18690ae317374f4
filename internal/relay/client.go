package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"fxbot/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 1 << 16
)

// Client is one WebSocket peer: a terminal bridge once authenticated,
// a read-only dashboard otherwise.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	authed atomic.Bool

	subMu sync.RWMutex
	subs  map[string]bool // symbol filter; empty means all
}

// enqueue drops the frame when the client's queue is full rather than
// blocking the hub.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

// wants reports whether the client's subscription covers symbol.
func (c *Client) wants(symbol string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if len(c.subs) == 0 {
		return true
	}
	return c.subs[symbol]
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			// Coalesce queued frames into one write, newline separated.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		slog.Info("relay: client disconnected")
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := DecodeEnvelope(raw)
		if err != nil {
			c.sendError(err.Error())
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	switch env.Type {
	case KindAuth:
		c.handleAuth(env.Data)

	case KindPing:
		c.enqueue(marshalEnvelope(KindPong, c.hub.nextSeq(), map[string]int64{
			"serverTs": time.Now().UnixMilli(),
		}))

	case KindPong:
		// Deadline already extended by the pong handler.

	case KindSubscribe:
		var p SubscribePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.sendError("invalid subscribe payload")
			return
		}
		c.subMu.Lock()
		c.subs = make(map[string]bool, len(p.Symbols))
		for _, s := range p.Symbols {
			c.subs[s] = true
		}
		c.subMu.Unlock()

	case KindTick:
		if !c.requireAuth() {
			return
		}
		var p TickPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Symbol == "" {
			c.sendError("invalid tick payload")
			return
		}
		c.hub.storeTick(p)
		c.hub.fanOutMarket(KindTick, p.Symbol, p, c)

	case KindCandle:
		if !c.requireAuth() {
			return
		}
		var cd model.Candle
		if err := json.Unmarshal(env.Data, &cd); err != nil || cd.Symbol == "" {
			c.sendError("invalid candle payload")
			return
		}
		c.hub.fanOutMarket(KindCandle, cd.Symbol, cd, c)

	case KindAccountUpdate:
		if !c.requireAuth() {
			return
		}
		var p AccountPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.sendError("invalid account payload")
			return
		}
		c.hub.storeAccount(p)
		c.hub.fanOutMarket(KindAccountUpdate, "", p, c)

	case KindOrderUpdate:
		if !c.requireAuth() {
			return
		}
		var p OrderUpdatePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Symbol == "" {
			c.sendError("invalid order update payload")
			return
		}
		c.hub.fanOutMarket(KindOrderUpdate, "", p, c)
		if c.hub.OnOrderUpdate != nil {
			c.hub.OnOrderUpdate(p)
		}

	case KindOrderResult:
		if !c.requireAuth() {
			return
		}
		var p OrderResultPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.sendError("invalid order result payload")
			return
		}
		if !p.Success {
			slog.Warn("relay: order failed",
				slog.String("id", p.ID), slog.String("error", p.Error))
		}
		c.hub.fanOutMarket(KindOrderResult, "", p, c)

	case KindStartTrading:
		if c.requireAuth() {
			c.hub.StartTrading()
		}

	case KindStopTrading:
		if c.requireAuth() {
			c.hub.StopTrading()
		}

	case KindKillSwitch:
		if c.requireAuth() {
			var p KillPayload
			json.Unmarshal(env.Data, &p)
			if p.Reason == "" {
				p.Reason = "manual kill switch"
			}
			c.hub.KillSwitch(p.Reason)
		}
	}
}

func (c *Client) handleAuth(data json.RawMessage) {
	var p AuthPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.enqueue(marshalEnvelope(KindAuthFailed, c.hub.nextSeq(), ErrorPayload{Message: "invalid auth payload"}))
		return
	}
	if err := c.hub.auth.Verify(p, time.Now()); err != nil {
		slog.Warn("relay: auth failed", slog.String("terminal", p.Terminal))
		c.enqueue(marshalEnvelope(KindAuthFailed, c.hub.nextSeq(), ErrorPayload{Message: err.Error()}))
		return
	}
	c.authed.Store(true)
	slog.Info("relay: bridge authenticated", slog.String("terminal", p.Terminal))
	c.enqueue(marshalEnvelope(KindAuthSuccess, c.hub.nextSeq(), nil))
}

// requireAuth rejects privileged frames from unauthenticated peers.
func (c *Client) requireAuth() bool {
	if c.authed.Load() {
		return true
	}
	c.sendError("authentication required")
	return false
}

func (c *Client) sendError(msg string) {
	c.enqueue(marshalEnvelope(KindError, c.hub.nextSeq(), ErrorPayload{Message: msg}))
}
