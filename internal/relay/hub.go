package relay

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Hub owns the connected relay clients and the shared trading state.
// All registry state lives on the instance so two hubs in one process
// never share clients.
type Hub struct {
	auth   *Authenticator
	replay *ReplayBuffer

	mu      sync.RWMutex
	clients map[*Client]bool
	ticks   map[string]TickPayload
	account *AccountPayload

	seq      atomic.Int64
	orderSeq atomic.Int64

	// tradingActive gates automated evaluation; halted is the latched
	// kill switch and wins over everything.
	tradingActive atomic.Bool
	halted        atomic.Bool

	// ClientGauge, when set, is called with the client count after
	// every register/remove.
	ClientGauge func(n int)

	// OnTick, when set, observes every tick accepted from a bridge.
	// Must not block.
	OnTick func(t TickPayload)

	// OnOrderRequest, when set, is called once per order request
	// successfully forwarded to a bridge.
	OnOrderRequest func()

	// OnOrderUpdate, when set, observes every position lifecycle event
	// accepted from a bridge. Must not block.
	OnOrderUpdate func(p OrderUpdatePayload)

	upgrader websocket.Upgrader
}

// NewHub creates a hub with an empty registry. Trading starts inactive
// until a start_trading message or an explicit SetTradingActive.
func NewHub(auth *Authenticator, replayCapacity int) *Hub {
	return &Hub{
		auth:    auth,
		replay:  NewReplayBuffer(replayCapacity),
		clients: make(map[*Client]bool),
		ticks:   make(map[string]TickPayload),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// HandleWS upgrades the request and registers the client. The greeting
// tells the peer whether authentication is required before it can act
// as a bridge.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("relay: ws upgrade failed", slog.String("err", err.Error()))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
		subs: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.reportClients(count)

	slog.Info("relay: client connected", slog.Int("total", count))

	client.enqueue(marshalEnvelope(KindConnected, h.nextSeq(), map[string]any{
		"authRequired":  true,
		"tradingActive": h.tradingActive.Load(),
		"halted":        h.halted.Load(),
	}))

	go client.writePump()
	go client.readPump()
}

// RemoveClient drops a client from the registry and closes its queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	h.reportClients(count)
	close(c.send)
}

// Broadcast fans an envelope of the given kind out to every client and
// records it for replay.
func (h *Hub) Broadcast(kind Kind, payload any) {
	seq := h.nextSeq()
	data := marshalEnvelope(kind, seq, payload)
	h.replay.Push(seq, data)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(data)
	}
}

// SendOrderRequest forwards a sized order to every authenticated
// bridge and returns the correlation id carried by the eventual
// order_result. Fails when trading is halted or no bridge is connected.
func (h *Hub) SendOrderRequest(p OrderRequestPayload) (string, error) {
	if h.halted.Load() {
		return "", fmt.Errorf("relay: trading halted by kill switch")
	}
	if p.ID == "" {
		p.ID = fmt.Sprintf("ord-%d-%d", time.Now().UnixMilli(), h.orderSeq.Add(1))
	}
	data := marshalEnvelope(KindOrderRequest, h.nextSeq(), p)

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.clients {
		if c.authed.Load() {
			c.enqueue(data)
			sent++
		}
	}
	if sent == 0 {
		return "", fmt.Errorf("relay: no authenticated bridge connected")
	}
	if h.OnOrderRequest != nil {
		h.OnOrderRequest()
	}
	return p.ID, nil
}

// KillSwitch latches the halt flag and tells every client. The latch
// survives until StartTrading resets it explicitly.
func (h *Hub) KillSwitch(reason string) {
	h.halted.Store(true)
	h.tradingActive.Store(false)
	slog.Warn("relay: kill switch engaged", slog.String("reason", reason))
	h.Broadcast(KindKillSwitch, KillPayload{Reason: reason})
}

// StartTrading enables automated evaluation and clears a prior halt.
func (h *Hub) StartTrading() {
	h.halted.Store(false)
	h.tradingActive.Store(true)
	h.Broadcast(KindStartTrading, nil)
}

// StopTrading pauses automated evaluation without latching a halt.
func (h *Hub) StopTrading() {
	h.tradingActive.Store(false)
	h.Broadcast(KindStopTrading, nil)
}

// TradingActive reports whether automated evaluation may run.
func (h *Hub) TradingActive() bool {
	return h.tradingActive.Load() && !h.halted.Load()
}

// Halted reports whether the kill switch is latched.
func (h *Hub) Halted() bool { return h.halted.Load() }

// LatestTick returns the most recent tick seen for symbol.
func (h *Hub) LatestTick(symbol string) (TickPayload, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.ticks[symbol]
	return t, ok
}

// Account returns the most recent bridge account snapshot.
func (h *Hub) Account() (AccountPayload, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.account == nil {
		return AccountPayload{}, false
	}
	return *h.account, true
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Missed returns replayable envelopes newer than afterSeq.
func (h *Hub) Missed(afterSeq int64) [][]byte {
	return h.replay.Since(afterSeq)
}

func (h *Hub) storeTick(t TickPayload) {
	h.mu.Lock()
	h.ticks[t.Symbol] = t
	h.mu.Unlock()
	if h.OnTick != nil {
		h.OnTick(t)
	}
}

func (h *Hub) storeAccount(p AccountPayload) {
	h.mu.Lock()
	h.account = &p
	h.mu.Unlock()
}

// fanOutMarket delivers a market-data envelope to every client whose
// subscription covers symbol, skipping the originator.
func (h *Hub) fanOutMarket(kind Kind, symbol string, payload any, from *Client) {
	seq := h.nextSeq()
	data := marshalEnvelope(kind, seq, payload)
	h.replay.Push(seq, data)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c == from || !c.wants(symbol) {
			continue
		}
		c.enqueue(data)
	}
}

func (h *Hub) nextSeq() int64 { return h.seq.Add(1) }

func (h *Hub) reportClients(n int) {
	if h.ClientGauge != nil {
		h.ClientGauge(n)
	}
}
