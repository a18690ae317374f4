package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fxbot/internal/model"
	"fxbot/internal/risk"
)

// Paper simulates execution in process. Fills happen at the price fed
// via UpdatePrice plus configured slippage; no external venue is
// involved.
type Paper struct {
	mu        sync.RWMutex
	connected bool
	balance   float64
	positions map[string]*model.Position
	prices    map[string]float64
	orderSeq  int64

	slippagePips float64
}

// NewPaper creates a paper adapter with the given starting balance.
func NewPaper(startingBalance, slippagePips float64) *Paper {
	return &Paper{
		balance:      startingBalance,
		positions:    make(map[string]*model.Position),
		prices:       make(map[string]float64),
		slippagePips: slippagePips,
	}
}

// UpdatePrice feeds a current market price and revalues open
// positions on that symbol.
func (p *Paper) UpdatePrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
	for _, pos := range p.positions {
		if pos.Symbol != symbol {
			continue
		}
		pos.CurrentPrice = price
		pos.Profit = p.unrealized(pos)
	}
}

func (p *Paper) unrealized(pos *model.Position) float64 {
	var pips float64
	if pos.Side == model.SideBuy {
		pips = (pos.CurrentPrice - pos.OpenPrice) / risk.PipSize(pos.Symbol)
	} else {
		pips = (pos.OpenPrice - pos.CurrentPrice) / risk.PipSize(pos.Symbol)
	}
	return pips * risk.PipValue(pos.Symbol, pos.Volume)
}

func (p *Paper) Connect(context.Context) error {
	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
	slog.Info("broker: paper adapter connected")
	return nil
}

func (p *Paper) Disconnect() error {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	return nil
}

func (p *Paper) AccountInfo(context.Context) (model.AccountInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	equity := p.balance
	var margin float64
	for _, pos := range p.positions {
		equity += pos.Profit
		margin += pos.Volume * pos.OpenPrice * 100000 / 100
	}
	return model.AccountInfo{
		Balance:    p.balance,
		Equity:     equity,
		Margin:     margin,
		FreeMargin: equity - margin,
		Currency:   "USD",
	}, nil
}

func (p *Paper) Positions(context.Context) ([]model.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out, nil
}

func (p *Paper) PlaceOrder(_ context.Context, req OrderRequest) (OrderResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return OrderResponse{Success: false, Error: "not connected"}, fmt.Errorf("broker: paper adapter not connected")
	}
	price, ok := p.prices[req.Symbol]
	if !ok {
		return OrderResponse{Success: false, Error: "no market price"}, fmt.Errorf("broker: no price for %s", req.Symbol)
	}

	slip := p.slippagePips * risk.PipSize(req.Symbol)
	if req.Side == model.SideBuy {
		price += slip
	} else {
		price -= slip
	}

	p.orderSeq++
	id := fmt.Sprintf("PAPER-%d", p.orderSeq)
	p.positions[id] = &model.Position{
		ID:           id,
		Symbol:       req.Symbol,
		Side:         req.Side,
		Volume:       req.Volume,
		OpenPrice:    price,
		CurrentPrice: price,
		SL:           req.SLPrice,
		TP:           req.TPPrice,
		OpenTime:     time.Now().UTC(),
	}

	slog.Info("broker: paper fill",
		slog.String("order", id), slog.String("symbol", req.Symbol),
		slog.String("side", string(req.Side)), slog.Float64("volume", req.Volume),
		slog.Float64("price", price))
	return OrderResponse{Success: true, OrderID: id}, nil
}

func (p *Paper) ClosePosition(_ context.Context, positionID string) (OrderResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[positionID]
	if !ok {
		return OrderResponse{Success: false, Error: "position not found"}, fmt.Errorf("broker: position %s not found", positionID)
	}
	p.balance += pos.Profit
	delete(p.positions, positionID)

	slog.Info("broker: paper close",
		slog.String("order", positionID), slog.Float64("profit", pos.Profit))
	return OrderResponse{Success: true, OrderID: positionID}, nil
}

func (p *Paper) ModifyPosition(_ context.Context, positionID string, sl, tp float64) (OrderResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[positionID]
	if !ok {
		return OrderResponse{Success: false, Error: "position not found"}, fmt.Errorf("broker: position %s not found", positionID)
	}
	if sl > 0 {
		pos.SL = sl
	}
	if tp > 0 {
		pos.TP = tp
	}
	return OrderResponse{Success: true, OrderID: positionID}, nil
}
