// Package aggregate builds OHLC candles from the tick stream relayed
// by terminal bridges. Completed candles feed the SQLite history used
// for backtesting.
package aggregate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fxbot/internal/model"
	"fxbot/internal/relay"
)

// candleState holds the in-progress candle for one symbol in the
// current time bucket.
type candleState struct {
	bucket int64
	candle model.Candle
}

// Aggregator folds ticks into fixed-interval candles, one series per
// symbol. Candles are finalized when their bucket rolls over.
type Aggregator struct {
	mu     sync.Mutex
	states map[string]*candleState

	interval  time.Duration
	timeframe string

	// OnDroppedTick, when set, is called for late ticks that land in
	// an already-finalized bucket.
	OnDroppedTick func()
}

// New creates an aggregator producing candles of the given timeframe
// code (M1, M5, M15, M30, H1, H4, D1).
func New(timeframe string) *Aggregator {
	return &Aggregator{
		states:    make(map[string]*candleState),
		interval:  timeframeDuration(timeframe),
		timeframe: timeframe,
	}
}

func timeframeDuration(tf string) time.Duration {
	switch tf {
	case "M1":
		return time.Minute
	case "M5":
		return 5 * time.Minute
	case "M15":
		return 15 * time.Minute
	case "M30":
		return 30 * time.Minute
	case "H4":
		return 4 * time.Hour
	case "D1":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// Run consumes ticks from tickCh and sends finalized candles to
// candleCh. Blocks until ctx is cancelled or tickCh closes; open
// candles are flushed on exit.
func (a *Aggregator) Run(ctx context.Context, tickCh <-chan relay.TickPayload, candleCh chan<- model.Candle) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.flushAll(candleCh)
			return
		case tick, ok := <-tickCh:
			if !ok {
				a.flushAll(candleCh)
				return
			}
			a.processTick(tick, candleCh)
		case <-ticker.C:
			a.flushOld(candleCh)
		}
	}
}

func (a *Aggregator) processTick(tick relay.TickPayload, candleCh chan<- model.Candle) {
	sec := int64(a.interval / time.Second)
	bucket := tick.Time.Unix() - tick.Time.Unix()%sec
	mid := (tick.Bid + tick.Ask) / 2

	a.mu.Lock()
	defer a.mu.Unlock()

	state, exists := a.states[tick.Symbol]

	if exists && bucket < state.bucket {
		if a.OnDroppedTick != nil {
			a.OnDroppedTick()
		}
		return
	}

	if exists && bucket > state.bucket {
		a.emit(state, candleCh)
		delete(a.states, tick.Symbol)
		exists = false
	}

	if !exists {
		a.states[tick.Symbol] = &candleState{
			bucket: bucket,
			candle: model.Candle{
				Symbol:    tick.Symbol,
				Timeframe: a.timeframe,
				Time:      time.Unix(bucket, 0).UTC(),
				Open:      mid,
				High:      mid,
				Low:       mid,
				Close:     mid,
				Volume:    1,
			},
		}
		return
	}

	c := &state.candle
	if mid > c.High {
		c.High = mid
	}
	if mid < c.Low {
		c.Low = mid
	}
	c.Close = mid
	c.Volume++
}

// flushOld emits candles whose bucket has fully elapsed.
func (a *Aggregator) flushOld(candleCh chan<- model.Candle) {
	cutoff := time.Now().Unix() - int64(a.interval/time.Second)

	a.mu.Lock()
	defer a.mu.Unlock()

	for key, state := range a.states {
		if state.bucket <= cutoff {
			a.emit(state, candleCh)
			delete(a.states, key)
		}
	}
}

func (a *Aggregator) flushAll(candleCh chan<- model.Candle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, state := range a.states {
		a.emit(state, candleCh)
		delete(a.states, key)
	}
}

// emit is non-blocking so a stalled writer cannot back up the tick
// path.
func (a *Aggregator) emit(state *candleState, candleCh chan<- model.Candle) {
	select {
	case candleCh <- state.candle:
	default:
		slog.Warn("aggregate: candle channel full, dropping",
			slog.String("key", state.candle.Key()))
	}
}
