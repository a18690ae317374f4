package strategy

import (
	"log/slog"
	"time"

	"fxbot/internal/model"
)

// BatchResult is the outcome of evaluating a set of strategy configs
// against one market snapshot.
type BatchResult struct {
	Signals   []model.Signal `json:"signals"`
	Evaluated []string       `json:"evaluated"`
	Timestamp time.Time      `json:"timestamp"`
}

// EvaluateAll runs every enabled config whose symbol has candles of
// the config's timeframe and collects the actionable signals. A config
// with no timeframe set matches any series. Hold signals are dropped;
// skipped configs are not listed as evaluated. A config with an
// unknown id falls back to the default strategy, logged.
func EvaluateAll(cfgs []Config, candles map[string][]model.Candle, positions []model.Position, now time.Time) BatchResult {
	result := BatchResult{
		Signals:   []model.Signal{},
		Evaluated: []string{},
		Timestamp: now,
	}

	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		series, ok := candles[cfg.Symbol]
		if !ok || len(series) == 0 {
			continue
		}
		if cfg.Timeframe != "" && series[0].Timeframe != "" && series[0].Timeframe != cfg.Timeframe {
			continue
		}

		id, err := ParseID(string(cfg.ID))
		if err != nil {
			slog.Warn("strategy: unknown id in config, using default",
				slog.String("id", string(cfg.ID)),
				slog.String("default", string(DefaultID)))
			id = DefaultID
		}
		strat, err := New(id, cfg.Params)
		if err != nil {
			slog.Error("strategy: construct failed", slog.String("err", err.Error()))
			continue
		}

		var open *model.Position
		for i := range positions {
			if positions[i].Symbol == cfg.Symbol {
				open = &positions[i]
				break
			}
		}

		result.Evaluated = append(result.Evaluated, cfg.Name)
		sig := strat.Evaluate(series, open, now)
		if sig == nil || sig.Type == model.SignalHold {
			continue
		}
		if sig.Symbol == "" {
			sig.Symbol = cfg.Symbol
		}
		if sig.Strategy == "" {
			sig.Strategy = string(id)
		}
		result.Signals = append(result.Signals, *sig)
	}
	return result
}
