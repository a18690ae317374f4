package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fxbot/internal/backtest"
	"fxbot/internal/model"
	"fxbot/internal/notify"
	"fxbot/internal/risk"
	"fxbot/internal/strategy"
)

type evaluateRequest struct {
	Candles    map[string][]model.Candle `json:"candles"`
	Strategies []strategy.Config         `json:"strategies,omitempty"`
	Positions  []model.Position          `json:"positions,omitempty"`
}

// handleStrategyEvaluate runs the configured strategies over the
// submitted candles. A bad request fails closed: no signals.
func (s *Server) handleStrategyEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, strategy.BatchResult{
			Signals: []model.Signal{}, Evaluated: []string{}, Timestamp: time.Now().UTC(),
		})
		return
	}
	if len(req.Candles) == 0 {
		writeJSON(w, http.StatusBadRequest, strategy.BatchResult{
			Signals: []model.Signal{}, Evaluated: []string{}, Timestamp: time.Now().UTC(),
		})
		return
	}

	cfgs := req.Strategies
	if len(cfgs) == 0 && s.Settings != nil {
		cfgs = s.Settings.StrategyConfigs(r.Context())
	}

	start := time.Now()
	result := strategy.EvaluateAll(cfgs, req.Candles, req.Positions, time.Now().UTC())
	s.Metrics.EvaluationDur.Observe(time.Since(start).Seconds())
	for _, name := range result.Evaluated {
		s.Metrics.EvaluationsTotal.WithLabelValues(name).Inc()
	}
	for _, sig := range result.Signals {
		s.Metrics.SignalsTotal.WithLabelValues(sig.Strategy, string(sig.Type)).Inc()
	}

	writeJSON(w, http.StatusOK, result)
}

type riskRequest struct {
	Signal        model.Signal      `json:"signal"`
	Account       model.AccountInfo `json:"account"`
	Positions     []model.Position  `json:"positions"`
	Settings      *risk.Settings    `json:"settings,omitempty"`
	Stats         risk.DailyStats   `json:"stats"`
	CurrentPrice  float64           `json:"currentPrice"`
	CurrentSpread float64           `json:"currentSpread"`
}

// handleRiskEvaluate gates one signal. A bad request fails closed:
// approved false.
func (s *Server) handleRiskEvaluate(w http.ResponseWriter, r *http.Request) {
	var req riskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, risk.CheckResult{
			Approved: false, Reason: "invalid request body", Warnings: []string{},
		})
		return
	}

	cfg := risk.DefaultSettings()
	if req.Settings != nil {
		cfg = *req.Settings
	} else if s.Settings != nil {
		cfg = s.Settings.RiskSettings(r.Context())
	}

	result := risk.Evaluate(req.Signal, req.Account, req.Positions, cfg,
		req.Stats, req.CurrentPrice, req.CurrentSpread, time.Now().UTC())

	s.Metrics.RiskChecksTotal.Inc()
	if !result.Approved && result.Reason != "" {
		s.Metrics.RiskRejectionsTotal.WithLabelValues(classifyRejection(result.Reason)).Inc()
		if strings.Contains(result.Reason, "drawdown") && s.Notifier != nil {
			go s.Notifier.Send(context.Background(),
				notify.RiskAlert("Trade rejected", result.Reason))
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// classifyRejection maps a rejection reason to a stable metric label.
func classifyRejection(reason string) string {
	switch {
	case strings.HasPrefix(reason, "Trading blocked"):
		return "session"
	case strings.HasPrefix(reason, "Hard stop-loss"):
		return "hard_sl"
	case strings.HasPrefix(reason, "Max concurrent"):
		return "max_concurrent"
	case strings.HasPrefix(reason, "Max daily"):
		return "max_per_day"
	case strings.HasPrefix(reason, "Daily drawdown"):
		return "daily_drawdown"
	case strings.HasPrefix(reason, "Weekly drawdown"):
		return "weekly_drawdown"
	case strings.HasPrefix(reason, "Spread"):
		return "spread"
	case strings.HasPrefix(reason, "Duplicate"):
		return "duplicate"
	case strings.HasPrefix(reason, "Insufficient margin"):
		return "margin"
	default:
		return "other"
	}
}

// handleBacktestRun simulates a strategy over stored history, falling
// back to synthetic candles when no history exists for the window.
func (s *Server) handleBacktestRun(w http.ResponseWriter, r *http.Request) {
	var cfg backtest.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := parseDate(cfg.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid startDate: %v", err))
		return
	}
	end, err := parseDate(cfg.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid endDate: %v", err))
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "endDate must be after startDate")
		return
	}
	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = 10000
	}
	if cfg.Symbol == "" {
		cfg.Symbol = "EURUSD"
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "H1"
	}

	candles, err := s.DB.ReadCandles(cfg.Symbol, cfg.Timeframe, start, end)
	if err != nil {
		slog.Warn("server: candle read failed, using synthetic data", slog.String("err", err.Error()))
	}
	if len(candles) == 0 {
		candles = backtest.GenerateSampleCandles(cfg.Symbol, cfg.Timeframe, start, end, start.Unix())
	}

	runStart := time.Now()
	result, err := backtest.Run(r.Context(), cfg, candles)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.Metrics.BacktestRunsTotal.Inc()
	s.Metrics.BacktestDur.Observe(time.Since(runStart).Seconds())

	if err := s.DB.SaveBacktestRun(cfg, result); err != nil {
		slog.Warn("server: backtest run not persisted", slog.String("err", err.Error()))
	}
	if s.Notifier != nil {
		go s.Notifier.Send(context.Background(), notify.ReportAlert(
			"backtest", result.TotalTrades, result.WinRate, result.TotalPnL, result.MaxDrawdownPct))
	}

	writeJSON(w, http.StatusOK, result)
}

// parseDate accepts RFC3339 timestamps or bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	s.Health.SetBridgeConnected(s.Hub.ClientCount() > 0)
	s.Health.ServeHTTP(w, r)
}

// handleMissed backfills broadcast envelopes newer than the client's
// last seen sequence number.
func (s *Server) handleMissed(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
	frames := s.Hub.Missed(after)

	out := make([]json.RawMessage, len(frames))
	for i, f := range frames {
		out[i] = json.RawMessage(f)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRiskSettings(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.Settings.RiskSettings(r.Context()))
	case http.MethodPost:
		var cfg risk.Settings
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if err := s.Settings.SaveRiskSettings(r.Context(), cfg); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleStrategySettings(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.Settings.StrategyConfigs(r.Context()))
	case http.MethodPost:
		var cfgs []strategy.Config
		if err := json.NewDecoder(r.Body).Decode(&cfgs); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if err := s.Settings.SaveStrategyConfigs(r.Context(), cfgs); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleTradingStart(w http.ResponseWriter, _ *http.Request) {
	s.Hub.StartTrading()
	writeJSON(w, http.StatusOK, map[string]any{"tradingActive": true})
}

func (s *Server) handleTradingStop(w http.ResponseWriter, _ *http.Request) {
	s.Hub.StopTrading()
	writeJSON(w, http.StatusOK, map[string]any{"tradingActive": false})
}

func (s *Server) handleKillSwitch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	if body.Reason == "" {
		body.Reason = "manual kill switch"
	}

	s.Hub.KillSwitch(body.Reason)
	s.Metrics.KillSwitchTotal.Inc()
	if s.Notifier != nil {
		go s.Notifier.Send(context.Background(), notify.KillSwitchAlert(body.Reason))
	}
	writeJSON(w, http.StatusOK, map[string]any{"halted": true, "reason": body.Reason})
}
