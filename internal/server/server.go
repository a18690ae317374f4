// Package server wires the decision core's HTTP surface: strategy and
// risk evaluation, backtesting, settings, and the relay WebSocket.
package server

import (
	"encoding/json"
	"net/http"

	"fxbot/internal/metrics"
	"fxbot/internal/notify"
	"fxbot/internal/relay"
	"fxbot/internal/settings"
	"fxbot/internal/store/sqlite"
)

// Server holds the handler dependencies.
type Server struct {
	Hub      *relay.Hub
	Settings *settings.Store
	DB       *sqlite.Store
	Metrics  *metrics.Metrics
	Health   *metrics.HealthStatus
	Notifier notify.Notifier
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Routes registers all HTTP routes on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.Hub.HandleWS)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/missed", s.handleMissed)

	mux.HandleFunc("/api/strategy/evaluate", post(s.handleStrategyEvaluate))
	mux.HandleFunc("/api/risk/evaluate", post(s.handleRiskEvaluate))
	mux.HandleFunc("/api/backtest/run", post(s.handleBacktestRun))

	mux.HandleFunc("/api/settings/risk", s.handleRiskSettings)
	mux.HandleFunc("/api/settings/strategies", s.handleStrategySettings)

	mux.HandleFunc("/api/trading/start", post(s.handleTradingStart))
	mux.HandleFunc("/api/trading/stop", post(s.handleTradingStop))
	mux.HandleFunc("/api/killswitch", post(s.handleKillSwitch))

	return mux
}

// post wraps a handler so only POST (and CORS preflight) reach it.
func post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
