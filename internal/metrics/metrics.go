// Package metrics exposes Prometheus instrumentation and the health
// endpoint for the decision core.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the decision core.
type Metrics struct {
	EvaluationsTotal *prometheus.CounterVec // labels: strategy
	SignalsTotal     *prometheus.CounterVec // labels: strategy, type
	EvaluationDur    prometheus.Histogram

	RiskChecksTotal     prometheus.Counter
	RiskRejectionsTotal *prometheus.CounterVec // labels: check

	BacktestRunsTotal prometheus.Counter
	BacktestDur       prometheus.Histogram

	RelayClients       prometheus.Gauge
	OrderRequestsTotal prometheus.Counter
	KillSwitchTotal    prometheus.Counter
}

// New registers and returns the metric set.
func New() *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxbot_strategy_evaluations_total",
			Help: "Strategy evaluations performed (by strategy)",
		}, []string{"strategy"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxbot_signals_total",
			Help: "Signals emitted (by strategy and signal type)",
		}, []string{"strategy", "type"}),
		EvaluationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxbot_evaluation_duration_seconds",
			Help:    "Strategy evaluation latency per request",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		RiskChecksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxbot_risk_checks_total",
			Help: "Risk evaluations performed",
		}),
		RiskRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxbot_risk_rejections_total",
			Help: "Risk rejections (by failing check)",
		}, []string{"check"}),

		BacktestRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxbot_backtest_runs_total",
			Help: "Backtest runs completed",
		}),
		BacktestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxbot_backtest_duration_seconds",
			Help:    "Backtest run duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),

		RelayClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxbot_relay_clients",
			Help: "Currently connected relay WebSocket clients",
		}),
		OrderRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxbot_order_requests_total",
			Help: "Order requests forwarded to the bridge",
		}),
		KillSwitchTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxbot_kill_switch_total",
			Help: "Kill switch activations",
		}),
	}

	prometheus.MustRegister(
		m.EvaluationsTotal,
		m.SignalsTotal,
		m.EvaluationDur,
		m.RiskChecksTotal,
		m.RiskRejectionsTotal,
		m.BacktestRunsTotal,
		m.BacktestDur,
		m.RelayClients,
		m.OrderRequestsTotal,
		m.KillSwitchTotal,
	)
	return m
}

// HealthStatus tracks dependency health for the /api/health endpoint.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected  bool
	SQLiteOK        bool
	BridgeConnected bool

	RedisLatencyMs  float64
	SQLiteLatencyMs float64
	LastCheckAt     time.Time
	StartedAt       time.Time
}

// NewHealthStatus returns a health status anchored at startup time.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetBridgeConnected(v bool) {
	h.mu.Lock()
	h.BridgeConnected = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency and connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency and health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency probes until ctx is
// cancelled. Nil dependencies are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if db != nil {
					h.CheckSQLite(probeCtx, db)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP answers the health endpoint. Degraded dependencies return
// 503 so load balancers can react.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.RedisConnected || !h.SQLiteOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	out := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redisConnected"`
		RedisLatencyMs  float64 `json:"redisLatencyMs"`
		SQLiteOK        bool    `json:"sqliteOk"`
		SQLiteLatencyMs float64 `json:"sqliteLatencyMs"`
		BridgeConnected bool    `json:"bridgeConnected"`
		LastCheckAt     string  `json:"lastCheckAt"`
	}{
		Status:          status,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		BridgeConnected: h.BridgeConnected,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(out)
}

// Server exposes /metrics and /healthz on a dedicated listener.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates the metrics server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics: server listening", slog.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("metrics: server error", slog.String("err", err.Error()))
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
