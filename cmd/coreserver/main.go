// cmd/coreserver runs the trading decision core: the REST API for
// strategy, risk and backtest evaluation, the relay WebSocket for
// terminal bridges, and the Prometheus metrics listener.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fxbot/config"
	"fxbot/internal/aggregate"
	"fxbot/internal/logger"
	"fxbot/internal/metrics"
	"fxbot/internal/model"
	"fxbot/internal/notify"
	"fxbot/internal/relay"
	"fxbot/internal/server"
	"fxbot/internal/settings"
	sqlitestore "fxbot/internal/store/sqlite"
)

func main() {
	cfg := config.Load()
	logger.Init("coreserver", parseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	health := metrics.NewHealthStatus()

	store, err := sqlitestore.New(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[coreserver] sqlite open failed: %v", err)
	}
	defer store.Close()

	settingsStore, err := settings.NewStore(settings.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("[coreserver] redis connect failed: %v", err)
	}
	defer settingsStore.Close()

	go settingsStore.Watch(ctx, func(key string) {
		slog.Info("coreserver: settings updated", slog.String("key", key))
	})

	health.StartLivenessChecker(ctx, settingsStore.Client(), store.DB(), 15*time.Second)

	notifier := buildNotifier(cfg)

	auth, err := relay.NewAuthenticator(cfg.BridgeKey, cfg.BridgeTOTPSecret)
	if err != nil {
		log.Fatalf("[coreserver] %v", err)
	}
	hub := relay.NewHub(auth, 500)
	hub.ClientGauge = func(n int) { m.RelayClients.Set(float64(n)) }
	hub.OnOrderRequest = m.OrderRequestsTotal.Inc
	hub.OnOrderUpdate = func(u relay.OrderUpdatePayload) {
		if u.Status != "opened" && u.Status != "closed" {
			return
		}
		alert := notify.TradeAlert(notify.TradeEvent{
			Action: u.Status,
			Symbol: u.Symbol,
			Side:   u.Side,
			Volume: u.Volume,
			Price:  u.Price,
			PnL:    u.Profit,
			Pips:   u.Pips,
		})
		go notifier.Send(context.Background(), alert)
	}

	// Bridge ticks roll up into M1 candles persisted for backtesting.
	tickCh := make(chan relay.TickPayload, 1024)
	candleCh := make(chan model.Candle, 256)
	hub.OnTick = func(t relay.TickPayload) {
		select {
		case tickCh <- t:
		default:
		}
	}
	agg := aggregate.New("M1")
	go agg.Run(ctx, tickCh, candleCh)
	go store.RunWriter(ctx, candleCh)

	srv := &server.Server{
		Hub:      hub,
		Settings: settingsStore,
		DB:       store,
		Metrics:  m,
		Health:   health,
		Notifier: notifier,
	}

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		slog.Info("coreserver: listening", slog.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[coreserver] http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("coreserver: shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	channels := []notify.Notifier{notify.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		channels = append(channels, notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, notify.NewWebhook(cfg.WebhookURL))
	}
	return notify.NewMulti(channels...)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
