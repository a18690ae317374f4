// cmd/backtest replays historical candles through a strategy and
// prints the run statistics. History comes from the local SQLite
// store; when the window has no stored candles a synthetic series is
// generated instead.
//
// Usage:
//
//	go run ./cmd/backtest --strategy=ma-cross --symbol=EURUSD --from=2026-01-01 --to=2026-06-01
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fxbot/internal/backtest"
	"fxbot/internal/logger"
	sqlitestore "fxbot/internal/store/sqlite"
)

func main() {
	strategyID := flag.String("strategy", "ma-cross", "Strategy id: ma-cross, rsi-bands, scalper")
	symbol := flag.String("symbol", "EURUSD", "Symbol to simulate")
	timeframe := flag.String("tf", "H1", "Timeframe: M1, M5, M15, M30, H1, H4, D1")
	fromStr := flag.String("from", "", "Start date (YYYY-MM-DD), default 90 days ago")
	toStr := flag.String("to", "", "End date (YYYY-MM-DD), default today")
	balance := flag.Float64("balance", 10000, "Initial balance")
	spread := flag.Float64("spread", 1.0, "Spread in pips")
	slippage := flag.Float64("slippage", 0.5, "Slippage in pips")
	dbPath := flag.String("db", "data/fxbot.db", "Path to SQLite database")
	paramsJSON := flag.String("params", "", "Strategy params as JSON, e.g. {\"fastPeriod\":10}")
	flag.Parse()

	logger.Init("backtest", slog.LevelInfo)

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -90)
	to := now
	var err error
	if *fromStr != "" {
		if from, err = time.Parse("2006-01-02", *fromStr); err != nil {
			log.Fatalf("[backtest] invalid --from: %v", err)
		}
	}
	if *toStr != "" {
		if to, err = time.Parse("2006-01-02", *toStr); err != nil {
			log.Fatalf("[backtest] invalid --to: %v", err)
		}
	}
	if !to.After(from) {
		log.Fatal("[backtest] --to must be after --from")
	}

	cfg := backtest.Config{
		StrategyID:     *strategyID,
		Symbol:         *symbol,
		Timeframe:      *timeframe,
		StartDate:      from.Format("2006-01-02"),
		EndDate:        to.Format("2006-01-02"),
		InitialBalance: *balance,
		Spread:         *spread,
		Slippage:       *slippage,
	}
	if *paramsJSON != "" {
		if err := json.Unmarshal([]byte(*paramsJSON), &cfg.Params); err != nil {
			log.Fatalf("[backtest] invalid --params: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	store, err := sqlitestore.New(*dbPath)
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	defer store.Close()

	candles, err := store.ReadCandles(cfg.Symbol, cfg.Timeframe, from, to)
	if err != nil {
		log.Fatalf("[backtest] candle read failed: %v", err)
	}
	source := "sqlite"
	if len(candles) == 0 {
		candles = backtest.GenerateSampleCandles(cfg.Symbol, cfg.Timeframe, from, to, from.Unix())
		source = "synthetic"
	}
	slog.Info("backtest: loaded candles",
		slog.Int("count", len(candles)), slog.String("source", source))

	start := time.Now()
	result, err := backtest.Run(ctx, cfg, candles)
	if err != nil {
		log.Fatalf("[backtest] run failed: %v", err)
	}

	if err := store.SaveBacktestRun(cfg, result); err != nil {
		slog.Warn("backtest: run not persisted", slog.String("err", err.Error()))
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Strategy:      %-20s ║\n", cfg.StrategyID)
	fmt.Printf("║  Candles:       %-20d ║\n", len(candles))
	fmt.Printf("║  Trades:        %-20d ║\n", result.TotalTrades)
	fmt.Printf("║  Win rate:      %-19.1f%% ║\n", result.WinRate)
	fmt.Printf("║  Profit factor: %-20.2f ║\n", result.ProfitFactor)
	fmt.Printf("║  Total P/L:     $%-19.2f ║\n", result.TotalPnL)
	fmt.Printf("║  Max drawdown:  %-19.2f%% ║\n", result.MaxDrawdownPct)
	fmt.Printf("║  Sharpe:        %-20.2f ║\n", result.SharpeRatio)
	fmt.Printf("║  Duration:      %-20s ║\n", time.Since(start).Round(time.Millisecond))
	fmt.Println("╚══════════════════════════════════════╝")
}
