// Package settings persists risk limits and strategy configuration in
// Redis so the dashboard and the decision core share one source of
// truth. Missing keys fall back to compiled defaults, never to an
// error.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"fxbot/internal/risk"
	"fxbot/internal/strategy"
)

const (
	riskKey       = "settings:risk"
	strategiesKey = "settings:strategies"
	updateChannel = "settings:updated"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store reads and writes settings documents in Redis.
type Store struct {
	client *goredis.Client
}

// NewStore connects to Redis and pings it before returning.
func NewStore(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("settings: redis ping: %w", err)
	}

	slog.Info("settings: connected to redis", slog.String("addr", cfg.Addr))
	return &Store{client: client}, nil
}

// RiskSettings loads the stored risk limits, or the defaults when none
// are stored or the stored document is unreadable.
func (s *Store) RiskSettings(ctx context.Context) risk.Settings {
	data, err := s.client.Get(ctx, riskKey).Result()
	if err != nil {
		if err != goredis.Nil {
			slog.Warn("settings: risk load failed, using defaults", slog.String("err", err.Error()))
		}
		return risk.DefaultSettings()
	}

	var out risk.Settings
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		slog.Warn("settings: risk document malformed, using defaults", slog.String("err", err.Error()))
		return risk.DefaultSettings()
	}
	return out
}

// SaveRiskSettings stores the risk limits and notifies watchers.
func (s *Store) SaveRiskSettings(ctx context.Context, v risk.Settings) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("settings: marshal risk: %w", err)
	}
	if err := s.client.Set(ctx, riskKey, string(data), 0).Err(); err != nil {
		return fmt.Errorf("settings: save risk: %w", err)
	}
	s.client.Publish(ctx, updateChannel, riskKey)
	return nil
}

// StrategyConfigs loads the stored strategy list, or one enabled
// default strategy when nothing is stored.
func (s *Store) StrategyConfigs(ctx context.Context) []strategy.Config {
	data, err := s.client.Get(ctx, strategiesKey).Result()
	if err != nil {
		if err != goredis.Nil {
			slog.Warn("settings: strategies load failed, using defaults", slog.String("err", err.Error()))
		}
		return defaultStrategyConfigs()
	}

	var out []strategy.Config
	if err := json.Unmarshal([]byte(data), &out); err != nil || len(out) == 0 {
		return defaultStrategyConfigs()
	}
	return out
}

// SaveStrategyConfigs stores the strategy list and notifies watchers.
func (s *Store) SaveStrategyConfigs(ctx context.Context, cfgs []strategy.Config) error {
	data, err := json.Marshal(cfgs)
	if err != nil {
		return fmt.Errorf("settings: marshal strategies: %w", err)
	}
	if err := s.client.Set(ctx, strategiesKey, string(data), 0).Err(); err != nil {
		return fmt.Errorf("settings: save strategies: %w", err)
	}
	s.client.Publish(ctx, updateChannel, strategiesKey)
	return nil
}

// Watch invokes onChange with the updated key whenever settings change.
// Blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, onChange func(key string)) error {
	pubsub := s.client.Subscribe(ctx, updateChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("settings: subscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			onChange(msg.Payload)
		}
	}
}

// Client exposes the underlying Redis client for health probes.
func (s *Store) Client() *goredis.Client { return s.client }

// Close closes the Redis client.
func (s *Store) Close() error { return s.client.Close() }

func defaultStrategyConfigs() []strategy.Config {
	return []strategy.Config{
		{
			ID:        string(strategy.DefaultID),
			Name:      "MA Cross",
			Symbol:    "EURUSD",
			Timeframe: "M15",
			Enabled:   true,
			Params:    strategy.Params{},
		},
	}
}
