package config

import (
	"log"
	"os"
	"strings"
)

// Config holds all application configuration loaded from environment
// variables.
type Config struct {
	// HTTP
	ListenAddr  string
	MetricsAddr string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string

	// Bridge authentication
	BridgeKey        string
	BridgeTOTPSecret string

	// Notifications (optional; empty disables the channel)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Symbols the core watches by default
	Symbols string

	LogLevel string
}

// Load reads configuration from environment variables with sensible
// defaults. Only the bridge key is required.
func Load() *Config {
	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/fxbot.db"),

		BridgeKey:        mustEnv("BRIDGE_KEY"),
		BridgeTOTPSecret: getEnv("BRIDGE_TOTP_SECRET", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		Symbols: getEnv("SYMBOLS", "EURUSD,GBPUSD,USDJPY"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ParseSymbols splits the Symbols string into a clean list.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
