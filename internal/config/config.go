package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the bot
type Config struct {
	// Bybit API
	Testnet   bool
	APIKey    string
	APISecret string

	// Instrument
	Symbol   string
	Category string // "linear"
	Coin     string // settlement currency, e.g. "USDT"
	Interval string // chart interval in minutes, e.g. "3"

	// Account
	AccountType string // "UNIFIED"
	MarginMode  string // "ISOLATED_MARGIN"

	// Strategy
	TargetHours     []string // "HH:MM:SS" in Timezone, candle start times to trade
	Timezone        string
	WickBodyRatio   decimal.Decimal // min wick size relative to body for a doji
	RiskPerPosition decimal.Decimal // max loss per position as fraction of margin

	// Race resolver
	PollInterval        time.Duration
	ProgressLogInterval time.Duration

	// Run
	DaysToRun int
	DryRun    bool
	Debug     bool

	// Telegram (optional)
	TelegramToken  string
	TelegramChatID int64

	// Database
	DatabasePath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Testnet: getEnvBool("BYBIT_TESTNET", true),

		Symbol:   getEnv("SYMBOL", "BTCUSDT"),
		Category: getEnv("CATEGORY", "linear"),
		Coin:     getEnv("ACCOUNT_CURRENCY", "USDT"),
		Interval: getEnv("CHART_INTERVAL", "3"),

		AccountType: getEnv("ACCOUNT_TYPE", "UNIFIED"),
		MarginMode:  getEnv("MARGIN_MODE", "ISOLATED_MARGIN"),

		TargetHours:     splitList(getEnv("TARGET_HOURS", "09:00:00,16:00:00,21:00:00")),
		Timezone:        getEnv("TARGET_TIMEZONE", "Asia/Jerusalem"),
		WickBodyRatio:   getEnvDecimal("WICK_BODY_RATIO", decimal.NewFromInt(2)),
		RiskPerPosition: getEnvDecimal("RISK_PER_POSITION", decimal.NewFromFloat(0.1)),

		PollInterval:        getEnvDuration("POLL_INTERVAL", 500*time.Millisecond),
		ProgressLogInterval: getEnvDuration("PROGRESS_LOG_INTERVAL", 30*time.Second),

		DaysToRun: getEnvInt("DAYS_TO_RUN", 2),
		DryRun:    getEnvBool("DRY_RUN", true),
		Debug:     getEnvBool("DEBUG", false),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		DatabasePath: getEnv("DATABASE_PATH", "data/straddlebot.db"),
	}

	// Testnet and mainnet keys live in separate variables so both can be set
	// at once. Values may be raw or base64-encoded.
	keyVar, secretVar := "BYBIT_API_KEY", "BYBIT_API_SECRET"
	if cfg.Testnet {
		keyVar, secretVar = "BYBIT_API_KEY_TESTNET", "BYBIT_API_SECRET_TESTNET"
	}
	cfg.APIKey = decodeIfBase64(os.Getenv(keyVar))
	cfg.APISecret = decodeIfBase64(os.Getenv(secretVar))

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if !cfg.DryRun && (cfg.APIKey == "" || cfg.APISecret == "") {
		return nil, fmt.Errorf("%s and %s are required when DRY_RUN=false", keyVar, secretVar)
	}

	if len(cfg.TargetHours) == 0 {
		return nil, fmt.Errorf("TARGET_HOURS must list at least one HH:MM:SS time")
	}
	for _, hour := range cfg.TargetHours {
		if _, err := time.Parse("15:04:05", hour); err != nil {
			return nil, fmt.Errorf("invalid TARGET_HOURS entry %q: %w", hour, err)
		}
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TARGET_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location returns the parsed target timezone. Load validates it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// decodeIfBase64 accepts credentials stored either raw or base64-encoded
// (deployment secrets are often wrapped).
func decodeIfBase64(value string) string {
	if value == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return value
	}
	return strings.TrimSpace(string(decoded))
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
