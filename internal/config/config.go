package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingJupiterAPIKey is returned by Validate when swap routes are
// required but no provider credential is configured.
var ErrMissingJupiterAPIKey = errors.New("JUPITER_API_KEY is required")

type Config struct {
	// API server settings
	APIAddr string
	APIKey  string
	DevMode bool

	// Jupiter Ultra settings
	JupiterBaseURL string
	JupiterAPIKey  string

	// RPC settings
	RPCUrl string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Market data cache backend: "memory" or "redis"
	MarketDataCache string

	// Swap session settings
	QuoteDebounce      time.Duration
	QuotePollInterval  time.Duration
	DefaultSlippageBps int

	// Swap routes rate limit (requests per second per client)
	SwapRateLimit float64

	WalletPrivateKey string
}

func Load() *Config {
	return &Config{
		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// Jupiter
		JupiterBaseURL: getEnv("JUPITER_BASE_URL", "https://api.jup.ag/ultra/v1"),
		JupiterAPIKey:  strings.TrimSpace(getEnv("JUPITER_API_KEY", "")),

		// RPC
		RPCUrl: getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solana"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 12*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 500*time.Millisecond),

		MarketDataCache: strings.ToLower(getEnv("MARKETDATA_CACHE", "memory")),

		// Session
		QuoteDebounce:      getDurationEnv("QUOTE_DEBOUNCE", 500*time.Millisecond),
		QuotePollInterval:  getDurationEnv("QUOTE_POLL_INTERVAL", time.Second),
		DefaultSlippageBps: getIntEnv("DEFAULT_SLIPPAGE_BPS", 50),

		SwapRateLimit: getFloatEnv("SWAP_RATE_LIMIT", 5),

		WalletPrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),
	}
}

// Validate checks settings that every binary depends on. Swap-specific
// credentials are checked separately by RequireJupiter.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIAddr) == "" {
		return fmt.Errorf("API_ADDR is required")
	}
	if strings.TrimSpace(c.RPCUrl) == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0")
	}
	if c.QuoteDebounce <= 0 || c.QuotePollInterval <= 0 {
		return fmt.Errorf("QUOTE_DEBOUNCE and QUOTE_POLL_INTERVAL must be positive")
	}
	if c.DefaultSlippageBps <= 0 || c.DefaultSlippageBps > 5000 {
		return fmt.Errorf("DEFAULT_SLIPPAGE_BPS must be in (0, 5000]")
	}
	switch c.MarketDataCache {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when MARKETDATA_CACHE=redis")
		}
	default:
		return fmt.Errorf("MARKETDATA_CACHE must be memory or redis, got %q", c.MarketDataCache)
	}
	return nil
}

// RequireJupiter fails fast when the provider credential is absent.
func (c *Config) RequireJupiter() error {
	if c.JupiterAPIKey == "" {
		return ErrMissingJupiterAPIKey
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
