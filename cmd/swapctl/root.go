package main

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aman-zulfiqar/solswap/internal/config"
	"github.com/aman-zulfiqar/solswap/internal/history"
	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/pricing"
	"github.com/aman-zulfiqar/solswap/internal/rpc"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	slippagePct float64

	cfg      *config.Config
	logger   *logrus.Logger
	rpcCli   *rpc.Client
	resolver *tokens.Resolver
)

var rootCmd = &cobra.Command{
	Use:   "swapctl",
	Short: "Quote and execute Solana token swaps through Jupiter Ultra",
	Long: `swapctl quotes and executes Solana token swaps through Jupiter Ultra.

Tokens are given by symbol (SOL, USDC, BONK, ...) or by mint address.

Examples:
  swapctl quote 1 SOL USDC
  swapctl swap 25 USDC BONK --slippage 1
  swapctl swap max SOL USDC
  swapctl tokens bonk
  swapctl watch --taker <address>
  swapctl history --limit 20`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger()
		loadEnv(logger)

		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}
		rpcCli = rpc.NewClient(rpc.ClientConfig{
			BaseURL:      cfg.RPCUrl,
			Timeout:      cfg.HTTPTimeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Logger:       logger,
		})
		resolver = tokens.NewResolver(rpcCli, logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	// Keep the terminal for the swap itself unless asked.
	l.SetLevel(logrus.WarnLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// loadEnv reads .env from the project root when present.
func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	envPath := filepath.Join(filepath.Dir(filename), "../..", ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Debugf("no .env file found at %s, using system environment variables", envPath)
	}
}

func newJupiter() (*jupiter.Client, error) {
	if err := cfg.RequireJupiter(); err != nil {
		return nil, err
	}
	return jupiter.NewClient(jupiter.Config{
		BaseURL: cfg.JupiterBaseURL,
		APIKey:  cfg.JupiterAPIKey,
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
	})
}

// resolveToken accepts a registry symbol or a mint address.
func resolveToken(ctx context.Context, arg string) (tokens.Token, error) {
	if t, ok := tokens.BySymbol(arg); ok {
		return t, nil
	}
	return resolver.Resolve(ctx, arg)
}

// slippageBps converts the --slippage percentage, falling back to config.
func slippageBps() (uint16, error) {
	if slippagePct == 0 {
		return uint16(cfg.DefaultSlippageBps), nil
	}
	return pricing.SlippageBpsFromPercent(slippagePct)
}

func newRedis(ctx context.Context) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is not set")
	}
	c := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return c, nil
}

func newHistoryStore(ctx context.Context) (*history.ClickHouseStore, error) {
	if cfg.ClickHouseAddr == "" {
		return nil, fmt.Errorf("CLICKHOUSE_ADDR is not set")
	}
	return history.NewClickHouseStore(ctx, history.ClickHouseConfig{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
		Logger:   logger,
	})
}

func printError(err error) {
	color.Red("\nError: %v\n", err)
}

func rule(title string) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("%s", center(title, 60))
	fmt.Println(strings.Repeat("=", 60))
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", (width-len(s))/2) + s
}
