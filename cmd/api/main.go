package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/aman-zulfiqar/solswap/internal/balance"
	"github.com/aman-zulfiqar/solswap/internal/clock"
	"github.com/aman-zulfiqar/solswap/internal/config"
	"github.com/aman-zulfiqar/solswap/internal/flags"
	"github.com/aman-zulfiqar/solswap/internal/history"
	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/marketdata"
	"github.com/aman-zulfiqar/solswap/internal/rpc"
	"github.com/aman-zulfiqar/solswap/internal/server"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main starts the swap API: the Ultra proxy, balances, market data and
// swap history, with graceful shutdown.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.DevMode {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	h := &server.Handlers{
		Balances: balance.NewRPCProvider(rpcClient, logger),
		Tokens:   tokens.NewResolver(rpcClient, logger),
		Logger:   logger,
	}

	// Swap routes answer 500 until a key is configured; the rest of the API
	// still serves.
	if err := cfg.RequireJupiter(); err != nil {
		logger.WithError(err).Warn("swap routes disabled")
	} else {
		jc, err := jupiter.NewClient(jupiter.Config{
			BaseURL: cfg.JupiterBaseURL,
			APIKey:  cfg.JupiterAPIKey,
			Timeout: cfg.HTTPTimeout,
			Logger:  logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to create jupiter client")
		}
		h.Swap = jc
	}

	// Redis backs the market data cache and the settled-swap feed.
	var rclient *redis.Client
	if cfg.RedisAddr != "" {
		rclient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   0,
		})
		if err := rclient.Ping(ctx).Err(); err != nil {
			if cfg.MarketDataCache == "redis" {
				logger.WithError(err).Fatal("failed to connect to Redis")
			}
			logger.WithError(err).Warn("redis unavailable, swap feed disabled")
			_ = rclient.Close()
			rclient = nil
		} else {
			defer rclient.Close()
		}
	}

	// Operator switches need Redis; without it nothing can be paused.
	var flagStore *flags.Store
	if rclient != nil {
		fs, err := flags.NewStore(rclient, clock.Real())
		if err != nil {
			logger.WithError(err).Fatal("failed to create flags store")
		}
		flagStore = fs
		h.Flags = fs
	}

	var mdCache marketdata.Cache
	if cfg.MarketDataCache == "redis" {
		mdCache = marketdata.NewRedisCache(rclient, clock.Real())
	} else {
		mdCache = marketdata.NewMemoryCache(clock.Real())
	}
	mdCfg := marketdata.Config{
		Cache:      mdCache,
		Assets:     rpcClient,
		Logger:     logger,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
	if flagStore != nil {
		mdCfg.StaleOnly = func(ctx context.Context) bool {
			on, err := flagStore.Enabled(ctx, flags.MarketDataStaleOnly)
			return err == nil && on
		}
	}
	h.MarketData = marketdata.NewService(mdCfg)
	logger.WithField("cache", cfg.MarketDataCache).Info("market data ready")

	// History is optional. Keep the interface values nil when a backend is
	// absent so the recorder skips it. Swaps executed through the proxy are
	// recorded and published.
	var (
		store history.Store
		pub   history.Publisher
	)
	if cfg.ClickHouseAddr != "" {
		ch, err := history.NewClickHouseStore(ctx, history.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("swap history disabled")
		} else {
			store = ch
			defer ch.Close()
		}
	}
	if rclient != nil {
		pub = history.NewRedisPublisher(rclient, logger)
	}
	if store != nil || pub != nil {
		recorder := history.NewRecorder(store, pub, logger)
		h.Recorder = recorder
		if store != nil {
			h.SwapHistory = recorder
		}
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:          cfg.APIAddr,
			DevMode:       cfg.DevMode,
			APIKey:        cfg.APIKey,
			SwapRateLimit: cfg.SwapRateLimit,
		},
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithFields(logrus.Fields{
		"addr":        cfg.APIAddr,
		"swapEnabled": h.Swap != nil,
	}).Info("api server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
