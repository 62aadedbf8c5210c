package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/telemetry"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(telemetry.EchoMiddleware())
	e.Use(SetNoCacheHeaders)

	// Optional API key authentication; health and metrics stay open for probes
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Skipper: func(c echo.Context) bool {
				p := c.Request().URL.Path
				return p == "/v1/health" || p == "/metrics"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) == 1, nil
			},
		}))
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)

	if h.Flags != nil {
		flagGroup := v1.Group("/flags")
		flagGroup.GET("", h.FlagsList)
		flagGroup.GET("/:key", h.FlagsGet)
		flagGroup.PUT("/:key", h.FlagsSet)
		flagGroup.DELETE("/:key", h.FlagsDelete)
	}

	api := e.Group("/api")
	api.GET("/search", h.Search)
	api.GET("/popular", h.Popular)
	api.GET("/trending", h.Trending)
	api.GET("/token/:address", h.Token)
	api.GET("/ohlcv/:pair", h.OHLCV)
	api.GET("/trades/:pair", h.Trades)
	api.GET("/history", h.History)
	api.POST("/balance", h.Balance)

	// Swap routes spend the upstream API key's quota, so they are rate limited per client
	swap := api.Group("/swap", h.swapGate)
	if cfg.SwapRateLimit > 0 {
		swap.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.SwapRateLimit),
				Burst:     burstFor(cfg.SwapRateLimit),
				ExpiresIn: 2 * time.Minute,
			}),
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded", Code: http.StatusTooManyRequests})
			},
		}))
	}
	swap.POST("/order", h.Order)
	swap.POST("/execute", h.Execute)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}

// burstFor allows two seconds' worth of requests at once, at least one.
func burstFor(perSecond float64) int {
	b := int(perSecond * 2)
	if b < 1 {
		return 1
	}
	return b
}
