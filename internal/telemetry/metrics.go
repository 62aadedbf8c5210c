// Package telemetry holds the prometheus collectors shared by the session,
// the market-data service and the HTTP server.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "solswap"

var (
	QuoteFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quote_fetches_total",
		Help:      "Quote fetches by mode (foreground, background, submit) and outcome.",
	}, []string{"mode", "outcome"})

	StaleQuotesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_quotes_discarded_total",
		Help:      "Quote completions dropped because their parameters were superseded.",
	})

	Swaps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "swaps_total",
		Help:      "Confirmed swaps by outcome.",
	}, []string{"outcome"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_seconds",
		Help:      "Latency of upstream calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"upstream", "op"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "marketdata_cache_lookups_total",
		Help:      "Market-data cache lookups by source and result (hit, miss, stale).",
	}, []string{"source", "result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Served HTTP requests by route and status.",
	}, []string{"method", "route", "status"})
)

// ObserveUpstream records the duration since start.
func ObserveUpstream(upstream, op string, start time.Time) {
	UpstreamLatency.WithLabelValues(upstream, op).Observe(time.Since(start).Seconds())
}

// Outcome maps an error to an "ok"/"error" label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// EchoMiddleware counts requests by matched route.
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			HTTPRequests.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
			return err
		}
	}
}
