package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/marketdata"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
)

// emptyList is returned with a failure status by list routes, so clients can
// always decode an array.
var emptyList = []struct{}{}

func (h *Handlers) listFailed(c echo.Context, route string, err error) error {
	h.Logger.WithError(err).WithField("route", route).Warn("market data unavailable")
	return c.JSON(http.StatusBadGateway, emptyList)
}

// Search never fails: upstream errors produce an empty result.
func (h *Handlers) Search(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 8*time.Second)
	defer cancel()
	return c.JSON(http.StatusOK, h.MarketData.Search(ctx, c.QueryParam("q")))
}

func (h *Handlers) Popular(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.MarketData.Popular(ctx)
	if err != nil {
		return h.listFailed(c, "popular", err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) Trending(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.MarketData.Trending(ctx)
	if err != nil {
		return h.listFailed(c, "trending", err)
	}
	return c.JSON(http.StatusOK, out)
}

// Token returns the detail page payload for a mint.
func (h *Handlers) Token(c echo.Context) error {
	address := strings.TrimSpace(c.Param("address"))
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", map[string]any{"address": "not a base58 address"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 12*time.Second)
	defer cancel()

	out, err := h.MarketData.Token(ctx, address)
	switch {
	case errors.Is(err, marketdata.ErrNotFound):
		return h.err(c, http.StatusNotFound, "token not found", nil)
	case err != nil:
		h.Logger.WithError(err).WithField("address", address).Warn("token lookup failed")
		return h.err(c, http.StatusBadGateway, "market data unavailable", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, out)
}

// OHLCV returns candles for a pool. tf is one of 1H, 4H, 1D, 1W, 1M, ALL.
func (h *Handlers) OHLCV(c echo.Context) error {
	pair := strings.TrimSpace(c.Param("pair"))
	if pair == "" {
		return h.err(c, http.StatusBadRequest, "invalid pair", nil)
	}
	tf := marketdata.Timeframe(strings.ToUpper(strings.TrimSpace(c.QueryParam("tf"))))

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.MarketData.OHLCV(ctx, pair, tf)
	if err != nil {
		return h.listFailed(c, "ohlcv", err)
	}
	return c.JSON(http.StatusOK, out)
}

// Trades returns recent trades for a pool. Responses must never be cached
// by intermediaries.
func (h *Handlers) Trades(c echo.Context) error {
	pair := strings.TrimSpace(c.Param("pair"))
	if pair == "" {
		return h.err(c, http.StatusBadRequest, "invalid pair", nil)
	}
	c.Response().Header().Set("Cache-Control", "no-store, max-age=0")

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.MarketData.Trades(ctx, pair)
	if err != nil {
		return h.listFailed(c, "trades", err)
	}
	return c.JSON(http.StatusOK, out)
}
