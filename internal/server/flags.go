package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/flags"
	"github.com/labstack/echo/v4"
)

// FlagStore is the operator switch store.
type FlagStore interface {
	Set(ctx context.Context, key string, value bool) (*flags.Flag, error)
	Get(ctx context.Context, key string) (*flags.Flag, error)
	Enabled(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]*flags.Flag, error)
	Delete(ctx context.Context, key string) error
}

// swapGate rejects swap routes while swaps are paused. A store error lets the
// request through.
func (h *Handlers) swapGate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.Flags == nil {
			return next(c)
		}
		ctx, cancel := h.withTimeout(c.Request().Context(), time.Second)
		paused, err := h.Flags.Enabled(ctx, flags.SwapsPaused)
		cancel()
		if err != nil {
			h.Logger.WithError(err).Warn("failed to read swap pause flag")
			return next(c)
		}
		if paused {
			return h.err(c, http.StatusServiceUnavailable, "swaps are paused", nil)
		}
		return next(c)
	}
}

func (h *Handlers) FlagsList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, FlagsResponse{Items: items})
}

func (h *Handlers) FlagsGet(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid flag key", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	switch {
	case errors.Is(err, flags.ErrNotFound):
		return h.err(c, http.StatusNotFound, "flag not found", nil)
	case err != nil:
		return h.err(c, http.StatusInternalServerError, "failed to get flag", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsSet creates or updates a switch. Body: {"value": true}.
func (h *Handlers) FlagsSet(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid flag key", nil)
	}
	var req FlagRequest
	if err := c.Bind(&req); err != nil || req.Value == nil {
		return h.err(c, http.StatusBadRequest, "missing value", map[string]any{"required": []string{"value"}})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Set(ctx, key, *req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to set flag", map[string]any{"err": err.Error()})
	}
	h.Logger.WithField("key", key).WithField("value", *req.Value).Info("flag set")
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) FlagsDelete(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid flag key", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", map[string]any{"err": err.Error()})
	}
	h.Logger.WithField("key", key).Info("flag deleted")
	return c.NoContent(http.StatusNoContent)
}
