package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/balance"
	"github.com/aman-zulfiqar/solswap/internal/history"
	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/marketdata"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// SwapUpstream is the order/execute transport proxied by the swap routes.
type SwapUpstream interface {
	Order(ctx context.Context, req jupiter.OrderRequest) (*jupiter.OrderResponse, error)
	Execute(ctx context.Context, requestID, signedTransaction string) (*jupiter.ExecuteResponse, error)
}

// MarketData serves the read-only token routes.
type MarketData interface {
	Search(ctx context.Context, q string) []marketdata.TokenSummary
	Popular(ctx context.Context) ([]marketdata.TokenSummary, error)
	Trending(ctx context.Context) ([]marketdata.TokenSummary, error)
	Token(ctx context.Context, address string) (*marketdata.TokenDetail, error)
	OHLCV(ctx context.Context, pair string, tf marketdata.Timeframe) ([]marketdata.Candle, error)
	Trades(ctx context.Context, pair string) ([]marketdata.Trade, error)
}

// HistoryReader lists settled swaps.
type HistoryReader interface {
	Recent(ctx context.Context, taker string, limit int) ([]*history.SwapRecord, error)
}

const maxBalanceMints = 20

var errUnknownToken = errors.New("unknown token")

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Swap        SwapUpstream     // nil when no Jupiter API key is configured
	Balances    balance.Provider // Wallet balances over RPC
	MarketData  MarketData       // Cached token market data
	SwapHistory HistoryReader    // Settled swap history (optional)
	Flags       FlagStore        // Operator switches (optional)
	Recorder    SwapRecorder     // Records swaps executed through the proxy (optional)
	Tokens      TokenResolver    // Mint decimals for recording (optional)
	DevMode     bool             // Enable detailed error responses in development
	Logger      *logrus.Logger   // Structured logger

	orders *orderBook
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true, SwapEnabled: h.Swap != nil})
}

// Balance returns human-unit balances of the requested mints for an owner.
// Mints whose lookup failed are omitted; a mint with no token account is 0.
func (h *Handlers) Balance(c echo.Context) error {
	var req BalanceRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Owner = strings.TrimSpace(req.Owner)
	if req.Owner == "" || req.Mints == nil {
		return h.err(c, http.StatusBadRequest, "missing owner or mints", nil)
	}
	if _, err := solana.PublicKeyFromBase58(req.Owner); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid owner", map[string]any{"owner": "not a base58 address"})
	}
	if len(req.Mints) > maxBalanceMints {
		return h.err(c, http.StatusBadRequest, "too many mints", map[string]any{"mints": "max " + strconv.Itoa(maxBalanceMints)})
	}
	if h.Balances == nil {
		return h.err(c, http.StatusInternalServerError, "balances are not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	got, err := h.Balances.GetBalances(ctx, req.Owner, req.Mints)
	if err != nil && len(got) == 0 {
		return h.err(c, http.StatusGatewayTimeout, "balance lookup timed out", nil)
	}

	out := BalanceResponse{Balances: make(map[string]json.Number, len(got))}
	for mint, bal := range got {
		out.Balances[mint] = json.Number(bal.String())
	}
	return c.JSON(http.StatusOK, out)
}

// History returns settled swaps, optionally for one taker.
// Accepts limit query parameter (default: 50, range: 1-200)
func (h *Handlers) History(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}
	if h.SwapHistory == nil {
		return c.JSON(http.StatusOK, HistoryResponse{Items: []*history.SwapRecord{}})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.SwapHistory.Recent(ctx, strings.TrimSpace(c.QueryParam("taker")), limit)
	if err != nil {
		h.Logger.WithError(err).Warn("failed to read swap history")
		return h.err(c, http.StatusInternalServerError, "failed to get history", nil)
	}
	if items == nil {
		items = []*history.SwapRecord{}
	}
	return c.JSON(http.StatusOK, HistoryResponse{Items: items})
}
