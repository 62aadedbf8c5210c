package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/labstack/echo/v4"
)

// Order proxies an Ultra /order request. The client never sees the API key.
func (h *Handlers) Order(c echo.Context) error {
	if h.Swap == nil {
		return h.err(c, http.StatusInternalServerError, "api key not configured", nil)
	}

	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	inputMint := strings.TrimSpace(req.InputMint)
	outputMint := strings.TrimSpace(req.OutputMint)
	amount := strings.TrimSpace(req.Amount.String())
	taker := strings.TrimSpace(req.Taker)
	if inputMint == "" || outputMint == "" || amount == "" || taker == "" {
		return h.err(c, http.StatusBadRequest, "missing required fields", map[string]any{
			"required": []string{"inputMint", "outputMint", "amount", "taker"},
		})
	}

	// Zero means "use the upstream default", same as leaving it out.
	slippage := req.SlippageBps
	if slippage != nil && *slippage == 0 {
		slippage = nil
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	out, err := h.Swap.Order(ctx, jupiter.OrderRequest{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      amount,
		Taker:       taker,
		Receiver:    strings.TrimSpace(req.Receiver),
		SlippageBps: slippage,
	})
	if err != nil {
		return h.swapErr(c, "order", err)
	}
	if h.Recorder != nil && h.orders != nil {
		h.orders.put(out, taker)
	}
	return c.JSON(http.StatusOK, out)
}

// Execute proxies an Ultra /execute request for a signed transaction.
func (h *Handlers) Execute(c echo.Context) error {
	if h.Swap == nil {
		return h.err(c, http.StatusInternalServerError, "api key not configured", nil)
	}

	var req ExecuteRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if strings.TrimSpace(req.RequestID) == "" || strings.TrimSpace(req.SignedTransaction) == "" {
		return h.err(c, http.StatusBadRequest, "missing required fields", map[string]any{
			"required": []string{"requestId", "signedTransaction"},
		})
	}

	// Execution waits for landing, which can take a while.
	ctx, cancel := h.withTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	out, err := h.Swap.Execute(ctx, req.RequestID, req.SignedTransaction)
	if err != nil {
		return h.swapErr(c, "execute", err)
	}
	h.recordExecuted(req.RequestID, out)
	return c.JSON(http.StatusOK, out)
}
