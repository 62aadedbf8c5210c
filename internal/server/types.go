package server

import (
	"encoding/json"

	"github.com/aman-zulfiqar/solswap/internal/flags"
	"github.com/aman-zulfiqar/solswap/internal/history"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error     string `json:"error"`               // Human-readable error message
	Code      int    `json:"code"`                // HTTP status code
	ErrorCode int    `json:"errorCode,omitempty"` // Upstream error code, when one was given
	Details   any    `json:"details,omitempty"`   // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK          bool `json:"ok"`
	SwapEnabled bool `json:"swapEnabled"` // false when no Jupiter API key is configured
}

// OrderRequest is the body of POST /api/swap/order. Amount is the raw integer
// amount and may be sent as a JSON string or number.
type OrderRequest struct {
	InputMint   string      `json:"inputMint"`
	OutputMint  string      `json:"outputMint"`
	Amount      json.Number `json:"amount"`
	Taker       string      `json:"taker"`
	Receiver    string      `json:"receiver"`
	SlippageBps *uint16     `json:"slippageBps"`
}

// ExecuteRequest is the body of POST /api/swap/execute
type ExecuteRequest struct {
	RequestID         string `json:"requestId"`
	SignedTransaction string `json:"signedTransaction"`
}

// BalanceRequest is the body of POST /api/balance
type BalanceRequest struct {
	Owner string   `json:"owner"`
	Mints []string `json:"mints"`
}

// BalanceResponse maps mint to human-unit balance. Mints that could not be
// read are absent.
type BalanceResponse struct {
	Balances map[string]json.Number `json:"balances"`
}

// HistoryResponse lists settled swaps, newest first
type HistoryResponse struct {
	Items []*history.SwapRecord `json:"items"`
}

// FlagRequest is the body of PUT /v1/flags/:key
type FlagRequest struct {
	Value *bool `json:"value"`
}

// FlagsResponse lists operator switches
type FlagsResponse struct {
	Items []*flags.Flag `json:"items"`
}
