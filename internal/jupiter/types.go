package jupiter

import (
	"strconv"
	"strings"
	"time"
)

// OrderRequest asks Ultra for a quote bundled with an unsigned transaction.
// It is built fresh for every quote attempt.
type OrderRequest struct {
	InputMint  string
	OutputMint string
	Amount     string // raw integer as string, scaled by input decimals

	Taker    string
	Receiver string // optional, defaults to Taker upstream

	SlippageBps *uint16 // optional
}

// OrderResponse is a successful /order result. Upstream rejections never
// produce one; they surface as *UpstreamQuoteError instead.
type OrderResponse struct {
	RequestID   string `json:"requestId"`
	Transaction string `json:"transaction"` // base64, unsigned

	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`

	InUSDValue  float64 `json:"inUsdValue"`
	OutUSDValue float64 `json:"outUsdValue"`
	PriceImpact float64 `json:"priceImpact"`

	SwapMode             string `json:"swapMode"`
	SlippageBps          uint16 `json:"slippageBps"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	FeeBps               uint16 `json:"feeBps"`

	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports"`
	SignatureFeeLamports      uint64 `json:"signatureFeeLamports"`
	RentFeeLamports           uint64 `json:"rentFeeLamports"`
	Gasless                   bool   `json:"gasless"`

	RoutePlan []RoutePlanStep `json:"routePlan"`
	ExpireAt  string          `json:"expireAt,omitempty"`
}

// ExpiresAt parses ExpireAt, which Ultra sends as unix seconds. RFC3339 is
// accepted as well.
func (o *OrderResponse) ExpiresAt() (time.Time, bool) {
	s := strings.TrimSpace(o.ExpireAt)
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n), true
		}
		return time.Unix(n, 0), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Expired reports whether the order's expiry has passed at now. Orders
// without a parseable expiry are never considered expired here.
func (o *OrderResponse) Expired(now time.Time) bool {
	at, ok := o.ExpiresAt()
	return ok && !now.Before(at)
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  float64  `json:"percent"`
	Bps      uint16   `json:"bps,omitempty"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount,omitempty"`
	FeeMint    string `json:"feeMint,omitempty"`
}

// ExecuteRequest references the request id of the most recent order.
type ExecuteRequest struct {
	RequestID         string `json:"requestId"`
	SignedTransaction string `json:"signedTransaction"` // base64
}

type ExecuteResponse struct {
	Status    string `json:"status"`
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      int    `json:"code,omitempty"`
}

// orderEnvelope is the raw /order payload. Upstream reports rejections either
// with a non-2xx status or with errorCode/errorMessage on a 2xx body.
type orderEnvelope struct {
	OrderResponse
	ErrorCode    int    `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (e *orderEnvelope) failed() bool {
	return e.ErrorCode != 0 || e.ErrorMessage != "" || e.Error != "" || e.Transaction == ""
}
