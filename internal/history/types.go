package history

import (
	"strings"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/pricing"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/google/uuid"
)

// SwapRecord is one settled swap.
type SwapRecord struct {
	ID        string    `json:"id"`
	Signature string    `json:"signature"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Taker     string    `json:"taker"`

	InputMint    string `json:"input_mint"`
	OutputMint   string `json:"output_mint"`
	InputSymbol  string `json:"input_symbol"`
	OutputSymbol string `json:"output_symbol"`
	Pair         string `json:"pair"`

	AmountIn  float64 `json:"amount_in"`
	AmountOut float64 `json:"amount_out"`
	Price     float64 `json:"price"`

	InUSD          float64 `json:"in_usd"`
	OutUSD         float64 `json:"out_usd"`
	NetworkFeeSOL  float64 `json:"network_fee_sol"`
	PriceImpactPct float64 `json:"price_impact_pct"`
	SlippageBps    uint16  `json:"slippage_bps"`
	Route          string  `json:"route"`
}

// NewSwapRecord builds a record from the order that was executed. display
// may be nil, in which case only raw fields are filled.
func NewSwapRecord(signature, taker string, in, out tokens.Token, order *jupiter.OrderResponse, display *pricing.Display) *SwapRecord {
	rec := &SwapRecord{
		ID:           uuid.NewString(),
		Signature:    signature,
		Timestamp:    time.Now().UTC(),
		Taker:        taker,
		InputMint:    in.Address,
		OutputMint:   out.Address,
		InputSymbol:  in.Symbol,
		OutputSymbol: out.Symbol,
		Pair:         in.Symbol + "/" + out.Symbol,
	}
	if order != nil {
		rec.RequestID = order.RequestID
		rec.SlippageBps = order.SlippageBps
		rec.InUSD = order.InUSDValue
		rec.OutUSD = order.OutUSDValue
		rec.Route = strings.Join(pricing.RouteLabels(order.RoutePlan), " > ")
	}
	if display != nil {
		rec.AmountIn = display.InAmount.InexactFloat64()
		rec.AmountOut = display.OutAmount.InexactFloat64()
		rec.Price = display.Rate.Value
		rec.OutUSD = display.OutUSD
		rec.NetworkFeeSOL = display.NetworkFeeNative
		rec.PriceImpactPct = display.PriceImpactPct
	}
	return rec
}
