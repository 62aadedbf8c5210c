// Package pricing turns a raw Ultra order into the figures shown next to it.
// Everything here is a pure function of its inputs.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/shopspring/decimal"
)

var ErrInvalidQuote = errors.New("invalid quote")

const lamportsPerSOL = 1e9

type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

// Display is everything derived from one order. It is only valid alongside
// the order it was computed from.
type Display struct {
	InAmount        decimal.Decimal
	OutAmount       decimal.Decimal
	MinimumReceived decimal.Decimal

	InAmountText        string
	OutAmountText       string
	MinimumReceivedText string

	Rate Rate

	NetworkFeeNative float64
	NetworkFeeUSD    float64
	// NativePriceUSD is the SOL price used for NetworkFeeUSD. When neither
	// side of the swap is SOL this is the caller's reference price, so fee
	// USD precision depends on the pair.
	NativePriceUSD float64

	InUSD  float64
	OutUSD float64 // net of NetworkFeeUSD

	PriceImpactPct float64
	Impact         ImpactLevel

	Route       []string
	SlippageBps uint16
	FeeBps      uint16
	Gasless     bool
	ExpiresAt   time.Time
}

// Derive computes the display bundle for order between in and out.
// refNativeUSD is used for the fee conversion when neither token is SOL.
func Derive(order *jupiter.OrderResponse, in, out tokens.Token, refNativeUSD float64) (*Display, error) {
	if order == nil {
		return nil, fmt.Errorf("%w: nil order", ErrInvalidQuote)
	}

	inAmt, err := tokens.FromRaw(order.InAmount, in.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: inAmount: %v", ErrInvalidQuote, err)
	}
	if !inAmt.IsPositive() {
		return nil, fmt.Errorf("%w: zero inAmount", ErrInvalidQuote)
	}
	outAmt, err := tokens.FromRaw(order.OutAmount, out.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: outAmount: %v", ErrInvalidQuote, err)
	}

	minOut := outAmt
	if order.OtherAmountThreshold != "" {
		threshold, err := tokens.FromRaw(order.OtherAmountThreshold, out.Decimals)
		if err != nil {
			return nil, fmt.Errorf("%w: otherAmountThreshold: %v", ErrInvalidQuote, err)
		}
		// Never show a minimum above the quoted output, even if the upstream
		// threshold says otherwise.
		if threshold.LessThan(outAmt) {
			minOut = threshold
		}
	}

	feeNative := float64(order.SignatureFeeLamports+order.PrioritizationFeeLamports) / lamportsPerSOL
	nativeUSD := nativePrice(order, in, out, inAmt, outAmt, refNativeUSD)
	feeUSD := feeNative * nativeUSD

	impact := math.Abs(order.PriceImpact)

	d := &Display{
		InAmount:            inAmt,
		OutAmount:           outAmt,
		MinimumReceived:     minOut,
		InAmountText:        tokens.FormatAmount(inAmt, in.Decimals),
		OutAmountText:       tokens.FormatAmount(outAmt, out.Decimals),
		MinimumReceivedText: tokens.FormatAmount(minOut, out.Decimals),
		Rate: Rate{
			Value: outAmt.DivRound(inAmt, rateScale(in, out)).InexactFloat64(),
			Base:  in.Symbol,
			Quote: out.Symbol,
		},
		NetworkFeeNative: feeNative,
		NetworkFeeUSD:    feeUSD,
		NativePriceUSD:   nativeUSD,
		InUSD:            order.InUSDValue,
		OutUSD:           order.OutUSDValue - feeUSD,
		PriceImpactPct:   impact,
		Impact:           Level(impact),
		Route:            RouteLabels(order.RoutePlan),
		SlippageBps:      order.SlippageBps,
		FeeBps:           order.FeeBps,
		Gasless:          order.Gasless,
	}
	if at, ok := order.ExpiresAt(); ok {
		d.ExpiresAt = at
	}
	return d, nil
}

// rateScale carries the rate sixteen places past the finest unit either
// token can express. decimal.Div stops at sixteen places in total, which
// flattens meme-token rates.
func rateScale(in, out tokens.Token) int32 {
	return in.Decimals + out.Decimals + 16
}

// nativePrice reads SOL's USD price off whichever side of the quote is SOL.
func nativePrice(order *jupiter.OrderResponse, in, out tokens.Token, inAmt, outAmt decimal.Decimal, ref float64) float64 {
	switch {
	case in.IsNative() && order.InUSDValue > 0:
		return order.InUSDValue / inAmt.InexactFloat64()
	case out.IsNative() && order.OutUSDValue > 0 && outAmt.IsPositive():
		return order.OutUSDValue / outAmt.InexactFloat64()
	default:
		return ref
	}
}

// Level buckets an absolute impact percentage.
func Level(impactPct float64) ImpactLevel {
	switch {
	case impactPct < 1:
		return ImpactLow
	case impactPct < 3:
		return ImpactMedium
	default:
		return ImpactHigh
	}
}

// FormatImpact renders an impact percentage without the % sign. Zero impact
// renders empty since it is not shown.
func FormatImpact(impactPct float64) string {
	switch {
	case impactPct == 0:
		return ""
	case impactPct < 0.01:
		return "<0.01"
	default:
		return fmt.Sprintf("%.2f", impactPct)
	}
}

// RouteLabels lists hop labels in execution order.
func RouteLabels(plan []jupiter.RoutePlanStep) []string {
	labels := make([]string, 0, len(plan))
	for _, step := range plan {
		label := step.SwapInfo.Label
		if label == "" {
			label = tokens.ShortAddress(step.SwapInfo.AmmKey)
		}
		labels = append(labels, label)
	}
	return labels
}
