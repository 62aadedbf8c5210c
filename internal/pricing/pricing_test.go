package pricing

import (
	"testing"

	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solToUSDC() *jupiter.OrderResponse {
	return &jupiter.OrderResponse{
		RequestID:                 "req-1",
		Transaction:               "AQAAAA==",
		InputMint:                 tokens.SOL.Address,
		OutputMint:                tokens.USDC.Address,
		InAmount:                  "10000000",
		OutAmount:                 "1500000",
		OtherAmountThreshold:      "1492500",
		InUSDValue:                1.5,
		OutUSDValue:               1.5,
		PriceImpact:               -0.25,
		SlippageBps:               50,
		SignatureFeeLamports:      5000,
		PrioritizationFeeLamports: 15000,
		RoutePlan: []jupiter.RoutePlanStep{
			{SwapInfo: jupiter.SwapInfo{AmmKey: "a", Label: "Whirlpool"}, Percent: 100},
			{SwapInfo: jupiter.SwapInfo{AmmKey: "HyaB3W9q6XdA5xwpU4XnSZV94htfmbmqJXZcEbRaJutt"}, Percent: 100},
		},
		ExpireAt: "1735689600",
	}
}

func TestDerive_SolToUSDC(t *testing.T) {
	d, err := Derive(solToUSDC(), tokens.SOL, tokens.USDC, 999)
	require.NoError(t, err)

	assert.Equal(t, "0.01", d.InAmountText)
	assert.Equal(t, "1.5", d.OutAmountText)
	assert.Equal(t, "1.4925", d.MinimumReceivedText)
	assert.InDelta(t, 150, d.Rate.Value, 1e-9)
	assert.Equal(t, "1 SOL = 150.0000 USDC", d.Rate.String())

	assert.InDelta(t, 0.00002, d.NetworkFeeNative, 1e-12)
	// SOL price comes from the input side: 1.5 USD / 0.01 SOL.
	assert.InDelta(t, 150, d.NativePriceUSD, 1e-9)
	assert.InDelta(t, 0.003, d.NetworkFeeUSD, 1e-12)
	assert.InDelta(t, 1.497, d.OutUSD, 1e-12)
	assert.Equal(t, 1.5, d.InUSD)

	assert.Equal(t, 0.25, d.PriceImpactPct)
	assert.Equal(t, ImpactLow, d.Impact)
	assert.Equal(t, []string{"Whirlpool", "HyaB…Jutt"}, d.Route)
	assert.Equal(t, int64(1735689600), d.ExpiresAt.Unix())
}

func TestDerive_NativeOnOutputSide(t *testing.T) {
	o := &jupiter.OrderResponse{
		InAmount:             "1500000",
		OutAmount:            "10000000",
		OtherAmountThreshold: "9950000",
		InUSDValue:           1.5,
		OutUSDValue:          1.6,
		SignatureFeeLamports: 5000,
	}
	d, err := Derive(o, tokens.USDC, tokens.SOL, 999)
	require.NoError(t, err)
	assert.InDelta(t, 160, d.NativePriceUSD, 1e-9)
}

func TestDerive_NoNativeSideUsesReferencePrice(t *testing.T) {
	o := &jupiter.OrderResponse{
		InAmount:             "1000000",
		OutAmount:            "999000",
		OtherAmountThreshold: "994005",
		InUSDValue:           1,
		OutUSDValue:          0.999,
		SignatureFeeLamports: 5000,
		PriceImpact:          4.2,
	}
	d, err := Derive(o, tokens.USDC, tokens.USDT, 178.42)
	require.NoError(t, err)
	assert.Equal(t, 178.42, d.NativePriceUSD)
	assert.InDelta(t, 0.000005*178.42, d.NetworkFeeUSD, 1e-12)
	assert.Equal(t, ImpactHigh, d.Impact)
}

func TestDerive_Properties(t *testing.T) {
	orders := []struct {
		order   *jupiter.OrderResponse
		in, out tokens.Token
	}{
		{solToUSDC(), tokens.SOL, tokens.USDC},
		{&jupiter.OrderResponse{InAmount: "123456789", OutAmount: "987654321012", OtherAmountThreshold: "987000000000"}, tokens.SOL, tokens.BONK},
		{&jupiter.OrderResponse{InAmount: "1", OutAmount: "3", OtherAmountThreshold: "9"}, tokens.USDC, tokens.RENDER},
		{&jupiter.OrderResponse{InAmount: "777777", OutAmount: "1", OtherAmountThreshold: ""}, tokens.BONK, tokens.JTO},
	}

	for _, tc := range orders {
		d, err := Derive(tc.order, tc.in, tc.out, 100)
		require.NoError(t, err)

		in := d.InAmount.InexactFloat64()
		out := d.OutAmount.InexactFloat64()
		assert.InEpsilon(t, out, d.Rate.Value*in, 1e-9)

		back := d.Rate.Invert().Invert()
		assert.InEpsilon(t, d.Rate.Value, back.Value, 1e-12)
		assert.Equal(t, d.Rate.Base, back.Base)

		assert.True(t, d.MinimumReceived.LessThanOrEqual(d.OutAmount))

		again, err := Derive(tc.order, tc.in, tc.out, 100)
		require.NoError(t, err)
		assert.Equal(t, d, again)
	}
}

func TestDerive_TinyRateKeepsPrecision(t *testing.T) {
	// 1e10 BONK for one raw unit of JTO.
	d, err := Derive(&jupiter.OrderResponse{InAmount: "1000000000000000", OutAmount: "1"}, tokens.BONK, tokens.JTO, 0)
	require.NoError(t, err)
	assert.InEpsilon(t, 1e-19, d.Rate.Value, 1e-12)

	d, err = Derive(&jupiter.OrderResponse{InAmount: "777777", OutAmount: "1"}, tokens.BONK, tokens.JTO, 0)
	require.NoError(t, err)
	assert.InEpsilon(t, 1e-9, d.Rate.Value*d.InAmount.InexactFloat64(), 1e-12)
}

func TestDerive_MinimumReceivedNeverAboveOutput(t *testing.T) {
	d, err := Derive(&jupiter.OrderResponse{InAmount: "1000000", OutAmount: "3000", OtherAmountThreshold: "9000"}, tokens.USDC, tokens.BONK, 0)
	require.NoError(t, err)
	assert.True(t, d.MinimumReceived.Equal(d.OutAmount))

	d, err = Derive(&jupiter.OrderResponse{InAmount: "1000000", OutAmount: "3000", OtherAmountThreshold: "2985"}, tokens.USDC, tokens.BONK, 0)
	require.NoError(t, err)
	assert.Equal(t, "0.02985", d.MinimumReceived.String())
}

func TestDerive_InvalidQuote(t *testing.T) {
	_, err := Derive(nil, tokens.SOL, tokens.USDC, 0)
	assert.ErrorIs(t, err, ErrInvalidQuote)

	_, err = Derive(&jupiter.OrderResponse{InAmount: "0", OutAmount: "1"}, tokens.SOL, tokens.USDC, 0)
	assert.ErrorIs(t, err, ErrInvalidQuote)

	_, err = Derive(&jupiter.OrderResponse{InAmount: "1", OutAmount: "x"}, tokens.SOL, tokens.USDC, 0)
	assert.ErrorIs(t, err, ErrInvalidQuote)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "0.00012345", FormatRate(0.00012345))
	assert.Equal(t, "150.0000", FormatRate(150))
	assert.Equal(t, "", FormatImpact(0))
	assert.Equal(t, "<0.01", FormatImpact(0.004))
	assert.Equal(t, "1.23", FormatImpact(1.234))
	assert.Equal(t, ImpactMedium, Level(1))
	assert.Equal(t, ImpactHigh, Level(3))

	r := Rate{Value: 150, Base: "SOL", Quote: "USDC"}.Invert()
	assert.Equal(t, "1 USDC = 0.00666667 SOL", r.String())
	assert.Equal(t, Rate{Base: "B", Quote: "A"}, Rate{Base: "A", Quote: "B"}.Invert())
}

func TestSlippage(t *testing.T) {
	bps, err := SlippageBpsFromPercent(0.5)
	require.NoError(t, err)
	assert.Equal(t, DefaultSlippageBps, bps)

	bps, err = SlippageBpsFromPercent(50)
	require.NoError(t, err)
	assert.Equal(t, MaxSlippageBps, bps)

	for _, bad := range []float64{0, -1, 50.01} {
		_, err := SlippageBpsFromPercent(bad)
		assert.Error(t, err)
	}

	assert.True(t, ValidSlippageBps(1))
	assert.False(t, ValidSlippageBps(0))
	assert.False(t, ValidSlippageBps(5001))
	assert.Equal(t, "0.5%", FormatSlippage(50))
	assert.Equal(t, "3%", FormatSlippage(300))
	assert.Equal(t, "0.01%", FormatSlippage(1))
}
