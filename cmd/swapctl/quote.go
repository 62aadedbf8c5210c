package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/pricing"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/aman-zulfiqar/solswap/internal/wallet"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	quoteTaker  string
	quoteInvert bool
	refPriceUSD float64
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <from-token> <to-token>",
	Short: "Fetch a single quote without signing anything",
	Long: `Fetch one Ultra order for a swap and show the derived figures.

Ultra quotes are built for a taker. By default the wallet from
WALLET_PRIVATE_KEY is used; pass --taker to quote for another address.

Examples:
  swapctl quote 1 SOL USDC
  swapctl quote 100 USDC JUP --slippage 1 --invert`,
	Args: cobra.ExactArgs(3),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteTaker, "taker", "", "Address the quote is built for (defaults to the configured wallet)")
	quoteCmd.Flags().BoolVar(&quoteInvert, "invert", false, "Show the rate as output per input inverted")
	quoteCmd.Flags().Float64Var(&slippagePct, "slippage", 0, "Slippage tolerance in percent, 0 < x <= 50")
	quoteCmd.Flags().Float64Var(&refPriceUSD, "sol-price", 0, "SOL price in USD for fee display when neither side is SOL")
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	jc, err := newJupiter()
	if err != nil {
		return err
	}
	in, err := resolveToken(ctx, args[1])
	if err != nil {
		return err
	}
	out, err := resolveToken(ctx, args[2])
	if err != nil {
		return err
	}
	raw, err := tokens.ToRaw(args[0], in.Decimals)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}
	bps, err := slippageBps()
	if err != nil {
		return err
	}

	taker := strings.TrimSpace(quoteTaker)
	if taker == "" {
		signer, err := wallet.NewSignerFromEnv()
		if err != nil {
			return err
		}
		if !signer.Connected() {
			return fmt.Errorf("a taker is required: pass --taker or set WALLET_PRIVATE_KEY")
		}
		taker = signer.Address()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching quote..."
	s.Start()
	order, err := jc.Order(ctx, jupiter.OrderRequest{
		InputMint:   in.Address,
		OutputMint:  out.Address,
		Amount:      raw,
		Taker:       taker,
		SlippageBps: &bps,
	})
	s.Stop()
	if err != nil {
		return err
	}

	d, err := pricing.Derive(order, in, out, refPriceUSD)
	if err != nil {
		return err
	}
	printQuote(d, in, out, quoteInvert)
	fmt.Printf("  Request ID:        %s\n\n", order.RequestID)
	return nil
}

func printQuote(d *pricing.Display, in, out tokens.Token, invert bool) {
	rule("SWAP QUOTE")

	rate := d.Rate
	if invert {
		rate = rate.Invert()
	}

	fmt.Printf("\n  You pay:           %s %s\n", d.InAmountText, color.YellowString(in.Symbol))
	fmt.Printf("  You receive:       ~%s %s\n", d.OutAmountText, color.YellowString(out.Symbol))
	fmt.Printf("  Minimum received:  %s %s\n", d.MinimumReceivedText, out.Symbol)
	fmt.Printf("  Rate:              %s\n", rate)
	if d.InUSD > 0 || d.OutUSD > 0 {
		fmt.Printf("  Value:             $%.2f -> $%.2f\n", d.InUSD, d.OutUSD)
	}
	if impact := pricing.FormatImpact(d.PriceImpactPct); impact != "" {
		fmt.Printf("  Price impact:      %s\n", impactColor(d.Impact)("%s%% (%s)", impact, d.Impact))
	}
	switch {
	case d.Gasless:
		fmt.Printf("  Network fee:       %s\n", color.GreenString("gasless"))
	case d.NetworkFeeUSD > 0:
		fmt.Printf("  Network fee:       %.6f SOL (~$%.4f)\n", d.NetworkFeeNative, d.NetworkFeeUSD)
	default:
		fmt.Printf("  Network fee:       %.6f SOL\n", d.NetworkFeeNative)
	}
	if len(d.Route) > 0 {
		fmt.Printf("  Route:             %s\n", strings.Join(d.Route, " -> "))
	}
	slip := pricing.FormatSlippage(d.SlippageBps)
	if d.SlippageBps >= pricing.HighSlippageBps {
		slip = color.RedString("%s (high)", slip)
	}
	fmt.Printf("  Slippage:          %s\n", slip)
	if !d.ExpiresAt.IsZero() {
		fmt.Printf("  Expires:           in %s\n", time.Until(d.ExpiresAt).Round(time.Second))
	}
}

func impactColor(level pricing.ImpactLevel) func(string, ...interface{}) string {
	switch level {
	case pricing.ImpactHigh:
		return color.RedString
	case pricing.ImpactMedium:
		return color.YellowString
	default:
		return color.GreenString
	}
}
