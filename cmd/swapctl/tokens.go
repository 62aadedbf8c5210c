package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/clock"
	"github.com/aman-zulfiqar/solswap/internal/marketdata"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var trending bool

var tokensCmd = &cobra.Command{
	Use:   "tokens [query]",
	Short: "List popular tokens, trending tokens, or search by name",
	Long: `Without a query, list the popular tokens with live prices.

Examples:
  swapctl tokens
  swapctl tokens --trending
  swapctl tokens bonk`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.Flags().BoolVar(&trending, "trending", false, "List boosted tokens instead")
}

func runTokens(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc := marketdata.NewService(marketdata.Config{
		Cache:  marketdata.NewMemoryCache(clock.Real()),
		Assets: rpcCli,
		Logger: logger,
	})

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Loading tokens..."
	s.Start()

	var (
		list []marketdata.TokenSummary
		err  error
	)
	switch {
	case len(args) == 1:
		list = svc.Search(ctx, args[0])
	case trending:
		list, err = svc.Trending(ctx)
	default:
		list, err = svc.Popular(ctx)
	}
	s.Stop()
	if err != nil {
		if marketdata.IsRateLimited(err) {
			return fmt.Errorf("market data is rate limited, try again shortly: %w", err)
		}
		return err
	}
	if len(list) == 0 {
		fmt.Println("No tokens found.")
		return nil
	}

	fmt.Printf("\n%-10s %-14s %14s %9s %16s  %s\n", "SYMBOL", "NAME", "PRICE", "24H", "VOLUME 24H", "MINT")
	fmt.Println(strings.Repeat("-", 100))
	for _, t := range list {
		fmt.Printf("%s %-14s %14s %s %16s  %s\n",
			color.YellowString("%-10s", t.Symbol),
			truncate(t.Name, 14),
			fmt.Sprintf("$%s", priceText(t.Price)),
			changeText(t.Change24h),
			fmt.Sprintf("$%.0f", t.Volume24h),
			t.Address,
		)
	}
	fmt.Println()
	return nil
}

func priceText(v float64) string {
	if v > 0 && v < 0.01 {
		return fmt.Sprintf("%.8f", v)
	}
	return fmt.Sprintf("%.4f", v)
}

func changeText(pct float64) string {
	s := fmt.Sprintf("%+8.2f%%", pct)
	if pct < 0 {
		return color.RedString("%s", s)
	}
	return color.GreenString("%s", s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
