package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/solswap/internal/history"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	watchTaker   string
	historyLimit int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream settled swaps as they happen",
	Long: `Subscribe to the settled-swap feed in Redis and print each swap.

Examples:
  swapctl watch
  swapctl watch --taker <address>`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently settled swaps",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)

	watchCmd.Flags().StringVar(&watchTaker, "taker", "", "Only show swaps by this wallet")
	historyCmd.Flags().StringVar(&watchTaker, "taker", "", "Only show swaps by this wallet")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of swaps to show (1-200)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rc, err := newRedis(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	channel := history.ChannelSettled
	if t := strings.TrimSpace(watchTaker); t != "" {
		channel = history.TakerChannel(t)
	}
	color.Cyan("Watching %s (Ctrl+C to stop)\n", channel)

	err = history.NewRedisPublisher(rc, logger).Subscribe(ctx, channel, printSwap)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit < 1 || historyLimit > 200 {
		return fmt.Errorf("--limit must be between 1 and 200")
	}
	ctx := cmd.Context()

	store, err := newHistoryStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.RecentSwaps(ctx, strings.TrimSpace(watchTaker), historyLimit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No settled swaps.")
		return nil
	}
	for _, rec := range recs {
		printSwap(rec)
	}
	return nil
}

func printSwap(rec *history.SwapRecord) {
	fmt.Printf("%s  %s %s %s -> %s %s  %s\n",
		rec.Timestamp.Local().Format("2006-01-02 15:04:05"),
		color.YellowString("%-14s", rec.Pair),
		trimFloat(rec.AmountIn), rec.InputSymbol,
		trimFloat(rec.AmountOut), rec.OutputSymbol,
		color.CyanString(rec.Signature),
	)
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.6f", v)
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}
