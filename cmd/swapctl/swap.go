package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/balance"
	"github.com/aman-zulfiqar/solswap/internal/history"
	"github.com/aman-zulfiqar/solswap/internal/session"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/aman-zulfiqar/solswap/internal/wallet"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const quoteWait = 30 * time.Second

var (
	noConfirm bool
	noRecord  bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount|max> <from-token> <to-token>",
	Short: "Quote, sign and execute a swap with the configured wallet",
	Long: `Run a swap with the wallet from WALLET_PRIVATE_KEY.

The quote is kept fresh while you decide. Confirming fetches a new quote,
signs its transaction and submits it; the quote shown is never the one
signed. "max" spends the whole input balance, keeping 0.01 SOL for fees
when paying with SOL.

Examples:
  swapctl swap 1 SOL USDC
  swapctl swap max USDC SOL --slippage 0.1
  swapctl swap 5000000 BONK SOL --yes`,
	Args: cobra.ExactArgs(3),
	RunE: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().Float64Var(&slippagePct, "slippage", 0, "Slippage tolerance in percent, 0 < x <= 50")
	swapCmd.Flags().Float64Var(&refPriceUSD, "sol-price", 0, "SOL price in USD for fee display when neither side is SOL")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Sign without asking")
	swapCmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not record the settled swap")
}

func runSwap(cmd *cobra.Command, args []string) error {
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
	bps, err := slippageBps()
	if err != nil {
		return err
	}

	if strings.TrimSpace(cfg.WalletPrivateKey) == "" {
		return fmt.Errorf("%w: set WALLET_PRIVATE_KEY", wallet.ErrNotConnected)
	}
	keypair, err := wallet.NewKeypairSigner(cfg.WalletPrivateKey)
	if err != nil {
		return err
	}

	var (
		signer   wallet.Signer = keypair
		prompter *wallet.PromptSigner
	)
	if !noConfirm {
		prompter = wallet.NewPromptSigner(keypair, os.Stdin, os.Stdout)
		signer = prompter
	}

	var (
		recorder session.Recorder
		waiter   *waitRecorder
	)
	if !noRecord {
		if r, closeFn := openRecorder(ctx); r != nil {
			waiter = &waitRecorder{Recorder: r, done: make(chan struct{})}
			recorder = waiter
			defer closeFn()
		}
	}

	updates := make(chan session.Snapshot, 32)
	sess, err := session.New(session.Config{
		Quoter:            jc,
		Signer:            signer,
		Balances:          balance.NewRPCProvider(rpcCli, logger),
		Recorder:          recorder,
		Logger:            logger,
		Debounce:          cfg.QuoteDebounce,
		PollInterval:      cfg.QuotePollInterval,
		InputToken:        in,
		OutputToken:       out,
		SlippageBps:       bps,
		ReferencePriceUSD: refPriceUSD,
		OnChange: func(s session.Snapshot) {
			select {
			case updates <- s:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.RefreshBalances(ctx); err != nil {
		logger.WithError(err).Warn("balance lookup failed")
	}
	snap := sess.Snapshot()
	if bal, ok := snap.Balance(in.Address); ok {
		fmt.Printf("\n  Wallet:   %s\n", color.CyanString(snap.Taker))
		fmt.Printf("  Balance:  %s %s\n", tokens.FormatAmount(bal, in.Decimals), in.Symbol)
	}

	if strings.EqualFold(args[0], "max") {
		err = sess.SetMaxAmount()
	} else {
		err = sess.SetAmount(args[0])
	}
	if err != nil {
		return err
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching quote..."
	s.Start()
	snap, err = waitQuoted(ctx, sess, updates)
	s.Stop()
	if err != nil {
		return err
	}
	printQuote(snap.Display, in, out, false)

	if prompter != nil {
		// The prompt describes the re-quoted order that is about to be signed.
		prompter.Describe = func() string {
			cur := sess.Snapshot()
			if cur.Display == nil {
				return ""
			}
			return fmt.Sprintf("\n  Fresh quote: %s %s -> ~%s %s (min %s)",
				cur.Display.InAmountText, in.Symbol,
				cur.Display.OutAmountText, out.Symbol,
				cur.Display.MinimumReceivedText)
		}
	}

	var spin *spinner.Spinner
	if prompter == nil {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		spin.Suffix = " Submitting swap..."
		spin.Start()
	}
	res, err := sess.Confirm(ctx)
	if spin != nil {
		spin.Stop()
	}
	switch {
	case errors.Is(err, wallet.ErrSigningRejected):
		fmt.Println("\nSwap cancelled.")
		return nil
	case err != nil:
		return err
	}

	color.Green("\nSwap settled")
	fmt.Printf("  Signature: %s\n", color.CyanString(res.Signature))
	fmt.Printf("  Explorer:  https://solscan.io/tx/%s\n\n", res.Signature)

	if waiter != nil {
		waiter.wait(10 * time.Second)
	}
	return nil
}

// waitQuoted blocks until the session shows a quote or fails to get one.
func waitQuoted(ctx context.Context, sess *session.Session, updates <-chan session.Snapshot) (session.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, quoteWait)
	defer cancel()

	switch cur := sess.Snapshot(); cur.State {
	case session.Idle:
		return cur, fmt.Errorf("nothing to quote: check the amount and balance")
	case session.Quoted:
		return cur, nil
	}
	for {
		select {
		case <-ctx.Done():
			return session.Snapshot{}, fmt.Errorf("no quote: %w", ctx.Err())
		case s := <-updates:
			switch {
			case s.State == session.Quoted && s.Display != nil:
				return s, nil
			case s.State == session.Failed:
				return s, s.Err
			}
		}
	}
}

// waitRecorder lets the command wait for the settled swap to be written
// before exiting.
type waitRecorder struct {
	session.Recorder
	done chan struct{}
}

func (w *waitRecorder) RecordSwap(ctx context.Context, rec *history.SwapRecord) error {
	defer close(w.done)
	return w.Recorder.RecordSwap(ctx, rec)
}

func (w *waitRecorder) wait(d time.Duration) {
	select {
	case <-w.done:
	case <-time.After(d):
		logger.Warn("gave up waiting for swap to be recorded")
	}
}

// openRecorder wires whichever history backends are configured. It returns
// nil when none is.
func openRecorder(ctx context.Context) (*history.Recorder, func()) {
	var (
		store   history.Store
		pub     history.Publisher
		closers []func()
	)
	if cfg.ClickHouseAddr != "" {
		ch, err := newHistoryStore(ctx)
		if err != nil {
			logger.WithError(err).Warn("swap history disabled")
		} else {
			store = ch
			closers = append(closers, func() { _ = ch.Close() })
		}
	}
	if cfg.RedisAddr != "" {
		rc, err := newRedis(ctx)
		if err != nil {
			logger.WithError(err).Warn("swap feed disabled")
		} else {
			pub = history.NewRedisPublisher(rc, logger)
			closers = append(closers, func() { _ = rc.Close() })
		}
	}
	if store == nil && pub == nil {
		return nil, func() {}
	}
	return history.NewRecorder(store, pub, logger), func() {
		for _, c := range closers {
			c()
		}
	}
}
