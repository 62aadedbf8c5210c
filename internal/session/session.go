// Package session drives a single swap form: it keeps the displayed quote in
// step with the user's inputs and runs the re-quote, sign and execute
// sequence on confirmation.
//
// Every parameter change bumps a generation counter. Each quote fetch
// carries the generation and a sequence number it was issued under, and a
// completion is applied only while both are still current. Anything else is
// discarded as ErrStaleQuoteDiscarded.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/balance"
	"github.com/aman-zulfiqar/solswap/internal/clock"
	"github.com/aman-zulfiqar/solswap/internal/history"
	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/pricing"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/aman-zulfiqar/solswap/internal/wallet"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultPollInterval = time.Second
)

// Quoter is the upstream order/execute transport.
type Quoter interface {
	Order(ctx context.Context, req jupiter.OrderRequest) (*jupiter.OrderResponse, error)
	Execute(ctx context.Context, requestID, signedTransaction string) (*jupiter.ExecuteResponse, error)
}

// Recorder receives settled swaps. Failures are logged and ignored.
type Recorder interface {
	RecordSwap(ctx context.Context, rec *history.SwapRecord) error
}

type Config struct {
	Quoter   Quoter
	Signer   wallet.Signer
	Balances balance.Provider
	Recorder Recorder

	Clock  clock.Clock
	Logger *logrus.Logger

	Debounce     time.Duration
	PollInterval time.Duration

	InputToken  tokens.Token
	OutputToken tokens.Token
	SlippageBps uint16

	// ReferencePriceUSD prices SOL for fee display when neither side of the
	// pair is SOL.
	ReferencePriceUSD float64

	// OnChange is called with the latest state after every transition. It
	// runs on whichever goroutine caused the change and must not call back
	// into the session synchronously.
	OnChange func(Snapshot)
}

type Session struct {
	quoter   Quoter
	signer   wallet.Signer
	balances balance.Provider
	recorder Recorder
	clock    clock.Clock
	logger   *logrus.Logger
	onChange func(Snapshot)

	debounce time.Duration
	poll     time.Duration

	emitMu sync.Mutex

	mu sync.Mutex

	in       tokens.Token
	out      tokens.Token
	amount   string
	slippage uint16
	taker    string
	refPrice float64

	state     State
	quote     *jupiter.OrderResponse
	display   *pricing.Display
	loading   bool
	err       error
	signature string
	holdings  map[string]decimal.Decimal

	gen      uint64
	seq      uint64
	applied  uint64
	inflight int
	discards uint64

	root       context.Context
	rootCancel context.CancelFunc
	fetchCtx   context.Context
	fetchStop  context.CancelFunc

	debounceTimer clock.Timer
	pollTimer     clock.Timer

	submitting bool
	signing    bool
	closed     bool
}

func New(cfg Config) (*Session, error) {
	if cfg.Quoter == nil {
		return nil, errors.New("session: quoter is required")
	}
	if cfg.Signer == nil {
		cfg.Signer = wallet.Disconnected{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SlippageBps == 0 {
		cfg.SlippageBps = pricing.DefaultSlippageBps
	}
	if !pricing.ValidSlippageBps(cfg.SlippageBps) {
		return nil, ErrInvalidSlippage
	}
	if cfg.InputToken.IsZero() {
		cfg.InputToken = tokens.SOL
	}
	if cfg.OutputToken.IsZero() {
		cfg.OutputToken = tokens.USDC
	}
	if cfg.InputToken.Address == cfg.OutputToken.Address {
		return nil, &jupiter.InvalidRequestError{Field: "outputMint", Reason: "must differ from inputMint"}
	}

	root, cancel := context.WithCancel(context.Background())
	s := &Session{
		quoter:     cfg.Quoter,
		signer:     cfg.Signer,
		balances:   cfg.Balances,
		recorder:   cfg.Recorder,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		onChange:   cfg.OnChange,
		debounce:   cfg.Debounce,
		poll:       cfg.PollInterval,
		in:         cfg.InputToken,
		out:        cfg.OutputToken,
		slippage:   cfg.SlippageBps,
		refPrice:   cfg.ReferencePriceUSD,
		holdings:   make(map[string]decimal.Decimal),
		root:       root,
		rootCancel: cancel,
	}
	s.fetchCtx, s.fetchStop = context.WithCancel(root)

	if cfg.Signer.Connected() {
		s.taker = cfg.Signer.Address()
		go s.refreshBalancesAsync()
	}
	return s, nil
}

// SetAmount sets the human-unit input amount as typed.
func (s *Session) SetAmount(amount string) error {
	return s.update(func() bool {
		if s.amount == amount {
			return false
		}
		s.amount = amount
		return true
	}, false)
}

// SetInputToken selects the token to pay with. Picking the current output
// token swaps the two sides.
func (s *Session) SetInputToken(t tokens.Token) error {
	return s.update(func() bool {
		if t.Address == s.in.Address {
			return false
		}
		if t.Address == s.out.Address {
			s.out = s.in
		}
		s.in = t
		return true
	}, true)
}

// SetOutputToken selects the token to receive. Picking the current input
// token swaps the two sides.
func (s *Session) SetOutputToken(t tokens.Token) error {
	return s.update(func() bool {
		if t.Address == s.out.Address {
			return false
		}
		if t.Address == s.in.Address {
			s.in = s.out
		}
		s.out = t
		return true
	}, true)
}

// Flip reverses the pair and carries the displayed output amount over as the
// new input amount.
func (s *Session) Flip() error {
	return s.update(func() bool {
		next := ""
		if s.display != nil {
			next = s.display.OutAmountText
		}
		s.in, s.out = s.out, s.in
		s.amount = next
		return true
	}, true)
}

func (s *Session) SetSlippageBps(bps uint16) error {
	if !pricing.ValidSlippageBps(bps) {
		return ErrInvalidSlippage
	}
	return s.update(func() bool {
		if s.slippage == bps {
			return false
		}
		s.slippage = bps
		return true
	}, false)
}

// SetTaker sets the connected wallet address. An empty address means the
// wallet disconnected.
func (s *Session) SetTaker(address string) error {
	return s.update(func() bool {
		if s.taker == address {
			return false
		}
		s.taker = address
		s.holdings = make(map[string]decimal.Decimal)
		return true
	}, true)
}

// SetMaxAmount fills in the largest spendable amount of the input token.
func (s *Session) SetMaxAmount() error {
	s.mu.Lock()
	bal, ok := s.holdings[s.in.Address]
	in := s.in
	s.mu.Unlock()
	if !ok {
		return nil
	}
	spend := tokens.MaxSpendable(in, bal)
	if !spend.IsPositive() {
		return nil
	}
	return s.SetAmount(spend.String())
}

// SetReferencePrice updates the fallback SOL price. The displayed figures are
// re-derived from the current quote without fetching.
func (s *Session) SetReferencePrice(usd float64) {
	s.mu.Lock()
	s.refPrice = usd
	if s.quote != nil {
		if d, err := pricing.Derive(s.quote, s.in, s.out, usd); err == nil {
			s.display = d
		}
	}
	s.mu.Unlock()
	s.emit()
}

// update applies a parameter change and restarts the quote cycle when mutate
// reports a change.
func (s *Session) update(mutate func() bool, refreshBalances bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.signing {
		s.mu.Unlock()
		return ErrSigningInProgress
	}
	if !mutate() {
		s.mu.Unlock()
		return nil
	}
	s.invalidateLocked()
	s.mu.Unlock()

	s.emit()
	if refreshBalances {
		go s.refreshBalancesAsync()
	}
	return nil
}

// invalidateLocked drops the current quote, stops timers, abandons in-flight
// fetches and restarts from Debouncing or Idle.
func (s *Session) invalidateLocked() {
	s.gen++
	s.resetFetchesLocked()

	s.quote = nil
	s.display = nil
	s.err = nil
	s.loading = false
	s.signature = ""
	// A submission still re-quoting notices the new generation on return.
	s.submitting = false

	if _, ok := s.orderRequestLocked(); !ok {
		s.state = Idle
		return
	}

	s.state = Debouncing
	gen := s.gen
	s.debounceTimer = s.clock.AfterFunc(s.debounce, func() { s.onDebounce(gen) })
}

func (s *Session) resetFetchesLocked() {
	s.stopTimersLocked()
	s.fetchStop()
	s.fetchCtx, s.fetchStop = context.WithCancel(s.root)
	s.inflight = 0
}

func (s *Session) stopTimersLocked() {
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
	if s.pollTimer != nil {
		s.pollTimer.Stop()
		s.pollTimer = nil
	}
}

// orderRequestLocked builds the request for the current parameters. It
// reports false when no fetch should be made: no wallet or no valid amount.
func (s *Session) orderRequestLocked() (jupiter.OrderRequest, bool) {
	if s.taker == "" {
		return jupiter.OrderRequest{}, false
	}
	raw, err := tokens.ToRaw(s.amount, s.in.Decimals)
	if err != nil {
		return jupiter.OrderRequest{}, false
	}
	slippage := s.slippage
	return jupiter.OrderRequest{
		InputMint:   s.in.Address,
		OutputMint:  s.out.Address,
		Amount:      raw,
		Taker:       s.taker,
		SlippageBps: &slippage,
	}, true
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	holdings := make(map[string]decimal.Decimal, len(s.holdings))
	for k, v := range s.holdings {
		holdings[k] = v
	}
	return Snapshot{
		State:         s.state,
		InputToken:    s.in,
		OutputToken:   s.out,
		Amount:        s.amount,
		SlippageBps:   s.slippage,
		Taker:         s.taker,
		Quote:         s.quote,
		Display:       s.display,
		Loading:       s.loading,
		Err:           s.err,
		Signature:     s.signature,
		Balances:      holdings,
		Generation:    s.gen,
		StaleDiscards: s.discards,
	}
}

func (s *Session) emit() {
	if s.onChange == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.onChange(s.Snapshot())
}

// Close stops all timers and marks in-flight work as ignorable. A pending
// wallet signature is left to resolve on its own.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	s.stopTimersLocked()
	s.fetchStop()
	s.mu.Unlock()

	s.rootCancel()
}
