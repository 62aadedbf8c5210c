package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/clock"
	"github.com/aman-zulfiqar/solswap/internal/history"
	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/aman-zulfiqar/solswap/internal/wallet"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTaker = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	waitFor   = 2 * time.Second
	tick      = 5 * time.Millisecond
)

var unsignedTx = base64.StdEncoding.EncodeToString([]byte("unsigned"))

// events records the order of upstream and wallet calls.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	e.log = append(e.log, s)
	e.mu.Unlock()
}

func (e *events) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

type fakeQuoter struct {
	ev *events

	mu       sync.Mutex
	orders   []jupiter.OrderRequest
	orderFn  func(ctx context.Context, n int, req jupiter.OrderRequest) (*jupiter.OrderResponse, error)
	execErr  error
	executed []jupiter.ExecuteRequest
}

func okOrder(n int, req jupiter.OrderRequest) *jupiter.OrderResponse {
	return &jupiter.OrderResponse{
		RequestID:            fmt.Sprintf("req-%d", n),
		Transaction:          unsignedTx,
		InputMint:            req.InputMint,
		OutputMint:           req.OutputMint,
		InAmount:             req.Amount,
		OutAmount:            "1500000",
		OtherAmountThreshold: "1492500",
		InUSDValue:           1.5,
		OutUSDValue:          1.5,
		SlippageBps:          50,
		SignatureFeeLamports: 5000,
	}
}

func (f *fakeQuoter) Order(ctx context.Context, req jupiter.OrderRequest) (*jupiter.OrderResponse, error) {
	f.mu.Lock()
	f.orders = append(f.orders, req)
	n := len(f.orders)
	fn := f.orderFn
	f.mu.Unlock()

	if f.ev != nil {
		f.ev.add("order")
	}
	if fn != nil {
		return fn(ctx, n, req)
	}
	return okOrder(n, req), nil
}

func (f *fakeQuoter) Execute(ctx context.Context, requestID, signed string) (*jupiter.ExecuteResponse, error) {
	f.mu.Lock()
	f.executed = append(f.executed, jupiter.ExecuteRequest{RequestID: requestID, SignedTransaction: signed})
	err := f.execErr
	f.mu.Unlock()

	if f.ev != nil {
		f.ev.add("execute")
	}
	if err != nil {
		return nil, err
	}
	return &jupiter.ExecuteResponse{Status: "Success", Signature: "5ettled"}, nil
}

func (f *fakeQuoter) setOrderFn(fn func(ctx context.Context, n int, req jupiter.OrderRequest) (*jupiter.OrderResponse, error)) {
	f.mu.Lock()
	f.orderFn = fn
	f.mu.Unlock()
}

func (f *fakeQuoter) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeQuoter) lastOrder() jupiter.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[len(f.orders)-1]
}

func (f *fakeQuoter) executeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executed)
}

type fakeSigner struct {
	ev    *events
	err   error
	block chan struct{}
	calls atomic.Int32
	seen  chan []byte
}

func (f *fakeSigner) Connected() bool { return true }
func (f *fakeSigner) Address() string { return testTaker }

func (f *fakeSigner) SignTransaction(ctx context.Context, raw []byte) ([]byte, error) {
	f.calls.Add(1)
	if f.ev != nil {
		f.ev.add("sign")
	}
	if f.seen != nil {
		f.seen <- raw
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("signed:"), raw...), nil
}

type fakeBalances struct {
	calls atomic.Int32
}

func (f *fakeBalances) GetBalances(ctx context.Context, owner string, mints []string) (map[string]decimal.Decimal, error) {
	f.calls.Add(1)
	out := map[string]decimal.Decimal{}
	for _, m := range mints {
		if m == tokens.NativeMint {
			out[m] = decimal.RequireFromString("2")
		}
	}
	return out, nil
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []*history.SwapRecord
}

func (f *fakeRecorder) RecordSwap(ctx context.Context, rec *history.SwapRecord) error {
	f.mu.Lock()
	f.recs = append(f.recs, rec)
	f.mu.Unlock()
	return nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

type harness struct {
	s        *Session
	clk      *clock.Fake
	quoter   *fakeQuoter
	signer   *fakeSigner
	balances *fakeBalances
	recorder *fakeRecorder
	ev       *events
	hook     *logtest.Hook
}

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()
	ev := &events{}
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &harness{
		clk:      clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		quoter:   &fakeQuoter{ev: ev},
		signer:   &fakeSigner{ev: ev},
		balances: &fakeBalances{},
		recorder: &fakeRecorder{},
		ev:       ev,
		hook:     hook,
	}
	cfg := Config{
		Quoter:   h.quoter,
		Signer:   h.signer,
		Balances: h.balances,
		Recorder: h.recorder,
		Clock:    h.clk,
		Logger:   logger,
	}
	for _, o := range opts {
		o(&cfg)
	}

	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	h.s = s
	return h
}

func (h *harness) waitState(t *testing.T, want State) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = h.s.Snapshot()
		return snap.State == want
	}, waitFor, tick, "state never became %s", want)
	return snap
}

func (h *harness) quoted(t *testing.T, amount string) Snapshot {
	t.Helper()
	require.NoError(t, h.s.SetAmount(amount))
	h.clk.Advance(DefaultDebounce)
	return h.waitState(t, Quoted)
}

func (h *harness) logged(msg string) bool {
	for _, e := range h.hook.AllEntries() {
		if e.Message == msg {
			return true
		}
	}
	return false
}

func TestSession_ValidSwapScenario(t *testing.T) {
	h := newHarness(t)

	snap := h.quoted(t, "0.01")

	req := h.quoter.lastOrder()
	assert.Equal(t, "10000000", req.Amount)
	assert.Equal(t, tokens.SOL.Address, req.InputMint)
	assert.Equal(t, tokens.USDC.Address, req.OutputMint)
	assert.Equal(t, testTaker, req.Taker)
	require.NotNil(t, req.SlippageBps)
	assert.Equal(t, uint16(50), *req.SlippageBps)

	require.NotNil(t, snap.Display)
	assert.Equal(t, "1.5", snap.Display.OutAmountText)
	assert.InDelta(t, 150, snap.Display.Rate.Value, 1e-9)
	assert.False(t, snap.Loading)
	assert.True(t, snap.CanConfirm())
}

func TestSession_DebounceCollapsesRapidInput(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.s.SetAmount("1"))
	h.clk.Advance(100 * time.Millisecond)
	require.NoError(t, h.s.SetAmount("2"))
	h.clk.Advance(100 * time.Millisecond)
	require.NoError(t, h.s.SetAmount("3"))
	assert.Equal(t, Debouncing, h.s.Snapshot().State)
	assert.Zero(t, h.quoter.orderCount())

	h.clk.Advance(DefaultDebounce)
	h.waitState(t, Quoted)

	assert.Equal(t, 1, h.quoter.orderCount())
	assert.Equal(t, "3000000000", h.quoter.lastOrder().Amount)
}

func TestSession_StaleCompletionDiscarded(t *testing.T) {
	h := newHarness(t)

	release := make(chan struct{})
	h.quoter.setOrderFn(func(ctx context.Context, n int, req jupiter.OrderRequest) (*jupiter.OrderResponse, error) {
		if req.Amount == "1000000000" {
			<-release
			r := okOrder(n, req)
			r.OutAmount = "999999999"
			return r, nil
		}
		return okOrder(n, req), nil
	})

	require.NoError(t, h.s.SetAmount("1"))
	h.clk.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return h.quoter.orderCount() == 1 }, waitFor, tick)

	require.NoError(t, h.s.SetAmount("2"))
	close(release)

	require.Eventually(t, func() bool { return h.s.Snapshot().StaleDiscards == 1 }, waitFor, tick)
	snap := h.s.Snapshot()
	assert.Equal(t, Debouncing, snap.State)
	assert.Nil(t, snap.Quote)
	assert.True(t, h.logged("quote completion discarded"))

	h.clk.Advance(DefaultDebounce)
	snap = h.waitState(t, Quoted)
	assert.Equal(t, "2000000000", snap.Quote.InAmount)
	assert.Equal(t, "1500000", snap.Quote.OutAmount)
}

func TestSession_PollingRefreshesQuote(t *testing.T) {
	h := newHarness(t)
	first := h.quoted(t, "0.01")

	h.clk.Advance(DefaultPollInterval)
	require.Eventually(t, func() bool {
		snap := h.s.Snapshot()
		return snap.Quote != nil && snap.Quote.RequestID != first.Quote.RequestID
	}, waitFor, tick)

	h.clk.Advance(DefaultPollInterval)
	require.Eventually(t, func() bool { return h.quoter.orderCount() == 3 }, waitFor, tick)
}

func TestSession_PollSkipsWhileFetchInFlight(t *testing.T) {
	h := newHarness(t)

	release := make(chan struct{})
	h.quoter.setOrderFn(func(ctx context.Context, n int, req jupiter.OrderRequest) (*jupiter.OrderResponse, error) {
		if n == 1 {
			<-release
		}
		return okOrder(n, req), nil
	})

	require.NoError(t, h.s.SetAmount("1"))
	h.clk.Advance(DefaultDebounce)
	snap := h.waitState(t, Quoting)
	assert.True(t, snap.Loading)

	h.clk.Advance(DefaultPollInterval)
	h.clk.Advance(DefaultPollInterval)
	assert.Equal(t, 1, h.quoter.orderCount())

	close(release)
	h.waitState(t, Quoted)
	h.clk.Advance(DefaultPollInterval)
	require.Eventually(t, func() bool { return h.quoter.orderCount() == 2 }, waitFor, tick)
}

func TestSession_BackgroundFailureKeepsQuote(t *testing.T) {
	h := newHarness(t)
	first := h.quoted(t, "0.01")

	h.quoter.setOrderFn(func(ctx context.Context, n int, req jupiter.OrderRequest) (*jupiter.OrderResponse, error) {
		return nil, &jupiter.UpstreamQuoteError{Status: 503, Message: "quote failed (HTTP 503)"}
	})
	h.clk.Advance(DefaultPollInterval)

	require.Eventually(t, func() bool { return h.logged("background quote refresh failed") }, waitFor, tick)
	snap := h.s.Snapshot()
	assert.Equal(t, Quoted, snap.State)
	assert.Equal(t, first.Quote, snap.Quote)
	assert.NoError(t, snap.Err)
}

func TestSession_ForegroundFailureClearsQuote(t *testing.T) {
	h := newHarness(t)
	h.quoter.setOrderFn(func(ctx context.Context, n int, req jupiter.OrderRequest) (*jupiter.OrderResponse, error) {
		return nil, &jupiter.UpstreamQuoteError{Status: 400, Code: 3, Message: "Insufficient liquidity"}
	})

	require.NoError(t, h.s.SetAmount("1"))
	h.clk.Advance(DefaultDebounce)
	snap := h.waitState(t, Failed)

	assert.Nil(t, snap.Quote)
	assert.Nil(t, snap.Display)
	require.Error(t, snap.Err)
	assert.Equal(t, "Insufficient liquidity", snap.Err.Error())
	assert.False(t, snap.CanConfirm())

	// A later successful poll recovers.
	h.quoter.setOrderFn(nil)
	h.clk.Advance(DefaultPollInterval)
	h.waitState(t, Quoted)
}

func TestSession_InvalidAmountNeverFetches(t *testing.T) {
	h := newHarness(t)

	for _, amount := range []string{"", "0", "-1", "abc", "0.0000000001"} {
		require.NoError(t, h.s.SetAmount(amount))
		assert.Equal(t, Idle, h.s.Snapshot().State, "amount %q", amount)
		h.clk.Advance(2 * time.Second)
	}
	assert.Zero(t, h.quoter.orderCount())
	assert.Zero(t, h.clk.Pending())
}

func TestSession_DisconnectedWalletNeverFetches(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Signer = wallet.Disconnected{} })

	require.NoError(t, h.s.SetAmount("1"))
	assert.Equal(t, Idle, h.s.Snapshot().State)
	h.clk.Advance(2 * time.Second)
	assert.Zero(t, h.quoter.orderCount())

	require.NoError(t, h.s.SetTaker(testTaker))
	assert.Equal(t, Debouncing, h.s.Snapshot().State)

	require.NoError(t, h.s.SetTaker(""))
	assert.Equal(t, Idle, h.s.Snapshot().State)
	assert.Zero(t, h.clk.Pending())
}

func TestSession_ParameterChangeInvalidatesQuote(t *testing.T) {
	h := newHarness(t)
	h.quoted(t, "0.01")
	gen := h.s.Snapshot().Generation

	require.NoError(t, h.s.SetSlippageBps(100))
	snap := h.s.Snapshot()
	assert.Equal(t, Debouncing, snap.State)
	assert.Nil(t, snap.Quote)
	assert.Greater(t, snap.Generation, gen)

	assert.ErrorIs(t, h.s.SetSlippageBps(0), ErrInvalidSlippage)
	assert.ErrorIs(t, h.s.SetSlippageBps(5001), ErrInvalidSlippage)

	// Unchanged values do not restart the cycle.
	gen = h.s.Snapshot().Generation
	require.NoError(t, h.s.SetSlippageBps(100))
	require.NoError(t, h.s.SetAmount("0.01"))
	assert.Equal(t, gen, h.s.Snapshot().Generation)
}

func TestSession_TokenSelectionSwapsSides(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.s.SetInputToken(tokens.USDC))
	snap := h.s.Snapshot()
	assert.Equal(t, tokens.USDC, snap.InputToken)
	assert.Equal(t, tokens.SOL, snap.OutputToken)

	require.NoError(t, h.s.SetOutputToken(tokens.USDC))
	snap = h.s.Snapshot()
	assert.Equal(t, tokens.SOL, snap.InputToken)
	assert.Equal(t, tokens.USDC, snap.OutputToken)

	require.NoError(t, h.s.SetOutputToken(tokens.BONK))
	assert.Equal(t, tokens.BONK, h.s.Snapshot().OutputToken)
}

func TestSession_FlipCarriesOutputAmount(t *testing.T) {
	h := newHarness(t)
	h.quoted(t, "0.01")

	require.NoError(t, h.s.Flip())
	snap := h.s.Snapshot()
	assert.Equal(t, tokens.USDC, snap.InputToken)
	assert.Equal(t, tokens.SOL, snap.OutputToken)
	assert.Equal(t, "1.5", snap.Amount)
	assert.Equal(t, Debouncing, snap.State)

	h.clk.Advance(DefaultDebounce)
	h.waitState(t, Quoted)
	assert.Equal(t, "1500000", h.quoter.lastOrder().Amount)
}

func TestSession_ConfirmSuccess(t *testing.T) {
	h := newHarness(t)
	h.quoted(t, "0.01")
	require.Eventually(t, func() bool { return h.balances.calls.Load() >= 1 }, waitFor, tick)
	before := h.balances.calls.Load()
	ordersBefore := h.quoter.orderCount()

	res, err := h.s.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5ettled", res.Signature)

	assert.Equal(t, []string{"order", "order", "sign", "execute"}, h.ev.list())
	assert.Equal(t, ordersBefore+1, h.quoter.orderCount())

	h.quoter.mu.Lock()
	exec := h.quoter.executed[0]
	h.quoter.mu.Unlock()
	// The fresh quote is executed, not the displayed one.
	assert.Equal(t, fmt.Sprintf("req-%d", ordersBefore+1), exec.RequestID)
	signed, err := base64.StdEncoding.DecodeString(exec.SignedTransaction)
	require.NoError(t, err)
	assert.Equal(t, "signed:unsigned", string(signed))

	snap := h.s.Snapshot()
	assert.Equal(t, Settled, snap.State)
	assert.Equal(t, "5ettled", snap.Signature)
	assert.Nil(t, snap.Quote)
	assert.Empty(t, snap.Amount)
	assert.Zero(t, h.clk.Pending())

	require.Eventually(t, func() bool { return h.balances.calls.Load() > before }, waitFor, tick)
	require.Eventually(t, func() bool { return h.recorder.count() == 1 }, waitFor, tick)
}

func TestSession_ExpiredQuoteOnSubmit(t *testing.T) {
	h := newHarness(t)
	h.quoted(t, "0.01")

	h.quoter.setOrderFn(func(ctx context.Context, n int, req jupiter.OrderRequest) (*jupiter.OrderResponse, error) {
		return nil, &jupiter.UpstreamQuoteError{Status: 400, Message: "expired"}
	})

	_, err := h.s.Confirm(context.Background())
	var qe *jupiter.UpstreamQuoteError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "expired", err.Error())

	snap := h.s.Snapshot()
	assert.Equal(t, Failed, snap.State)
	assert.Equal(t, "expired", snap.Err.Error())
	assert.Zero(t, h.signer.calls.Load())
	assert.Zero(t, h.quoter.executeCount())
	assert.NotContains(t, h.ev.list(), "sign")
}

func TestSession_ExecuteFailureKeepsQuote(t *testing.T) {
	h := newHarness(t)
	h.quoted(t, "0.01")
	require.Eventually(t, func() bool { return h.balances.calls.Load() >= 1 }, waitFor, tick)
	before := h.balances.calls.Load()

	h.quoter.mu.Lock()
	h.quoter.execErr = &jupiter.UpstreamExecuteError{Status: 400, Code: -1, Message: "Slippage tolerance exceeded"}
	h.quoter.mu.Unlock()

	_, err := h.s.Confirm(context.Background())
	require.Error(t, err)

	snap := h.s.Snapshot()
	assert.Equal(t, Failed, snap.State)
	assert.Equal(t, "Slippage tolerance exceeded", snap.Err.Error())
	assert.NotNil(t, snap.Quote)
	assert.Equal(t, "0.01", snap.Amount)
	assert.True(t, snap.CanConfirm())
	assert.Equal(t, before, h.balances.calls.Load())
	assert.Zero(t, h.recorder.count())

	// No polling after a failed submission.
	orders := h.quoter.orderCount()
	h.clk.Advance(5 * DefaultPollInterval)
	assert.Equal(t, orders, h.quoter.orderCount())
}

func TestSession_SigningRejectedSkipsExecute(t *testing.T) {
	h := newHarness(t)
	h.signer.err = wallet.ErrSigningRejected
	h.quoted(t, "0.01")

	_, err := h.s.Confirm(context.Background())
	assert.ErrorIs(t, err, wallet.ErrSigningRejected)
	assert.Equal(t, Failed, h.s.Snapshot().State)
	assert.Zero(t, h.quoter.executeCount())
	assert.Equal(t, []string{"order", "order", "sign"}, h.ev.list())
}

func TestSession_ParametersLockedWhileSigning(t *testing.T) {
	h := newHarness(t)
	h.signer.block = make(chan struct{})
	h.signer.seen = make(chan []byte, 1)
	h.quoted(t, "0.01")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.s.Confirm(ctx)
		done <- err
	}()

	raw := <-h.signer.seen
	assert.Equal(t, "unsigned", string(raw))
	assert.Equal(t, Submitting, h.s.Snapshot().State)
	assert.ErrorIs(t, h.s.SetAmount("5"), ErrSigningInProgress)
	assert.ErrorIs(t, h.s.SetTaker(""), ErrSigningInProgress)

	_, err := h.s.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	// Cancelling the caller does not abort a pending signature.
	cancel()
	close(h.signer.block)
	require.NoError(t, <-done)
	assert.Equal(t, Settled, h.s.Snapshot().State)
	assert.Equal(t, 1, h.quoter.executeCount())
}

func TestSession_ChangeDuringRequoteSupersedesSubmit(t *testing.T) {
	h := newHarness(t)
	h.quoted(t, "0.01")

	started := make(chan struct{})
	release := make(chan struct{})
	h.quoter.setOrderFn(func(ctx context.Context, n int, req jupiter.OrderRequest) (*jupiter.OrderResponse, error) {
		if req.Amount == "10000000" {
			close(started)
			<-release
		}
		return okOrder(n, req), nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := h.s.Confirm(context.Background())
		done <- err
	}()

	<-started
	require.NoError(t, h.s.SetAmount("0.02"))
	close(release)

	assert.ErrorIs(t, <-done, ErrSubmitSuperseded)
	assert.Zero(t, h.signer.calls.Load())
	assert.Zero(t, h.quoter.executeCount())

	h.clk.Advance(DefaultDebounce)
	snap := h.waitState(t, Quoted)
	assert.Equal(t, "20000000", snap.Quote.InAmount)
}

func TestNew_RequiresQuoter(t *testing.T) {
	_, err := New(Config{InputToken: tokens.SOL, OutputToken: tokens.USDC})
	require.Error(t, err)
	assert.NotErrorIs(t, err, jupiter.ErrMissingAPIKey)
}

func TestSession_ConfirmPreconditions(t *testing.T) {
	h := newHarness(t)
	_, err := h.s.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrNoQuote)

	d := newHarness(t, func(c *Config) { c.Signer = wallet.Disconnected{} })
	require.NoError(t, d.s.SetTaker(testTaker))
	d.quoted(t, "1")
	_, err = d.s.Confirm(context.Background())
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
}

func TestSession_Close(t *testing.T) {
	h := newHarness(t)
	h.quoted(t, "0.01")
	require.NotZero(t, h.clk.Pending())

	h.s.Close()
	assert.Zero(t, h.clk.Pending())
	assert.ErrorIs(t, h.s.SetAmount("1"), ErrSessionClosed)
	_, err := h.s.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)

	h.clk.Advance(10 * time.Second)
	assert.Equal(t, 1, h.quoter.orderCount())
}

func TestSession_BalancesAndMaxAmount(t *testing.T) {
	h := newHarness(t)

	require.Eventually(t, func() bool {
		_, ok := h.s.Snapshot().Balance(tokens.NativeMint)
		return ok
	}, waitFor, tick)

	snap := h.s.Snapshot()
	_, known := snap.Balance(tokens.USDC.Address)
	assert.False(t, known, "missing mint must stay unknown")

	require.NoError(t, h.s.SetMaxAmount())
	assert.Equal(t, "1.99", h.s.Snapshot().Amount)
}

func TestSession_ReferencePriceRederivesDisplay(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.InputToken = tokens.USDC
		c.OutputToken = tokens.USDT
	})
	snap := h.quoted(t, "1")
	assert.Zero(t, snap.Display.NetworkFeeUSD)

	h.s.SetReferencePrice(200)
	snap = h.s.Snapshot()
	assert.InDelta(t, 0.001, snap.Display.NetworkFeeUSD, 1e-12)
	assert.Equal(t, 1, h.quoter.orderCount())
}

func TestSession_OnChangeReportsLoading(t *testing.T) {
	var mu sync.Mutex
	var states []State
	var loading []bool
	h := newHarness(t, func(c *Config) {
		c.OnChange = func(s Snapshot) {
			mu.Lock()
			states = append(states, s.State)
			loading = append(loading, s.Loading)
			mu.Unlock()
		}
	})

	h.quoted(t, "0.01")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) > 0 && states[len(states)-1] == Quoted
	}, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, Debouncing)
	assert.Contains(t, states, Quoting)
	assert.False(t, loading[len(loading)-1])
}
