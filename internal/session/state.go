package session

import (
	"errors"

	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/pricing"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/shopspring/decimal"
)

type State int

const (
	Idle State = iota
	Debouncing
	Quoting
	Quoted
	Submitting
	Settled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Quoting:
		return "quoting"
	case Quoted:
		return "quoted"
	case Submitting:
		return "submitting"
	case Settled:
		return "settled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrStaleQuoteDiscarded marks a quote completion dropped because the
	// parameters it was issued for have since changed. It is logged and
	// counted, never surfaced.
	ErrStaleQuoteDiscarded = errors.New("stale quote discarded")

	ErrSubmitSuperseded  = errors.New("swap parameters changed before signing")
	ErrSigningInProgress = errors.New("waiting for wallet signature")
	ErrSubmitInProgress  = errors.New("swap already in progress")
	ErrNoQuote           = errors.New("no quote to confirm")
	ErrSessionClosed     = errors.New("session closed")
	ErrInvalidSlippage   = errors.New("slippage must be between 0.01% and 50%")
)

// Snapshot is a copy of the session's observable state.
type Snapshot struct {
	State State

	InputToken  tokens.Token
	OutputToken tokens.Token
	Amount      string
	SlippageBps uint16
	Taker       string

	// Quote and Display are replaced together and are nil when no quote is
	// shown.
	Quote   *jupiter.OrderResponse
	Display *pricing.Display

	// Loading is true during a foreground fetch and while submitting.
	Loading bool
	Err     error

	Signature string

	// Balances holds known balances by mint. A missing mint is unknown.
	Balances map[string]decimal.Decimal

	Generation    uint64
	StaleDiscards uint64
}

// Balance returns the known balance of mint.
func (s Snapshot) Balance(mint string) (decimal.Decimal, bool) {
	b, ok := s.Balances[mint]
	return b, ok
}

// CanConfirm reports whether Confirm would start a submission.
func (s Snapshot) CanConfirm() bool {
	return s.Quote != nil && s.Taker != "" && (s.State == Quoted || s.State == Failed)
}
