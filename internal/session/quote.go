package session

import (
	"context"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/pricing"
	"github.com/aman-zulfiqar/solswap/internal/telemetry"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/sirupsen/logrus"
)

type fetchMode string

const (
	foreground fetchMode = "foreground"
	background fetchMode = "background"
	resubmit   fetchMode = "submit"
)

// fetch is one quote attempt, pinned to the parameters it was issued for.
type fetch struct {
	gen  uint64
	seq  uint64
	mode fetchMode
	req  jupiter.OrderRequest
	in   tokens.Token
	out  tokens.Token
	ref  float64
}

func (s *Session) newFetchLocked(mode fetchMode) (fetch, bool) {
	req, ok := s.orderRequestLocked()
	if !ok {
		return fetch{}, false
	}
	s.seq++
	return fetch{
		gen:  s.gen,
		seq:  s.seq,
		mode: mode,
		req:  req,
		in:   s.in,
		out:  s.out,
		ref:  s.refPrice,
	}, true
}

// onDebounce issues the foreground fetch once input has been quiet, then
// starts background polling.
func (s *Session) onDebounce(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.submitting {
		s.mu.Unlock()
		return
	}
	s.debounceTimer = nil

	f, ok := s.newFetchLocked(foreground)
	if !ok {
		s.state = Idle
		s.mu.Unlock()
		s.emit()
		return
	}
	s.state = Quoting
	s.loading = true
	s.inflight++
	ctx := s.fetchCtx
	s.schedulePollLocked(gen)
	s.mu.Unlock()

	s.emit()
	go s.run(ctx, f)
}

func (s *Session) schedulePollLocked(gen uint64) {
	s.pollTimer = s.clock.AfterFunc(s.poll, func() { s.onPoll(gen) })
}

// onPoll re-fetches silently. A tick is skipped while a fetch for the same
// generation is still outstanding.
func (s *Session) onPoll(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.submitting {
		s.mu.Unlock()
		return
	}
	s.schedulePollLocked(gen)
	if s.inflight > 0 {
		s.mu.Unlock()
		return
	}
	f, ok := s.newFetchLocked(background)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.inflight++
	ctx := s.fetchCtx
	s.mu.Unlock()

	go s.run(ctx, f)
}

func (s *Session) run(ctx context.Context, f fetch) {
	order, display, err := s.fetchQuote(ctx, f)
	s.complete(f, order, display, err)
}

// fetchQuote performs the fetch and derives display figures outside the lock.
func (s *Session) fetchQuote(ctx context.Context, f fetch) (*jupiter.OrderResponse, *pricing.Display, error) {
	start := time.Now()
	order, err := s.quoter.Order(ctx, f.req)
	telemetry.ObserveUpstream("jupiter", "order", start)
	telemetry.QuoteFetches.WithLabelValues(string(f.mode), telemetry.Outcome(err)).Inc()
	if err != nil {
		return nil, nil, err
	}
	display, err := pricing.Derive(order, f.in, f.out, f.ref)
	if err != nil {
		return nil, nil, err
	}
	return order, display, nil
}

// isCurrentLocked reports whether a completion for f may still be applied.
func (s *Session) isCurrentLocked(f fetch) bool {
	return !s.closed && f.gen == s.gen && f.seq > s.applied
}

func (s *Session) discardLocked(f fetch, err error) {
	s.discards++
	telemetry.StaleQuotesDiscarded.Inc()
	entry := s.logger.WithFields(logrus.Fields{
		"gen":         f.gen,
		"current_gen": s.gen,
		"seq":         f.seq,
		"applied_seq": s.applied,
		"mode":        f.mode,
	})
	if err != nil {
		entry = entry.WithField("fetch_error", err.Error())
	}
	entry.WithError(ErrStaleQuoteDiscarded).Debug("quote completion discarded")
}

func (s *Session) complete(f fetch, order *jupiter.OrderResponse, display *pricing.Display, err error) {
	s.mu.Lock()
	if f.gen == s.gen && s.inflight > 0 {
		s.inflight--
	}
	if s.submitting || !s.isCurrentLocked(f) {
		s.discardLocked(f, err)
		s.mu.Unlock()
		return
	}
	s.applied = f.seq

	switch {
	case err == nil:
		s.quote = order
		s.display = display
		s.err = nil
		s.loading = false
		s.state = Quoted
	case f.mode == background:
		// The last good quote, or the last foreground error, stays on screen.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"input_mint":  f.req.InputMint,
			"output_mint": f.req.OutputMint,
			"amount":      f.req.Amount,
		}).Warn("background quote refresh failed")
		s.mu.Unlock()
		return
	default:
		s.quote = nil
		s.display = nil
		s.err = err
		s.loading = false
		s.state = Failed
		s.logger.WithError(err).WithFields(logrus.Fields{
			"input_mint":  f.req.InputMint,
			"output_mint": f.req.OutputMint,
			"amount":      f.req.Amount,
		}).Info("quote failed")
	}
	s.mu.Unlock()
	s.emit()
}
