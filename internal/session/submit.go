package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/history"
	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/pricing"
	"github.com/aman-zulfiqar/solswap/internal/telemetry"
	"github.com/aman-zulfiqar/solswap/internal/wallet"
	"github.com/sirupsen/logrus"
)

// Confirm runs the swap: fetch a fresh quote, have the wallet sign its
// transaction, then execute it. It blocks until the sequence finishes.
//
// The displayed quote is never signed. Once the wallet has been asked to
// sign, cancelling ctx no longer stops the sequence. Failures leave the
// session in Failed with the last quote still shown and are not retried.
func (s *Session) Confirm(ctx context.Context) (*jupiter.ExecuteResponse, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	case s.submitting:
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	case s.quote == nil || (s.state != Quoted && s.state != Failed):
		s.mu.Unlock()
		return nil, ErrNoQuote
	}
	if !s.signer.Connected() || s.signer.Address() != s.taker {
		s.mu.Unlock()
		return nil, wallet.ErrNotConnected
	}

	f, ok := s.newFetchLocked(resubmit)
	if !ok {
		s.mu.Unlock()
		return nil, ErrNoQuote
	}
	// Polling stops for good; anything already in flight is now stale.
	s.resetFetchesLocked()
	s.applied = f.seq
	s.submitting = true
	s.state = Submitting
	s.loading = true
	s.err = nil
	s.signature = ""
	s.mu.Unlock()
	s.emit()

	log := s.logger.WithFields(logrus.Fields{
		"input_mint":  f.req.InputMint,
		"output_mint": f.req.OutputMint,
		"amount":      f.req.Amount,
		"taker":       f.req.Taker,
	})

	order, display, err := s.fetchQuote(ctx, f)

	s.mu.Lock()
	if s.closed || f.gen != s.gen {
		s.mu.Unlock()
		log.Info("swap superseded before signing")
		telemetry.Swaps.WithLabelValues("superseded").Inc()
		return nil, ErrSubmitSuperseded
	}
	if err != nil {
		return nil, s.failSubmitLocked(log, "requote", err)
	}
	s.quote = order
	s.display = display
	s.signing = true
	s.mu.Unlock()
	s.emit()

	// Signing is user-modal and the signed transaction must be executed once
	// produced, so the caller's cancellation stops here.
	uncancellable := context.WithoutCancel(ctx)

	signed, err := s.sign(uncancellable, order)
	s.mu.Lock()
	s.signing = false
	if err != nil {
		return nil, s.failSubmitLocked(log, "sign", err)
	}
	s.mu.Unlock()

	start := time.Now()
	res, err := s.quoter.Execute(uncancellable, order.RequestID, signed)
	telemetry.ObserveUpstream("jupiter", "execute", start)

	s.mu.Lock()
	if err != nil {
		return nil, s.failSubmitLocked(log, "execute", err)
	}
	closed := s.closed
	s.submitting = false
	s.signature = res.Signature
	s.state = Settled
	s.loading = false
	s.quote = nil
	s.display = nil
	s.amount = ""
	if !closed {
		s.gen++
		s.resetFetchesLocked()
	}
	rec := history.NewSwapRecord(res.Signature, f.req.Taker, f.in, f.out, order, display)
	s.mu.Unlock()

	telemetry.Swaps.WithLabelValues("settled").Inc()
	log.WithField("signature", res.Signature).Info("swap settled")

	s.emit()
	if !closed {
		go s.refreshBalancesAsync()
	}
	if s.recorder != nil {
		go s.record(rec)
	}
	return res, nil
}

func (s *Session) sign(ctx context.Context, order *jupiter.OrderResponse) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(order.Transaction)
	if err != nil {
		return "", fmt.Errorf("%w: decode transaction: %v", wallet.ErrSigningFailed, err)
	}
	signed, err := s.signer.SignTransaction(ctx, raw)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(signed), nil
}

// failSubmitLocked ends a submission in Failed and unlocks. The quote shown
// before the failure stays so the user can confirm again.
func (s *Session) failSubmitLocked(log *logrus.Entry, step string, err error) error {
	s.submitting = false
	s.signing = false
	s.loading = false
	s.err = err
	s.state = Failed
	s.mu.Unlock()

	outcome := "failed"
	if errors.Is(err, wallet.ErrSigningRejected) {
		outcome = "rejected"
	}
	telemetry.Swaps.WithLabelValues(outcome).Inc()
	log.WithError(err).WithField("step", step).Warn("swap failed")

	s.emit()
	return err
}

func (s *Session) record(rec *history.SwapRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.recorder.RecordSwap(ctx, rec); err != nil {
		s.logger.WithError(err).WithField("signature", rec.Signature).Warn("failed to record swap")
	}
}

// Display derives figures for an arbitrary order in the session's current
// pair, e.g. for a confirmation prompt.
func (s *Session) Display(order *jupiter.OrderResponse) (*pricing.Display, error) {
	s.mu.Lock()
	in, out, ref := s.in, s.out, s.refPrice
	s.mu.Unlock()
	return pricing.Derive(order, in, out, ref)
}
