package session

import (
	"context"
	"time"
)

const balanceRefreshTimeout = 15 * time.Second

// RefreshBalances reloads balances of the selected pair for the current
// taker. Mints the provider could not read become unknown.
func (s *Session) RefreshBalances(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	taker := s.taker
	mints := []string{s.in.Address, s.out.Address}
	provider := s.balances
	s.mu.Unlock()

	if provider == nil || taker == "" {
		return nil
	}

	got, err := provider.GetBalances(ctx, taker, mints)

	s.mu.Lock()
	if s.closed || s.taker != taker {
		s.mu.Unlock()
		return err
	}
	for _, mint := range mints {
		if bal, ok := got[mint]; ok {
			s.holdings[mint] = bal
		} else {
			delete(s.holdings, mint)
		}
	}
	s.mu.Unlock()

	s.emit()
	return err
}

func (s *Session) refreshBalancesAsync() {
	ctx, cancel := context.WithTimeout(s.root, balanceRefreshTimeout)
	defer cancel()
	if err := s.RefreshBalances(ctx); err != nil && err != ErrSessionClosed {
		s.logger.WithError(err).Warn("balance refresh failed")
	}
}
