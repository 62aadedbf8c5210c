package tokens

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aman-zulfiqar/solswap/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// SupplyReader is the RPC capability needed to learn a mint's decimals.
type SupplyReader interface {
	GetTokenSupply(ctx context.Context, mint string) (*rpc.TokenAmount, error)
}

// Resolver looks tokens up by address: registry first, then cache, then RPC.
type Resolver struct {
	rpc    SupplyReader
	logger *logrus.Logger

	mu    sync.RWMutex
	cache map[string]Token
}

func NewResolver(r SupplyReader, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{rpc: r, logger: logger, cache: make(map[string]Token)}
}

// Register caches metadata learned elsewhere, e.g. from a search result.
// Registry entries are never overwritten.
func (r *Resolver) Register(t Token) {
	if t.Address == "" {
		return
	}
	if _, ok := known[t.Address]; ok {
		return
	}
	r.mu.Lock()
	r.cache[t.Address] = t
	r.mu.Unlock()
}

func (r *Resolver) Resolve(ctx context.Context, address string) (Token, error) {
	address = strings.TrimSpace(address)
	if t, ok := Lookup(address); ok {
		return t, nil
	}

	r.mu.RLock()
	t, ok := r.cache[address]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return Token{}, fmt.Errorf("invalid mint address %q: %w", address, err)
	}
	if r.rpc == nil {
		return Token{}, fmt.Errorf("unknown token %s", address)
	}

	supply, err := r.rpc.GetTokenSupply(ctx, address)
	if err != nil {
		return Token{}, fmt.Errorf("getTokenSupply %s: %w", address, err)
	}

	t = Token{
		Address:  address,
		Symbol:   ShortAddress(address),
		Name:     ShortAddress(address),
		Decimals: int32(supply.Decimals),
	}
	r.logger.WithFields(logrus.Fields{
		"mint":     address,
		"decimals": t.Decimals,
	}).Debug("resolved token via rpc")

	r.mu.Lock()
	if cached, ok := r.cache[address]; ok {
		t = cached
	} else {
		r.cache[address] = t
	}
	r.mu.Unlock()
	return t, nil
}
