package balance

import (
	"context"
	"math/big"
	"sync"

	"github.com/aman-zulfiqar/solswap/internal/rpc"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Provider reports human-unit holdings per mint. A mint missing from the
// result is unknown, which is different from a zero balance.
type Provider interface {
	GetBalances(ctx context.Context, owner string, mints []string) (map[string]decimal.Decimal, error)
}

// AccountReader is the slice of the RPC client the provider needs.
type AccountReader interface {
	GetBalance(ctx context.Context, owner string) (uint64, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]rpc.TokenAccount, error)
}

// RPCProvider reads native SOL via getBalance and SPL tokens via
// getTokenAccountsByOwner, one lookup per mint in parallel.
type RPCProvider struct {
	rpc    AccountReader
	logger *logrus.Logger
}

func NewRPCProvider(r AccountReader, logger *logrus.Logger) *RPCProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &RPCProvider{rpc: r, logger: logger}
}

func (p *RPCProvider) GetBalances(ctx context.Context, owner string, mints []string) (map[string]decimal.Decimal, error) {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]decimal.Decimal, len(mints))
	)

	seen := make(map[string]struct{}, len(mints))
	for _, mint := range mints {
		if _, dup := seen[mint]; dup || mint == "" {
			continue
		}
		seen[mint] = struct{}{}

		wg.Add(1)
		go func(mint string) {
			defer wg.Done()
			bal, err := p.balanceOf(ctx, owner, mint)
			if err != nil {
				p.logger.WithError(err).WithFields(logrus.Fields{
					"owner": owner,
					"mint":  mint,
				}).Warn("balance lookup failed")
				return
			}
			mu.Lock()
			out[mint] = bal
			mu.Unlock()
		}(mint)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func (p *RPCProvider) balanceOf(ctx context.Context, owner, mint string) (decimal.Decimal, error) {
	if mint == tokens.NativeMint {
		lamports, err := p.rpc.GetBalance(ctx, owner)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -tokens.NativeDecimals), nil
	}

	accounts, err := p.rpc.GetTokenAccountsByOwner(ctx, owner, mint)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, acc := range accounts {
		amt := acc.Account.Data.Parsed.Info.TokenAmount
		raw, err := tokens.FromRaw(amt.Amount, int32(amt.Decimals))
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(raw)
	}
	return total, nil
}
