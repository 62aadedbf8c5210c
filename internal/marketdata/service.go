// Package marketdata aggregates public token data (search, popular and
// trending lists, token detail, candles, recent trades) behind a TTL cache.
// When an upstream fails or rate-limits, the last stored copy is served.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/clock"
	"github.com/aman-zulfiqar/solswap/internal/telemetry"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/sirupsen/logrus"
)

const (
	PopularTTL  = 30 * time.Second
	TrendingTTL = 60 * time.Second
	OHLCVTTL    = 120 * time.Second
	TradesTTL   = 5 * time.Second

	maxSearchResults  = 8
	maxTrendingTokens = 30
	maxHolders        = 10
)

type Config struct {
	Cache      Cache
	Assets     AssetReader
	Clock      clock.Clock
	Logger     *logrus.Logger
	HTTPClient *http.Client
	Endpoints  Endpoints

	// StaleOnly, when it reports true, makes cached lookups serve any stored
	// entry regardless of age instead of calling the upstream.
	StaleOnly func(context.Context) bool
}

type Service struct {
	cache     Cache
	assets    AssetReader
	clock     clock.Clock
	logger    *logrus.Logger
	http      *http.Client
	endpoints Endpoints
	staleOnly func(context.Context) bool
}

func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache(cfg.Clock)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 12 * time.Second}
	}
	return &Service{
		cache:     cfg.Cache,
		assets:    cfg.Assets,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		http:      cfg.HTTPClient,
		endpoints: cfg.Endpoints.withDefaults(),
		staleOnly: cfg.StaleOnly,
	}
}

// cached returns the entry under key when younger than ttl, otherwise calls
// load. A failed load falls back to the stored entry of any age.
func cached[T any](ctx context.Context, s *Service, source, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T

	entry, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("market-data cache read failed")
		ok = false
	}
	fresh := ok && s.clock.Now().Sub(entry.StoredAt) < ttl
	if ok && !fresh && s.staleOnly != nil && s.staleOnly(ctx) {
		fresh = true
	}
	if fresh {
		var v T
		if err := json.Unmarshal(entry.Data, &v); err == nil {
			telemetry.CacheLookups.WithLabelValues(source, "hit").Inc()
			return v, nil
		}
	}

	v, loadErr := load(ctx)
	if loadErr == nil {
		telemetry.CacheLookups.WithLabelValues(source, "miss").Inc()
		if data, err := json.Marshal(v); err == nil {
			if err := s.cache.Set(ctx, key, data); err != nil {
				s.logger.WithError(err).WithField("key", key).Warn("market-data cache write failed")
			}
		}
		return v, nil
	}

	if ok {
		var stale T
		if err := json.Unmarshal(entry.Data, &stale); err == nil {
			telemetry.CacheLookups.WithLabelValues(source, "stale").Inc()
			s.logger.WithError(loadErr).WithFields(logrus.Fields{
				"key": key,
				"age": s.clock.Now().Sub(entry.StoredAt).String(),
			}).Warn("serving stale market data")
			return stale, nil
		}
	}
	return zero, loadErr
}

// bestPairs keeps the highest 24h-volume pair per base token.
func bestPairs(pairs []Pair) map[string]Pair {
	best := make(map[string]Pair, len(pairs))
	for _, p := range pairs {
		addr := p.BaseToken.Address
		cur, ok := best[addr]
		if !ok || p.Volume24h() > cur.Volume24h() {
			best[addr] = p
		}
	}
	return best
}

// Search finds Solana tokens matching q, one row per token ordered by 24h
// volume. Upstream failures yield an empty list. Results are not cached.
func (s *Service) Search(ctx context.Context, q string) []TokenSummary {
	q = strings.TrimSpace(q)
	if q == "" {
		return []TokenSummary{}
	}
	pairs, err := s.searchPairs(ctx, q)
	if err != nil {
		s.logger.WithError(err).WithField("q", q).Warn("token search failed")
		return []TokenSummary{}
	}

	onChain := pairs[:0]
	for _, p := range pairs {
		if p.ChainID == solanaChain {
			onChain = append(onChain, p)
		}
	}
	best := bestPairs(onChain)

	out := make([]TokenSummary, 0, len(best))
	for _, p := range best {
		out = append(out, summarize(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Volume24h == out[j].Volume24h {
			return out[i].Address < out[j].Address
		}
		return out[i].Volume24h > out[j].Volume24h
	})
	if len(out) > maxSearchResults {
		out = out[:maxSearchResults]
	}
	return out
}

// Popular lists the registry's popular tokens in declared order.
func (s *Service) Popular(ctx context.Context) ([]TokenSummary, error) {
	return cached(ctx, s, "popular", "popular", PopularTTL, func(ctx context.Context) ([]TokenSummary, error) {
		addrs := tokens.PopularAddresses()
		pairs, err := s.tokenPairs(ctx, addrs)
		if err != nil {
			return nil, err
		}
		best := bestPairs(pairs)
		out := make([]TokenSummary, 0, len(addrs))
		for _, addr := range addrs {
			p, ok := best[addr]
			if !ok {
				continue
			}
			out = append(out, summarize(p))
		}
		return out, nil
	})
}

// Trending lists boosted Solana tokens, most boosted first.
func (s *Service) Trending(ctx context.Context) ([]TokenSummary, error) {
	return cached(ctx, s, "trending", "trending", TrendingTTL, func(ctx context.Context) ([]TokenSummary, error) {
		boosts, err := s.topBoosts(ctx)
		if err != nil {
			return nil, err
		}

		amounts := make(map[string]float64)
		var addrs []string
		for _, b := range boosts {
			if b.ChainID != solanaChain {
				continue
			}
			if _, seen := amounts[b.TokenAddress]; !seen {
				addrs = append(addrs, b.TokenAddress)
			}
			amounts[b.TokenAddress] += b.TotalAmount
		}
		if len(addrs) > maxTrendingTokens {
			addrs = addrs[:maxTrendingTokens]
		}
		if len(addrs) == 0 {
			return []TokenSummary{}, nil
		}

		pairs, err := s.tokenPairs(ctx, addrs)
		if err != nil {
			return nil, err
		}
		best := bestPairs(pairs)
		out := make([]TokenSummary, 0, len(addrs))
		for _, addr := range addrs {
			p, ok := best[addr]
			if !ok {
				continue
			}
			row := summarize(p)
			row.Address = addr
			row.BoostAmount = amounts[addr]
			out = append(out, row)
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].BoostAmount > out[j].BoostAmount })
		return out, nil
	})
}

// Token assembles the detail page for one mint: market figures from its most
// traded pair plus on-chain metadata and top holders when available.
func (s *Service) Token(ctx context.Context, address string) (*TokenDetail, error) {
	asset := make(chan assetInfo, 1)
	go func() { asset <- s.readAsset(ctx, address) }()

	pairs, pairsErr := s.tokenPairs(ctx, []string{address})
	info := <-asset

	if pairsErr != nil {
		return nil, pairsErr
	}
	if len(pairs) == 0 {
		return nil, ErrNotFound
	}

	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.Volume24h() > best.Volume24h() {
			best = p
		}
	}

	d := &TokenDetail{
		TokenSummary: summarize(best),
		Decimals:     info.decimals,
		Description:  info.description,
		Website:      firstWebsite(best),
		Twitter:      best.social("twitter"),
		Telegram:     best.social("telegram"),
		Discord:      best.social("discord"),
		TopHolders:   info.holders,

		MintAuthority:   info.mintAuthority,
		FreezeAuthority: info.freezeAuthority,
	}
	d.PriceNative = parseFloat(best.PriceNative)
	d.Change1h = optional(best.PriceChange, "h1")
	d.Change6h = optional(best.PriceChange, "h6")
	d.Change5m = optional(best.PriceChange, "m5")
	d.Volume1h = optional(best.Volume, "h1")
	d.Volume6h = optional(best.Volume, "h6")
	d.Volume5m = optional(best.Volume, "m5")
	d.Txns24h = txns(best, "h24")
	d.Txns1h = txns(best, "h1")
	d.Txns6h = txns(best, "h6")
	d.Txns5m = txns(best, "m5")
	if info.uiSupply > 0 {
		d.Supply = info.uiSupply
	}
	return d, nil
}

type assetInfo struct {
	decimals        int
	uiSupply        float64
	description     string
	mintAuthority   bool
	freezeAuthority bool
	holders         []Holder
}

// readAsset is best effort: any RPC failure leaves the fields empty.
func (s *Service) readAsset(ctx context.Context, address string) assetInfo {
	var info assetInfo
	if s.assets == nil {
		return info
	}
	asset, err := s.assets.GetAsset(ctx, address)
	if err != nil {
		s.logger.WithError(err).WithField("mint", address).Debug("asset metadata unavailable")
		return info
	}
	ti := asset.TokenInfo
	info.decimals = ti.Decimals
	info.description = asset.Content.Metadata.Description
	info.mintAuthority = ti.MintAuthority != ""
	info.freezeAuthority = ti.FreezeAuthority != ""
	if ti.Supply <= 0 {
		return info
	}
	info.uiSupply = ti.Supply / math.Pow10(ti.Decimals)

	accounts, err := s.assets.GetTokenLargestAccounts(ctx, address)
	if err != nil {
		s.logger.WithError(err).WithField("mint", address).Debug("largest holders unavailable")
		return info
	}
	if len(accounts) > maxHolders {
		accounts = accounts[:maxHolders]
	}
	for _, a := range accounts {
		var amount float64
		if a.UIAmount != nil {
			amount = *a.UIAmount
		}
		info.holders = append(info.holders, Holder{
			Address:    a.Address,
			Amount:     amount,
			Percentage: amount / info.uiSupply * 100,
		})
	}
	return info
}

// OHLCV returns candles for a pool over the given timeframe.
func (s *Service) OHLCV(ctx context.Context, pair string, tf Timeframe) ([]Candle, error) {
	if tf == "" {
		tf = TF1H
	}
	key := "ohlcv:" + pair + ":" + string(tf)
	return cached(ctx, s, "ohlcv", key, OHLCVTTL, func(ctx context.Context) ([]Candle, error) {
		return s.fetchOHLCV(ctx, pair, tf)
	})
}

// Trades returns the most recent trades of a pool.
func (s *Service) Trades(ctx context.Context, pair string) ([]Trade, error) {
	return cached(ctx, s, "trades", "trades:"+pair, TradesTTL, func(ctx context.Context) ([]Trade, error) {
		return s.fetchTrades(ctx, pair)
	})
}

// IsRateLimited reports whether err is an upstream 429.
func IsRateLimited(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.RateLimited()
}
