package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/rpc"
	"github.com/aman-zulfiqar/solswap/internal/telemetry"
)

const (
	DexScreenerURL   = "https://api.dexscreener.com"
	DexPaprikaURL    = "https://api.dexpaprika.com"
	GeckoTerminalURL = "https://api.geckoterminal.com/api/v2"

	solanaChain = "solana"
)

// ErrNotFound is returned when an upstream knows nothing about a token.
var ErrNotFound = errors.New("token not found")

// UpstreamError is a non-2xx answer from a market-data source.
type UpstreamError struct {
	Source string
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.Source, e.Status)
}

// RateLimited reports whether the source asked us to back off.
func (e *UpstreamError) RateLimited() bool { return e.Status == http.StatusTooManyRequests }

// AssetReader reads token metadata and holders over RPC. *rpc.Client
// satisfies it when pointed at a DAS-capable endpoint.
type AssetReader interface {
	GetAsset(ctx context.Context, id string) (*rpc.Asset, error)
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]rpc.LargestAccount, error)
}

// Endpoints holds upstream base URLs. Empty fields use the public defaults.
type Endpoints struct {
	DexScreener   string
	DexPaprika    string
	GeckoTerminal string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.DexScreener == "" {
		e.DexScreener = DexScreenerURL
	}
	if e.DexPaprika == "" {
		e.DexPaprika = DexPaprikaURL
	}
	if e.GeckoTerminal == "" {
		e.GeckoTerminal = GeckoTerminalURL
	}
	e.DexScreener = strings.TrimRight(e.DexScreener, "/")
	e.DexPaprika = strings.TrimRight(e.DexPaprika, "/")
	e.GeckoTerminal = strings.TrimRight(e.GeckoTerminal, "/")
	return e
}

func (s *Service) getJSON(ctx context.Context, source, op, u string, out any) error {
	start := time.Now()
	defer telemetry.ObserveUpstream(source, op, start)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &UpstreamError{Source: source, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", source, err)
	}
	return nil
}

func (s *Service) searchPairs(ctx context.Context, q string) ([]Pair, error) {
	var resp struct {
		Pairs []Pair `json:"pairs"`
	}
	u := s.endpoints.DexScreener + "/latest/dex/search?q=" + url.QueryEscape(q)
	if err := s.getJSON(ctx, "dexscreener", "search", u, &resp); err != nil {
		return nil, err
	}
	return resp.Pairs, nil
}

func (s *Service) tokenPairs(ctx context.Context, addresses []string) ([]Pair, error) {
	var pairs []Pair
	u := s.endpoints.DexScreener + "/tokens/v1/" + solanaChain + "/" + strings.Join(addresses, ",")
	if err := s.getJSON(ctx, "dexscreener", "tokens", u, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

func (s *Service) topBoosts(ctx context.Context) ([]Boost, error) {
	var boosts []Boost
	u := s.endpoints.DexScreener + "/token-boosts/top/v1"
	if err := s.getJSON(ctx, "dexscreener", "boosts", u, &boosts); err != nil {
		return nil, err
	}
	return boosts, nil
}

type paprikaCandle struct {
	TimeOpen string  `json:"time_open"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

func (s *Service) fetchOHLCV(ctx context.Context, pair string, tf Timeframe) ([]Candle, error) {
	w := tf.window()
	q := url.Values{}
	q.Set("start", s.clock.Now().Add(-w.offset).UTC().Format(time.RFC3339))
	q.Set("limit", strconv.Itoa(w.limit))
	q.Set("interval", w.interval)
	u := fmt.Sprintf("%s/networks/%s/pools/%s/ohlcv?%s", s.endpoints.DexPaprika, solanaChain, url.PathEscape(pair), q.Encode())

	var raw []paprikaCandle
	if err := s.getJSON(ctx, "dexpaprika", "ohlcv", u, &raw); err != nil {
		return nil, err
	}

	candles := make([]Candle, 0, len(raw))
	for _, c := range raw {
		at, err := time.Parse(time.RFC3339, c.TimeOpen)
		if err != nil {
			continue
		}
		candles = append(candles, Candle{
			Time:   at.UnixMilli(),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}
	return candles, nil
}

type geckoTrade struct {
	Attributes struct {
		TxHash          string `json:"tx_hash"`
		TxFromAddress   string `json:"tx_from_address"`
		FromTokenAmount string `json:"from_token_amount"`
		ToTokenAmount   string `json:"to_token_amount"`
		BlockTimestamp  string `json:"block_timestamp"`
		Kind            string `json:"kind"`
		VolumeInUSD     string `json:"volume_in_usd"`
	} `json:"attributes"`
}

const maxTrades = 25

func (s *Service) fetchTrades(ctx context.Context, pair string) ([]Trade, error) {
	var resp struct {
		Data []geckoTrade `json:"data"`
	}
	u := fmt.Sprintf("%s/networks/%s/pools/%s/trades", s.endpoints.GeckoTerminal, solanaChain, url.PathEscape(pair))
	if err := s.getJSON(ctx, "geckoterminal", "trades", u, &resp); err != nil {
		return nil, err
	}

	raw := resp.Data
	if len(raw) > maxTrades {
		raw = raw[:maxTrades]
	}
	trades := make([]Trade, 0, len(raw))
	for _, t := range raw {
		a := t.Attributes
		// A buy receives the base token, a sell spends it.
		amountText := a.FromTokenAmount
		if a.Kind == "buy" {
			amountText = a.ToTokenAmount
		}
		amount, _ := strconv.ParseFloat(amountText, 64)
		total, _ := strconv.ParseFloat(a.VolumeInUSD, 64)

		var price float64
		if amount > 0 {
			price = total / amount
		}
		var ts int64
		if at, err := time.Parse(time.RFC3339, a.BlockTimestamp); err == nil {
			ts = at.UnixMilli()
		}
		trades = append(trades, Trade{
			ID:        a.TxHash,
			Type:      a.Kind,
			Amount:    amount,
			Price:     price,
			TotalUSD:  total,
			Wallet:    a.TxFromAddress,
			Timestamp: ts,
		})
	}
	return trades, nil
}
