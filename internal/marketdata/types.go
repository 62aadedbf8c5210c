package marketdata

import (
	"strconv"
	"time"
)

// Pair is a DexScreener pair as returned by the tokens and search endpoints.
type Pair struct {
	ChainID     string    `json:"chainId"`
	DexID       string    `json:"dexId"`
	PairAddress string    `json:"pairAddress"`
	BaseToken   PairToken `json:"baseToken"`
	QuoteToken  PairToken `json:"quoteToken"`
	PriceNative string    `json:"priceNative"`
	PriceUSD    string    `json:"priceUsd"`

	Txns        map[string]TxnCount `json:"txns"`
	Volume      map[string]float64  `json:"volume"`
	PriceChange map[string]float64  `json:"priceChange"`
	Liquidity   struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`

	FDV           float64  `json:"fdv"`
	MarketCap     float64  `json:"marketCap"`
	PairCreatedAt int64    `json:"pairCreatedAt"`
	Info          PairInfo `json:"info"`
}

type PairToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type TxnCount struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type PairInfo struct {
	ImageURL string `json:"imageUrl"`
	Websites []struct {
		URL   string `json:"url"`
		Label string `json:"label"`
	} `json:"websites"`
	Socials []struct {
		URL  string `json:"url"`
		Type string `json:"type"`
	} `json:"socials"`
}

// Volume24h is the pair's 24h USD volume, zero when absent.
func (p Pair) Volume24h() float64 { return p.Volume["h24"] }

// Price parses PriceUSD, zero when absent or malformed.
func (p Pair) Price() float64 { return parseFloat(p.PriceUSD) }

func (p Pair) social(kind string) string {
	for _, s := range p.Info.Socials {
		if s.Type == kind {
			return s.URL
		}
	}
	return ""
}

// Boost is one entry of the DexScreener top-boosts list.
type Boost struct {
	ChainID      string  `json:"chainId"`
	TokenAddress string  `json:"tokenAddress"`
	TotalAmount  float64 `json:"totalAmount"`
}

// TokenSummary is a token row in search, popular and trending lists.
type TokenSummary struct {
	Address       string  `json:"address"`
	PairAddress   string  `json:"pairAddress,omitempty"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change24h     float64 `json:"change24h"`
	Volume24h     float64 `json:"volume24h"`
	MarketCap     float64 `json:"marketCap"`
	FDV           float64 `json:"fdv"`
	Liquidity     float64 `json:"liquidity"`
	ImageURL      *string `json:"imageUrl"`
	PairCreatedAt *int64  `json:"pairCreatedAt,omitempty"`
	BoostAmount   float64 `json:"boostAmount,omitempty"`
}

func summarize(p Pair) TokenSummary {
	s := TokenSummary{
		Address:     p.BaseToken.Address,
		PairAddress: p.PairAddress,
		Symbol:      p.BaseToken.Symbol,
		Name:        p.BaseToken.Name,
		Price:       p.Price(),
		Change24h:   p.PriceChange["h24"],
		Volume24h:   p.Volume24h(),
		MarketCap:   p.MarketCap,
		FDV:         p.FDV,
		Liquidity:   p.Liquidity.USD,
	}
	if p.Info.ImageURL != "" {
		img := p.Info.ImageURL
		s.ImageURL = &img
	}
	if p.PairCreatedAt > 0 {
		at := p.PairCreatedAt
		s.PairCreatedAt = &at
	}
	return s
}

// TokenDetail is the full token page payload.
type TokenDetail struct {
	TokenSummary

	Decimals    int      `json:"decimals"`
	PriceNative float64  `json:"priceNative,omitempty"`
	Change1h    *float64 `json:"change1h,omitempty"`
	Change6h    *float64 `json:"change6h,omitempty"`
	Change5m    *float64 `json:"change5m,omitempty"`
	Volume1h    *float64 `json:"volume1h,omitempty"`
	Volume6h    *float64 `json:"volume6h,omitempty"`
	Volume5m    *float64 `json:"volume5m,omitempty"`
	Supply      float64  `json:"supply,omitempty"`
	Description string   `json:"description,omitempty"`

	Website  string `json:"website,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Discord  string `json:"discord,omitempty"`

	Txns24h *TxnCount `json:"txns24h,omitempty"`
	Txns1h  *TxnCount `json:"txns1h,omitempty"`
	Txns6h  *TxnCount `json:"txns6h,omitempty"`
	Txns5m  *TxnCount `json:"txns5m,omitempty"`

	TopHolders      []Holder `json:"topHolders,omitempty"`
	MintAuthority   bool     `json:"mintAuthority,omitempty"`
	FreezeAuthority bool     `json:"freezeAuthority,omitempty"`
}

type Holder struct {
	Address    string  `json:"address"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// Candle is one OHLCV bar; Time is the bar's open in unix milliseconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Trade is one recent pool trade. Amount is in the pool's base token.
type Trade struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Price     float64 `json:"price"`
	TotalUSD  float64 `json:"totalUsd"`
	Wallet    string  `json:"wallet"`
	Timestamp int64   `json:"timestamp"`
}

// Timeframe selects the OHLCV window.
type Timeframe string

const (
	TF1H  Timeframe = "1H"
	TF4H  Timeframe = "4H"
	TF1D  Timeframe = "1D"
	TF1W  Timeframe = "1W"
	TF1M  Timeframe = "1M"
	TFAll Timeframe = "ALL"
)

// window is the candle interval, count and look-back for a timeframe.
type window struct {
	interval string
	limit    int
	offset   time.Duration
}

func (tf Timeframe) window() window {
	switch tf {
	case TF1H:
		return window{"1m", 60, time.Hour}
	case TF4H:
		return window{"5m", 48, 4 * time.Hour}
	case TF1D:
		return window{"15m", 96, 24 * time.Hour}
	case TF1M:
		return window{"4h", 180, 30 * 24 * time.Hour}
	default:
		return window{"1h", 168, 7 * 24 * time.Hour}
	}
}

func firstWebsite(p Pair) string {
	if len(p.Info.Websites) == 0 {
		return ""
	}
	return p.Info.Websites[0].URL
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func optional(m map[string]float64, k string) *float64 {
	v, ok := m[k]
	if !ok {
		return nil
	}
	return &v
}

func txns(p Pair, span string) *TxnCount {
	t, ok := p.Txns[span]
	if !ok {
		return nil
	}
	return &t
}
