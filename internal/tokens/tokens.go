package tokens

import "strings"

// NativeMint is the wrapped SOL mint. Ultra quotes the native asset under it.
const NativeMint = "So11111111111111111111111111111111111111112"

// NativeDecimals is the lamport scale of SOL.
const NativeDecimals int32 = 9

// Token is a resolved SPL mint. Values are immutable once resolved.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
}

func (t Token) IsNative() bool { return t.Address == NativeMint }

func (t Token) IsZero() bool { return t.Address == "" }

var (
	SOL  = Token{Address: NativeMint, Symbol: "SOL", Name: "Solana", Decimals: 9}
	USDC = Token{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Name: "USD Coin", Decimals: 6}
	USDT = Token{Address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Symbol: "USDT", Name: "Tether USD", Decimals: 6}
	BONK = Token{Address: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Symbol: "BONK", Name: "Bonk", Decimals: 5}
	WIF  = Token{Address: "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm", Symbol: "WIF", Name: "dogwifhat", Decimals: 6}
	JUP  = Token{Address: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", Symbol: "JUP", Name: "Jupiter", Decimals: 6}
	RAY  = Token{Address: "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", Symbol: "RAY", Name: "Raydium", Decimals: 6}
	PYTH = Token{Address: "HZ1JovNiVvGrGNiiYvEozEVgZ58xaU3RKwX8eACQBCt3", Symbol: "PYTH", Name: "Pyth Network", Decimals: 6}

	POPCAT = Token{Address: "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr", Symbol: "POPCAT", Name: "Popcat", Decimals: 9}
	JTO    = Token{Address: "jtojtomepa8beP8AuQc6eXt5FriJwfFMwQx2v2f9mCL", Symbol: "JTO", Name: "Jito", Decimals: 9}
	ORCA   = Token{Address: "orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE", Symbol: "ORCA", Name: "Orca", Decimals: 6}
	RENDER = Token{Address: "rndrizKT3MK1iimdxRdWabcF7Zg7AR5T4nud4EkHBof", Symbol: "RENDER", Name: "Render", Decimals: 8}
	MSOL   = Token{Address: "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So", Symbol: "mSOL", Name: "Marinade Staked SOL", Decimals: 9}
)

// Popular is the fixed popular-token list, in display order.
var Popular = []Token{SOL, USDC, USDT, BONK, WIF, JUP, RAY, PYTH, POPCAT, JTO, ORCA, RENDER}

var known = func() map[string]Token {
	m := make(map[string]Token, len(Popular)+1)
	for _, t := range append(Popular, MSOL) {
		m[t.Address] = t
	}
	return m
}()

// Lookup returns a token from the built-in registry.
func Lookup(address string) (Token, bool) {
	t, ok := known[strings.TrimSpace(address)]
	return t, ok
}

// BySymbol matches registry symbols case-insensitively.
func BySymbol(symbol string) (Token, bool) {
	symbol = strings.TrimSpace(symbol)
	for _, t := range known {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

// PopularAddresses returns the mints of Popular in order.
func PopularAddresses() []string {
	out := make([]string, len(Popular))
	for i, t := range Popular {
		out[i] = t.Address
	}
	return out
}

// ShortAddress renders "abcd…wxyz" for tokens with no known symbol.
func ShortAddress(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:4] + "…" + address[len(address)-4:]
}
