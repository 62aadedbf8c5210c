package tokens

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// NativeFeeReserve is kept back from a SOL balance when spending the maximum.
var NativeFeeReserve = decimal.RequireFromString("0.01")

// ParseAmount parses a human amount. Anything non-numeric or not strictly
// positive is rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ToRaw scales a human amount into the smallest unit, rounding half away
// from zero. Amounts that round to zero are invalid.
func ToRaw(amount string, decimals int32) (string, error) {
	d, err := ParseAmount(amount)
	if err != nil {
		return "", err
	}
	raw := d.Shift(decimals).Round(0)
	if !raw.IsPositive() {
		return "", ErrInvalidAmount
	}
	return raw.String(), nil
}

// FromRaw converts an integer string in the smallest unit to human units.
func FromRaw(raw string, decimals int32) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse raw amount %q: %w", raw, err)
	}
	if !d.Equal(d.Truncate(0)) || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("raw amount %q is not a non-negative integer", raw)
	}
	return d.Shift(-decimals), nil
}

// DisplayPlaces caps shown precision at six places.
func DisplayPlaces(decimals int32) int32 {
	if decimals >= 6 {
		return 6
	}
	return decimals
}

// FormatAmount rounds to DisplayPlaces and trims trailing zeros.
func FormatAmount(d decimal.Decimal, decimals int32) string {
	return d.Round(DisplayPlaces(decimals)).String()
}

// MaxSpendable is the largest amount worth entering for a balance. SOL keeps
// NativeFeeReserve back for network fees.
func MaxSpendable(t Token, balance decimal.Decimal) decimal.Decimal {
	if !balance.IsPositive() {
		return decimal.Zero
	}
	if t.IsNative() {
		return decimal.Max(decimal.Zero, balance.Sub(NativeFeeReserve))
	}
	return balance
}
