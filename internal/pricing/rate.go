package pricing

import (
	"fmt"
	"strings"
)

// Rate is the price of one Base in Quote units.
type Rate struct {
	Value float64
	Base  string
	Quote string
}

// Invert flips the rate for display. No re-quote is involved.
func (r Rate) Invert() Rate {
	inv := Rate{Base: r.Quote, Quote: r.Base}
	if r.Value != 0 {
		inv.Value = 1 / r.Value
	}
	return inv
}

// FormatRate shows small rates with eight places, everything else with four.
func FormatRate(v float64) string {
	if v < 0.01 {
		return fmt.Sprintf("%.8f", v)
	}
	return fmt.Sprintf("%.4f", v)
}

func (r Rate) String() string {
	return fmt.Sprintf("1 %s = %s %s", r.Base, FormatRate(r.Value), r.Quote)
}

// SlippagePresets are the offered tolerances, in percent.
var SlippagePresets = []float64{0.1, 0.5, 1, 3}

const (
	DefaultSlippageBps uint16 = 50
	MaxSlippageBps     uint16 = 5000
)

// HighSlippageBps marks tolerances that deserve a warning.
const HighSlippageBps uint16 = 300

// SlippageBpsFromPercent converts a custom percentage, accepting 0 < pct <= 50.
func SlippageBpsFromPercent(pct float64) (uint16, error) {
	if !(pct > 0) || pct > 50 {
		return 0, fmt.Errorf("slippage %.4g%% out of range (0, 50]", pct)
	}
	bps := uint16(pct*100 + 0.5)
	if bps == 0 {
		bps = 1
	}
	return bps, nil
}

// ValidSlippageBps reports whether bps is an accepted tolerance.
func ValidSlippageBps(bps uint16) bool {
	return bps > 0 && bps <= MaxSlippageBps
}

// FormatSlippage renders bps as a percentage, e.g. 50 -> "0.5%".
func FormatSlippage(bps uint16) string {
	s := fmt.Sprintf("%.2f", float64(bps)/100)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + "%"
}
