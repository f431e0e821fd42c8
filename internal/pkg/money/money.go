// Package money formats USD amounts and ratios for prompts and summaries.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD renders v with thousands separators and at most two decimals,
// e.g. 1000 -> "1,000", 1234.5 -> "1,234.5".
func FormatUSD(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	neg := d.IsNegative()
	s := d.Abs().String()
	intPart, frac, _ := strings.Cut(s, ".")
	out := group(intPart)
	if frac != "" {
		out += "." + frac
	}
	if neg {
		return "-" + out
	}
	return out
}

// Fixed renders v with exactly places decimals.
func Fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Ratio returns num/den as a float, 0 when den is zero.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	r, _ := decimal.NewFromFloat(num).Div(decimal.NewFromFloat(den)).Float64()
	return r
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
