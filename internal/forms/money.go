package forms

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Money renders an amount with thousands separators. Cents are shown only
// when non-zero: 75000 -> "75,000", 1200.5 -> "1,200.50".
func Money(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	neg := d.IsNegative()
	d = d.Abs()

	whole := d.Truncate(0)
	s := humanize.BigComma(whole.BigInt())
	if frac := d.Sub(whole); !frac.IsZero() {
		s += strings.TrimPrefix(frac.StringFixed(2), "0")
	}
	if neg {
		return "-" + s
	}
	return s
}

// Dollars is Money with a leading "$".
func Dollars(v float64) string {
	m := Money(v)
	if strings.HasPrefix(m, "-") {
		return "-$" + m[1:]
	}
	return "$" + m
}

// Percent renders a percentage with two decimals: 11.345 -> "11.35%".
func Percent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

// plain renders a number without exponent or grouping, for machine formats.
func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
