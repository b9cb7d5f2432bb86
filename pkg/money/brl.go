// Package money converts between Brazilian real display strings and float
// amounts. The upstream municipal service speaks formatted strings
// ("1.234,56"); the workflow needs numbers for totals and comparisons.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Prefix is the currency symbol used in user-facing amounts.
const Prefix = "R$ "

// ParseBRL converts a Brazilian-formatted amount ("1.234,56", optionally
// prefixed with "R$ ") to a float.
func ParseBRL(s string) (float64, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "R$"))
	if raw == "" {
		return 0, fmt.Errorf("parse brl: empty amount")
	}
	raw = strings.ReplaceAll(raw, ".", "")
	raw = strings.ReplaceAll(raw, ",", ".")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse brl %q: %w", s, err)
	}
	return v, nil
}

// FormatBRL renders a float as a Brazilian-formatted amount with two
// decimals and dot thousand separators: 1234.56 -> "1.234,56".
func FormatBRL(v float64) string {
	neg := math.Signbit(v) && v != 0
	cents := int64(math.Round(math.Abs(v) * 100))
	intPart := cents / 100
	frac := cents % 100

	digits := strconv.FormatInt(intPart, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	out := fmt.Sprintf("%s,%02d", b.String(), frac)
	if neg {
		out = "-" + out
	}
	return out
}

// FormatBRLPrefix renders an amount with the currency symbol: "R$ 1.234,56".
func FormatBRLPrefix(v float64) string {
	return Prefix + FormatBRL(v)
}
