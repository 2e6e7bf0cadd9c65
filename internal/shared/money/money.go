// Package money formats and parses LKR amounts held as integer cents.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const Currency = "LKR"

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Format renders cents as "Rs. 1,250.00". Negative amounts keep a leading minus.
func Format(cents int) string {
	d := decimal.NewFromInt(int64(cents)).Div(hundred)
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("Rs. ")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// ParseCents parses a decimal string such as "1250", "1,250.5" or "Rs. 99.99"
// into cents. More than two decimal places or negative values are rejected.
func ParseCents(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Rs.")
	s = strings.TrimPrefix(s, "LKR")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<31-1)) {
		return 0, ErrInvalidAmount
	}
	return int(cents.IntPart()), nil
}
