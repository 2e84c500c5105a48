// Package money formats and parses amounts held in the smallest currency unit.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Symbol is appended to formatted amounts.
const Symbol = "đ"

// MaxAmount is the largest amount accepted from user input or storage.
// Sums of a few thousand such amounts still fit in an int64.
const MaxAmount int64 = 1_000_000_000_000_000

// ErrOutOfRange is returned for amounts whose magnitude exceeds MaxAmount.
var ErrOutOfRange = errors.New("amount out of range")

var (
	hundred   = decimal.NewFromInt(100)
	maxAmount = decimal.NewFromInt(MaxAmount)
)

// Format renders an amount with thousands grouping, e.g. 1200000 -> "1,200,000đ".
func Format(amount int64) string {
	return humanize.Comma(amount) + Symbol
}

// Percent returns part/whole*100 rounded to one decimal place.
// The result is not clamped and may exceed 100. A zero whole yields 0.
func Percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole)).Round(1).InexactFloat64()
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

// FromFloat converts a float amount (as decoded from JSON or a spreadsheet
// cell) into smallest-unit integer form, rounding half away from zero.
// Magnitudes above MaxAmount yield ErrOutOfRange.
func FromFloat(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("amount %v: %w", v, ErrOutOfRange)
	}
	return toInt(decimal.NewFromFloat(v), fmt.Sprint(v))
}

// Add returns a+b, saturating at the int64 bounds instead of wrapping.
func Add(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	}
	return a + b
}

func toInt(d decimal.Decimal, input string) (int64, error) {
	d = d.Round(0)
	if d.Abs().GreaterThan(maxAmount) {
		return 0, fmt.Errorf("amount %s: %w", input, ErrOutOfRange)
	}
	return d.IntPart(), nil
}

// Parse reads a human-entered amount such as "1,200,000đ", "1.200.000",
// "250000" or "12.5". Grouping separators and currency markers are ignored.
func Parse(s string) (int64, error) {
	clean := strings.TrimSpace(s)
	for _, marker := range []string{"VND", "vnd", "₫", Symbol, "$", " ", " "} {
		clean = strings.ReplaceAll(clean, marker, "")
	}
	if clean == "" {
		return 0, fmt.Errorf("parse amount %q: empty", s)
	}

	clean = strings.ReplaceAll(clean, ",", "")
	if strings.Count(clean, ".") > 1 {
		clean = strings.ReplaceAll(clean, ".", "")
	} else if i := strings.IndexByte(clean, '.'); i >= 0 && len(clean)-i-1 == 3 {
		// "1.200" is Vietnamese grouping, not a decimal fraction.
		clean = strings.ReplaceAll(clean, ".", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return toInt(d, s)
}
