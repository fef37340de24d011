// Package core provides the ledger domain types and money handling.
//
// Ledger amounts are integer milliunits: 1000 milliunits equal one unit of
// the budget currency. Arithmetic that leaves the integer domain (ratios,
// rounding, display) goes through shopspring/decimal.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Milliunits is the ledger's integer currency representation.
type Milliunits int64

var ErrInvalidAmount = errors.New("invalid amount")

var thousand = decimal.NewFromInt(1000)

// Decimal returns the amount in currency units.
func (m Milliunits) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -3)
}

// Abs returns the magnitude of m.
func (m Milliunits) Abs() Milliunits {
	if m < 0 {
		return -m
	}
	return m
}

// FromDecimal converts a currency amount to milliunits, rounding half away
// from zero on the fourth decimal place.
func FromDecimal(d decimal.Decimal) Milliunits {
	return Milliunits(d.Mul(thousand).Round(0).IntPart())
}

// ParseAmount parses a currency string such as "1,234.56", "$12" or "-3.5"
// into milliunits. Thousands separators and a leading currency symbol are
// tolerated; anything else is rejected.
func ParseAmount(s string) (Milliunits, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		// Accounting notation used by spreadsheet exports.
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = strings.TrimSpace(s[1:])
	}
	s = strings.TrimLeft(s, "$€£")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return FromDecimal(d), nil
}

// RoundTo rounds d to the given number of places, ties to even, and returns
// it as a float for JSON output.
func RoundTo(d decimal.Decimal, places int32) float64 {
	return d.RoundBank(places).InexactFloat64()
}

// FormatAmount renders d with US thousands grouping and a fixed number of
// decimals, e.g. FormatAmount(1234.5, 2) == "1,234.50". Ties round to even.
// A value that rounds to zero is printed without a sign.
func FormatAmount(d decimal.Decimal, places int32) string {
	rounded := d.RoundBank(places)
	if rounded.IsZero() {
		rounded = decimal.Zero
	}
	p := message.NewPrinter(language.AmericanEnglish)
	return p.Sprint(number.Decimal(rounded.InexactFloat64(), number.Scale(int(places))))
}

// Format renders m in currency units using FormatAmount.
func (m Milliunits) Format(places int32) string {
	return FormatAmount(m.Decimal(), places)
}
