// Package money defines the fixed-point currency used by command results and
// park finance.
package money

import (
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is a signed currency amount stored in tenths of a unit.
//
// Arithmetic stays in integers so every participant computes identical totals.
type Money int64

// Zero is the empty amount.
const Zero Money = 0

// Unit is one whole currency unit.
const Unit Money = 10

// FromUnits converts whole units to Money.
func FromUnits(units int64) Money {
	return Money(units) * Unit
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return m + other
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return m - other
}

// Mul scales m by an integer factor.
func (m Money) Mul(factor int64) Money {
	return m * Money(factor)
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m < 0
}

// String renders the amount as a plain decimal, e.g. "-12.5".
func (m Money) String() string {
	value := int64(m)
	negative := value < 0
	if negative {
		value = -value
	}
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(strconv.FormatInt(value/int64(Unit), 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatInt(value%int64(Unit), 10))
	return b.String()
}

// Format renders the amount for display in the given locale.
//
// Formatting is presentation only; it never feeds back into simulation state.
func (m Money) Format(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.AmericanEnglish
	}
	printer := message.NewPrinter(tag)
	amount := currency.GBP.Amount(float64(m) / float64(Unit))
	return printer.Sprint(currency.Symbol(amount))
}
