// Package money provides an exact decimal currency amount used by the pricing engine.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a value cannot be represented as a currency amount.
var ErrInvalidAmount = errors.New("invalid amount")

// MaxIntegerDigits bounds the integer part of any amount handled by the engine.
const MaxIntegerDigits = 15

// divisionPlaces is the precision kept by Div; results are only rounded on finalisation.
const divisionPlaces = 16

var maxValue = decimal.New(1, MaxIntegerDigits)

// Currency describes how amounts of a currency are constructed and finalised.
type Currency struct {
	Code      string
	Symbol    string
	Precision int32
}

// THB is the default currency of the back office.
var THB = Currency{Code: "THB", Symbol: "฿", Precision: 2}

// Money is an immutable decimal amount. The zero value is zero.
type Money struct {
	amount decimal.Decimal
}

// Zero returns a zero amount.
func Zero() Money { return Money{} }

// New validates value against the currency precision.
func New(value decimal.Decimal, cur Currency) (Money, error) {
	if value.Exponent() < 0 && -value.Exponent() > cur.Precision {
		// trailing zeros past the precision ("10.500") are accepted
		if !value.Equal(value.Truncate(cur.Precision)) {
			return Money{}, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, value.String(), cur.Precision)
		}
	}
	if value.Abs().GreaterThanOrEqual(maxValue) {
		return Money{}, fmt.Errorf("%w: %s exceeds %d integer digits", ErrInvalidAmount, value.String(), MaxIntegerDigits)
	}
	return Money{amount: value}, nil
}

// NewFromFloat converts a float, rejecting NaN and infinities.
func NewFromFloat(value float64, cur Currency) (Money, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Money{}, fmt.Errorf("%w: %v is not finite", ErrInvalidAmount, value)
	}
	return New(decimal.NewFromFloat(value), cur)
}

// Parse reads a plain decimal string such as "1234.56".
func Parse(value string, cur Currency) (Money, error) {
	trimmed := strings.TrimSpace(value)
	switch strings.ToLower(trimmed) {
	case "nan", "inf", "+inf", "-inf", "infinity", "+infinity", "-infinity":
		return Money{}, fmt.Errorf("%w: %q is not finite", ErrInvalidAmount, value)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return New(d, cur)
}

// MustParse is Parse for literals in tests and fixtures. It panics on error.
func MustParse(value string) Money {
	m, err := Parse(value, THB)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal wraps a decimal without precision checks. Used for values read back from storage.
func FromDecimal(d decimal.Decimal) Money { return Money{amount: d} }

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal { return m.amount }

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{amount: m.amount.Add(o.amount)} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{amount: m.amount.Sub(o.amount)} }

// Mul multiplies by a scalar such as a quantity.
func (m Money) Mul(scalar decimal.Decimal) Money { return Money{amount: m.amount.Mul(scalar)} }

// Div divides by a non-zero scalar keeping 16 decimal places.
func (m Money) Div(scalar decimal.Decimal) Money {
	return Money{amount: m.amount.DivRound(scalar, divisionPlaces)}
}

// PercentageOf returns percent/100 of m, exactly.
func (m Money) PercentageOf(percent decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(percent).Shift(-2)}
}

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// IsZero reports whether m == 0.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// ClampZero floors negative amounts at zero.
func (m Money) ClampZero() Money {
	if m.amount.IsNegative() {
		return Money{}
	}
	return m
}

// Equal compares values ignoring scale, so 7 equals 7.00.
func (m Money) Equal(o Money) bool { return m.amount.Equal(o.amount) }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int { return m.amount.Cmp(o.amount) }

// Round rounds half away from zero to the given number of places.
func (m Money) Round(places int32) Money { return Money{amount: m.amount.Round(places)} }

// RoundToCents rounds to two decimal places.
func (m Money) RoundToCents() Money { return m.Round(2) }

// String keeps the scale of the value, so a rounded amount prints as "100.00".
func (m Money) String() string {
	places := -m.amount.Exponent()
	if places < 0 {
		places = 0
	}
	return m.amount.StringFixed(places)
}

// MarshalJSON encodes the amount as a quoted decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts either a quoted string or a bare JSON number. It does not know the
// currency, so precision is checked by New at the request boundary and again by the
// pricing engine.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	m.amount = d
	return nil
}

// Finalize rounds m to the currency precision. It fails when the value is out of range.
func (c Currency) Finalize(m Money) (Money, error) {
	if m.amount.Abs().GreaterThanOrEqual(maxValue) {
		return Money{}, fmt.Errorf("%w: %s exceeds %d integer digits", ErrInvalidAmount, m.amount.String(), MaxIntegerDigits)
	}
	return m.Round(c.Precision), nil
}
