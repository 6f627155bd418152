// Package money implements a fixed-point monetary value stored as an integer
// count of minor units plus an ISO 4217 currency code.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	// ErrCurrencyMismatch is returned when two values of different currencies
	// are compared or combined.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrUnknownCurrency is returned for codes that are not ISO 4217 currencies.
	ErrUnknownCurrency = errors.New("unknown currency")
	// ErrPrecision is returned when a decimal amount carries more fractional
	// digits than the currency's minor unit allows.
	ErrPrecision = errors.New("amount exceeds currency precision")
	// ErrOverflow is returned when a result does not fit in int64 minor units.
	ErrOverflow = errors.New("amount overflows int64 minor units")
)

var half = decimal.New(5, -1)

// Money is an amount of minor units (cents for USD) in a single currency.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New returns a Money value after validating the currency code.
func New(amount int64, code string) (Money, error) {
	unit, err := parseCurrency(code)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: unit.String()}, nil
}

// MustNew is New for literals known to be valid; it panics otherwise.
func MustNew(amount int64, code string) Money {
	m, err := New(amount, code)
	if err != nil {
		panic(err)
	}
	return m
}

// Parse converts a major-unit decimal string such as "449.00" into Money.
func Parse(value, code string) (Money, error) {
	unit, err := parseCurrency(code)
	if err != nil {
		return Money{}, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", value, err)
	}
	minor := d.Shift(scaleOf(unit))
	if !minor.Equal(minor.Truncate(0)) {
		return Money{}, fmt.Errorf("%w: %s %s", ErrPrecision, value, unit)
	}
	if minor.Abs().GreaterThan(decimal.NewFromInt(1 << 62)) {
		return Money{}, fmt.Errorf("amount %q out of range", value)
	}
	return Money{Amount: minor.IntPart(), Currency: unit.String()}, nil
}

// Scale returns the number of minor-unit digits for the currency code.
func Scale(code string) (int32, error) {
	unit, err := parseCurrency(code)
	if err != nil {
		return 0, err
	}
	return scaleOf(unit), nil
}

func parseCurrency(code string) (currency.Unit, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(normalized)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return unit, nil
}

func scaleOf(unit currency.Unit) int32 {
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Decimal returns the value in major units.
func (m Money) Decimal() decimal.Decimal {
	scale, err := Scale(m.Currency)
	if err != nil {
		scale = 2
	}
	return decimal.New(m.Amount, -scale)
}

// String formats the value at the currency's fixed scale, e.g. "404.10 USD".
func (m Money) String() string {
	scale, err := Scale(m.Currency)
	if err != nil {
		scale = 2
	}
	return m.Decimal().StringFixed(scale) + " " + m.Currency
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive reports whether the amount is above zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// SameCurrency reports whether both values share a currency.
func (m Money) SameCurrency(other Money) bool {
	return strings.EqualFold(m.Currency, other.Currency)
}

// Cmp compares two values of the same currency.
func (m Money) Cmp(other Money) (int, error) {
	if !m.SameCurrency(other) {
		return 0, mismatch(m, other)
	}
	switch {
	case m.Amount < other.Amount:
		return -1, nil
	case m.Amount > other.Amount:
		return 1, nil
	}
	return 0, nil
}

// Add returns m + other. Both must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, mismatch(m, other)
	}
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return Money{}, overflow("%d + %d", m.Amount, other.Amount)
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub returns m − other. Both must share a currency.
func (m Money) Sub(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, mismatch(m, other)
	}
	diff := m.Amount - other.Amount
	if (other.Amount > 0 && diff > m.Amount) || (other.Amount < 0 && diff < m.Amount) {
		return Money{}, overflow("%d - %d", m.Amount, other.Amount)
	}
	return Money{Amount: diff, Currency: m.Currency}, nil
}

// Mul multiplies by an integer quantity. No rounding is involved; a product
// that does not fit in int64 returns ErrOverflow.
func (m Money) Mul(qty int64) (Money, error) {
	product := m.Amount * qty
	if m.Amount != 0 && (product/m.Amount != qty || (m.Amount == -1 && qty == math.MinInt64)) {
		return Money{}, overflow("%d × %d", m.Amount, qty)
	}
	return Money{Amount: product, Currency: m.Currency}, nil
}

// PercentOff returns m × (1 − percent/100), rounded half-up to a whole minor
// unit once, after the multiplication.
func (m Money) PercentOff(percent decimal.Decimal) Money {
	factor := decimal.NewFromInt(1).Sub(percent.Div(decimal.NewFromInt(100)))
	exact := decimal.NewFromInt(m.Amount).Mul(factor)
	return Money{Amount: RoundHalfUp(exact, 0).IntPart(), Currency: m.Currency}
}

// RoundHalfUp rounds d to places fractional digits, sending ties toward
// positive infinity.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Shift(places).Add(half).Floor().Shift(-places)
}

// UnmarshalJSON normalizes and validates the currency code.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   *int64 `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Amount == nil {
		return errors.New("money: amount is required")
	}
	parsed, err := New(*raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func overflow(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOverflow, fmt.Sprintf(format, args...))
}

func mismatch(a, b Money) error {
	return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency, b.Currency)
}
