// Package money provides the Money value object used for every monetary
// amount in the ledger. Amounts are exact decimals carried alongside their
// currency; arithmetic between mismatched currencies is rejected.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/corebank/ledger/pkg/currency"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidCurrencyCode is returned when a currency code is not a valid ISO 4217 code.
	ErrInvalidCurrencyCode = errors.New("invalid currency code")
	// ErrUnsupportedCurrency is returned when a currency code is well-formed but not registered.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrCurrencyMismatch is returned when an operation combines two different currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrInvalidAmount is returned when an amount string cannot be parsed as a decimal.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrTooManyDecimals is returned when an amount has more fractional digits than the currency allows.
	ErrTooManyDecimals = errors.New("amount exceeds currency decimal places")
)

// Money represents a monetary value in a specific currency.
// Invariants:
//   - Amount never carries more fractional digits than the currency allows.
//   - Currency code is always registered.
//   - All arithmetic and comparisons require matching currencies.
type Money struct {
	amount   decimal.Decimal
	currency currency.Code
}

// New creates a Money from an exact decimal amount and currency code.
func New(amount decimal.Decimal, code currency.Code) (Money, error) {
	if code == "" {
		code = currency.DefaultCurrency
	}
	if !currency.IsValidFormat(string(code)) {
		return Money{}, ErrInvalidCurrencyCode
	}
	meta, err := currency.Get(code)
	if err != nil {
		return Money{}, ErrUnsupportedCurrency
	}
	if -amount.Exponent() > meta.Decimals {
		// Trailing zeros are harmless; "10.50" in a 2-decimal currency is fine.
		if !amount.Equal(amount.Truncate(meta.Decimals)) {
			return Money{}, fmt.Errorf("%w: %s has more than %d decimal places",
				ErrTooManyDecimals, amount, meta.Decimals)
		}
	}
	return Money{amount: amount, currency: code}, nil
}

// NewFromString parses an exact decimal string (e.g. "150.00") into Money.
func NewFromString(amount string, code currency.Code) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return New(d, code)
}

// Zero returns a zero-valued Money in the given currency.
func Zero(code currency.Code) (Money, error) {
	return New(decimal.Zero, code)
}

// MustParse parses an amount string or panics. Test and fixture use only.
func MustParse(amount string, code currency.Code) Money {
	m, err := NewFromString(amount, code)
	if err != nil {
		panic(err)
	}
	return m
}

// Amount returns the underlying decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency of the Money object.
func (m Money) Currency() currency.Code { return m.currency }

// IsSameCurrency reports whether both values share a currency.
func (m Money) IsSameCurrency(other Money) bool { return m.currency == other.currency }

// Add returns m + other. Currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if !m.IsSameCurrency(other) {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns m − other. Currencies must match.
func (m Money) Subtract(other Money) (Money, error) {
	if !m.IsSameCurrency(other) {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Negate returns the additive inverse of m.
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// Equals reports whether both values have the same currency and amount.
func (m Money) Equals(other Money) bool {
	return m.IsSameCurrency(other) && m.amount.Equal(other.amount)
}

// GreaterThan reports whether m > other. Currencies must match.
func (m Money) GreaterThan(other Money) (bool, error) {
	if !m.IsSameCurrency(other) {
		return false, ErrCurrencyMismatch
	}
	return m.amount.GreaterThan(other.amount), nil
}

// GreaterThanOrEqual reports whether m ≥ other. Currencies must match.
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if !m.IsSameCurrency(other) {
		return false, ErrCurrencyMismatch
	}
	return m.amount.GreaterThanOrEqual(other.amount), nil
}

// LessThan reports whether m < other. Currencies must match.
func (m Money) LessThan(other Money) (bool, error) {
	if !m.IsSameCurrency(other) {
		return false, ErrCurrencyMismatch
	}
	return m.amount.LessThan(other.amount), nil
}

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// StringFixed renders the amount with exactly the currency's decimal places,
// e.g. "150.00" for USD. This is the boundary serialization format.
func (m Money) StringFixed() string {
	meta, err := currency.Get(m.currency)
	if err != nil {
		return m.amount.String()
	}
	return m.amount.StringFixed(meta.Decimals)
}

// String returns "amount CODE", e.g. "150.00 USD".
func (m Money) String() string {
	return m.StringFixed() + " " + string(m.currency)
}
