package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents
type Money int64

// ParseMoney parses a decimal string such as "1250.50" into cents, rejecting sub-cent precision
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: more than two decimal places", s)
	}
	return Money(cents.IntPart()), nil
}

// MoneyFromDecimal rounds d to whole cents
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Shift(2).Round(0).IntPart())
}

// Decimal returns the amount in currency units
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Shift(-2)
}

// String formats the amount with two decimals, e.g. "5000.00"
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Abs returns the absolute amount
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}
