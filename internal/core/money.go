// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals recorded to the cent. Sums and differences stay
// exact; display and export format them with two digits.
package core

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the precision of recorded amounts, display and export.
const DisplayPlaces = 2

type Money struct {
	d decimal.Decimal
}

var Zero = Money{}

// MoneyFromInt returns a whole amount.
func MoneyFromInt(n int64) Money { return Money{d: decimal.NewFromInt(n)} }

// MustMoney parses s and panics on error. Intended for tests and constants.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney converts a decimal string to an exact Money value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Sign
// prefixes, zero and malformed input are rejected with ErrInvalidAmount;
// fractions of a cent with ErrAmountPrecision. Input is never rounded.
//
// Examples:
//
//	ParseMoney("12,34")  -> 12.34
//	ParseMoney("12,345") -> ErrAmountPrecision
//	ParseMoney("-1")     -> ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",")+strings.Count(s, ".") > 1 {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	m := Money{d: d}
	if err := m.Validate(); err != nil {
		return Zero, err
	}
	return m, nil
}

// Validate rejects zero, negative and sub-cent amounts.
func (m Money) Validate() error {
	if !m.d.IsPositive() {
		return ErrInvalidAmount
	}
	if !m.d.Equal(m.d.Truncate(DisplayPlaces)) {
		return ErrAmountPrecision
	}
	return nil
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// Times multiplies by a whole count, e.g. the number of units.
func (m Money) Times(n int) Money { return Money{d: m.d.Mul(decimal.NewFromInt(int64(n)))} }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) IsZero() bool { return m.d.IsZero() }

func (m Money) IsNegative() bool { return m.d.IsNegative() }

// String returns the exact value without trailing rounding.
func (m Money) String() string { return m.d.String() }

// Rounded returns the value rounded half-up to DisplayPlaces.
func (m Money) Rounded() decimal.Decimal { return m.d.Round(DisplayPlaces) }

// Display formats the amount with two decimals.
func (m Money) Display() string { return m.d.StringFixed(DisplayPlaces) }

// Float64 is the rounded amount as a spreadsheet-friendly number.
func (m Money) Float64() float64 { return m.Rounded().InexactFloat64() }

// Sum adds up amounts exactly; an empty input yields zero.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.d.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.d.UnmarshalJSON(b)
}

// Scan reads TEXT (SQLite) and NUMERIC (Postgres) columns.
func (m *Money) Scan(src any) error {
	if err := m.d.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	return nil
}

// Value stores the exact decimal as text.
func (m Money) Value() (driver.Value, error) {
	return m.d.String(), nil
}
