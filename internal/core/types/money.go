// Package types provides common value types and utilities.
package types

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnits represents a monetary value in minor currency units (rials, cents).
// Storage: int64 - sufficient for ±922 trillion minor units.
// Ledger arithmetic is exact: there is no rounding tolerance anywhere in the core.
type MinorUnits int64

// ParseMinorUnits parses a decimal string expressed in major units.
// scale is the number of minor digits per major unit (0 for rials, 2 for cents).
// Values with more fractional digits than scale are rejected, never rounded.
func ParseMinorUnits(s string, scale int32) (MinorUnits, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount: %w", err)
	}
	return FromDecimal(d, scale)
}

// FromDecimal converts a major-unit decimal into minor units.
func FromDecimal(d decimal.Decimal, scale int32) (MinorUnits, error) {
	shifted := d.Shift(scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d fractional digits", d.String(), scale)
	}
	if shifted.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || shifted.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return MinorUnits(shifted.IntPart()), nil
}

// Decimal returns the value in major units.
func (m MinorUnits) Decimal(scale int32) decimal.Decimal {
	return decimal.New(int64(m), -scale)
}

// Format renders the value in major units with exactly scale fractional digits.
func (m MinorUnits) Format(scale int32) string {
	return m.Decimal(scale).StringFixed(scale)
}

func (m MinorUnits) IsZero() bool     { return m == 0 }
func (m MinorUnits) IsPositive() bool { return m > 0 }
func (m MinorUnits) IsNegative() bool { return m < 0 }

// Add returns m+o and false when the sum overflows int64.
func (m MinorUnits) Add(o MinorUnits) (MinorUnits, bool) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) {
		return 0, false
	}
	return sum, true
}
