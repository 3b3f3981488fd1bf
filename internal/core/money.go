// Package core provides money parsing and handling utilities.
//
// This file contains the parsing of movement amounts into exact decimals.
// Amounts never go through float64, so balances compare exactly.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountScale is the number of fractional digits an amount may carry.
const MaxAmountScale = 2

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must be a non-negative number")
	ErrAmountScale    = errors.New("amount must have at most 2 decimal places")
)

// maxAmountExponent bounds the decimal exponent of a parsed amount so
// inputs like "1e2000000000" never expand into huge strings.
const maxAmountExponent = 32

// ParseAmount converts a decimal string to an exact amount.
//
// It accepts dot (12.34) and comma (12,34) decimal separators, an optional
// leading sign and exponent notation. Thousands separators and amounts that
// carry a non-zero digit past MaxAmountScale are rejected. The sign is kept
// so the caller decides whether negative values are acceptable.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("2e3")    -> 2000, nil
//	ParseAmount("10.500") -> 10.5, nil
//	ParseAmount("1.005")  -> 0, ErrAmountScale
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Count(s, ",") > 1 || (strings.Contains(s, ",") && strings.Contains(s, ".")) {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := checkScale(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks that an already parsed amount can be stored on a movement.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativeAmount
	}
	return checkScale(d)
}

// checkScale accepts trailing zeros past MaxAmountScale (10.500) but not
// significant digits (10.505).
func checkScale(d decimal.Decimal) error {
	if d.Exponent() < -MaxAmountScale && !d.Equal(d.Truncate(MaxAmountScale)) {
		return ErrAmountScale
	}
	return nil
}

// FormatAmount renders an amount with two fixed decimals, e.g. "2000.00".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MaxAmountScale)
}
