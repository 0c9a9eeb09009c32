// Package core holds the advisory domain model: exact monetary amounts,
// cash-flow events, goals, wallet snapshots and the derived analytics types.
//
// Every monetary value is a shopspring decimal. Amounts are never held in a
// binary float at any stage; parsing, arithmetic and serialization all go
// through the decimal type.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a strictly positive decimal amount from a string.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Returns
// ErrInvalidAmount for malformed input, zero, or negative values.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseValue parses a decimal value that may be zero or negative, such as a
// wallet balance (debt is a legal state).
func ParseValue(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
