// Package core holds the record and summary types shared by the
// reconciler, the record sources and the report layer.
//
// This file contains amount parsing and formatting helpers.
package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into an exact amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// surrounding whitespace. Anything else is reported as ErrMalformedAmount
// so that a bad row is never silently skipped.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("1.2.3") -> 0, ErrMalformedAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrMalformedAmount)
	}
	s = strings.ReplaceAll(s, ",", ".")
	body := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if body == "" || strings.Count(body, ".") > 1 {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	for _, r := range body {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	return d, nil
}

// MustAmount parses s and panics on error. Intended for tests and literals.
func MustAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FormatAmount renders an amount with two decimals, e.g. "1350.00".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
