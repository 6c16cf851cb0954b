// Package money implements exact-decimal money arithmetic helpers and ISO 4217
// minor-unit handling. Amounts stay decimal end to end; callers convert to a
// display float only at the JSON boundary.
package money

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// fractionDigitsCache memoizes per-currency fraction digits for the process
// lifetime. Currency metadata is immutable, so entries are never evicted.
var fractionDigitsCache sync.Map // currency code -> int32

// Normalize upper-cases a currency code for use as a map key.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FractionDigits resolves the number of decimal digits in a currency's minor
// unit (USD=2, JPY=0) from the standard ISO 4217 metadata tables.
func FractionDigits(code string) (int32, error) {
	normalized := Normalize(code)
	if cached, ok := fractionDigitsCache.Load(normalized); ok {
		return cached.(int32), nil
	}

	unit, err := currency.ParseISO(normalized)
	if err != nil {
		return 0, fmt.Errorf("unknown currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)

	digits := int32(scale)
	fractionDigitsCache.Store(normalized, digits)
	return digits, nil
}

// MinorToMajor converts a minor-unit amount (e.g. cents) into the currency's
// major unit by shifting the decimal point, with no precision loss.
func MinorToMajor(minor decimal.Decimal, code string) (decimal.Decimal, error) {
	digits, err := FractionDigits(code)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return minor.Shift(-digits), nil
}

// MajorToMinor is the inverse of MinorToMajor.
func MajorToMinor(major decimal.Decimal, code string) (decimal.Decimal, error) {
	digits, err := FractionDigits(code)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return major.Shift(digits), nil
}

// Display rounds an exact amount to a fixed 6 decimal places for the external
// boundary. Six digits keep enough precision for charting without drifting
// into scientific notation.
func Display(d decimal.Decimal) float64 {
	return d.Round(6).InexactFloat64()
}
