package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are stored as int64 kobo (10^-2 naira) so balance arithmetic is
// exact. shopspring/decimal is used only at the boundary where callers
// supply and read human-denominated values.

const koboPerUnit = 100

// KoboToDecimal converts kobo to a major-unit decimal.
func KoboToDecimal(kobo int64) decimal.Decimal {
	return decimal.NewFromInt(kobo).Div(decimal.NewFromInt(koboPerUnit))
}

// DecimalToKobo converts a major-unit decimal to kobo, truncating any
// sub-kobo fraction.
func DecimalToKobo(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(koboPerUnit)).IntPart()
}

// ParseAmount parses a caller-supplied decimal string into kobo. Values that
// are not positive or carry sub-kobo precision are rejected.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	scaled := d.Mul(decimal.NewFromInt(koboPerUnit))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %q has sub-kobo precision", ErrInvalidAmount, s)
	}
	return scaled.IntPart(), nil
}

// FormatAmount renders kobo as a fixed two-decimal string.
func FormatAmount(kobo int64) string {
	return KoboToDecimal(kobo).StringFixed(2)
}
