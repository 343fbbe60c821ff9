package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	kobo, err := ParseAmount("150.75")
	require.NoError(t, err)
	assert.Equal(t, int64(15075), kobo)
}

func TestParseAmount_WholeUnits(t *testing.T) {
	kobo, err := ParseAmount("500")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), kobo)
}

func TestParseAmount_RejectsZeroAndNegative(t *testing.T) {
	_, err := ParseAmount("0")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("-10.00")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseAmount_RejectsSubKoboPrecision(t *testing.T) {
	_, err := ParseAmount("10.005")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseAmount_RejectsGarbage(t *testing.T) {
	_, err := ParseAmount("ten naira")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "150.75", FormatAmount(15075))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "500.00", FormatAmount(50000))
}

func TestKoboDecimalRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("12345.67")
	kobo := DecimalToKobo(d)
	assert.Equal(t, int64(1234567), kobo)
	assert.True(t, KoboToDecimal(kobo).Equal(d))
}
