package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFractionDigits(t *testing.T) {
	tests := []struct {
		code string
		want int32
	}{
		{"USD", 2},
		{"usd", 2},
		{"EUR", 2},
		{"JPY", 0},
		{"KWD", 3},
	}

	for _, tt := range tests {
		got, err := FractionDigits(tt.code)
		require.NoError(t, err, tt.code)
		assert.Equal(t, tt.want, got, tt.code)
	}
}

func TestFractionDigitsUnknownCurrency(t *testing.T) {
	_, err := FractionDigits("ZZZ")
	require.Error(t, err)

	_, err = FractionDigits("")
	require.Error(t, err)
}

func TestMinorToMajor(t *testing.T) {
	tests := []struct {
		minor string
		code  string
		want  string
	}{
		{"1200", "USD", "12"},
		{"1", "USD", "0.01"},
		{"500", "JPY", "500"},
		{"12345", "KWD", "12.345"},
		{"-250", "EUR", "-2.5"},
	}

	for _, tt := range tests {
		minor := decimal.RequireFromString(tt.minor)
		got, err := MinorToMajor(minor, tt.code)
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"%s %s: got %s want %s", tt.minor, tt.code, got, tt.want)
	}
}

func TestMinorMajorRoundTrip(t *testing.T) {
	for _, code := range []string{"USD", "JPY", "KWD"} {
		for _, raw := range []int64{0, 1, 99, 1200, -450, 999999999} {
			minor := decimal.NewFromInt(raw)
			major, err := MinorToMajor(minor, code)
			require.NoError(t, err)
			back, err := MajorToMinor(major, code)
			require.NoError(t, err)
			assert.True(t, back.Equal(minor), "%d %s round trip: got %s", raw, code, back)
		}
	}
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, 12.0, Display(decimal.RequireFromString("12")))
	assert.Equal(t, 19.9, Display(decimal.RequireFromString("19.90")))
	assert.Equal(t, 0.123457, Display(decimal.RequireFromString("0.1234567")))
	assert.Equal(t, 0.000001, Display(decimal.RequireFromString("0.0000014")))
}
