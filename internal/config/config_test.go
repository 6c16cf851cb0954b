package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		StripeSecretKey:   "sk_test_123",
		BaseCurrency:      "USD",
		LookbackMonths:    12,
		ECBRatesURL:       defaultECBRatesURL,
		FXRefreshInterval: 12 * time.Hour,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	missingKey := validConfig()
	missingKey.StripeSecretKey = ""
	assert.Error(t, missingKey.Validate())

	badCurrency := validConfig()
	badCurrency.BaseCurrency = "usd1"
	assert.Error(t, badCurrency.Validate())

	badLookback := validConfig()
	badLookback.LookbackMonths = 0
	assert.Error(t, badLookback.Validate())

	badInterval := validConfig()
	badInterval.FXRefreshInterval = 0
	assert.Error(t, badInterval.Validate())
}

func TestValidateBaseCurrency(t *testing.T) {
	assert.NoError(t, ValidateBaseCurrency("USD"))
	assert.NoError(t, ValidateBaseCurrency("JPY"))
	assert.Error(t, ValidateBaseCurrency("us"))
	assert.Error(t, ValidateBaseCurrency("usd"))
	assert.Error(t, ValidateBaseCurrency("USDT"))
	assert.Error(t, ValidateBaseCurrency(""))
}

func TestValidateLookbackMonths(t *testing.T) {
	assert.NoError(t, ValidateLookbackMonths(1))
	assert.NoError(t, ValidateLookbackMonths(60))
	assert.Error(t, ValidateLookbackMonths(0))
	assert.Error(t, ValidateLookbackMonths(61))
}

func TestReportingHolderSeedsFromAppConfig(t *testing.T) {
	holder, err := NewReportingHolder(Config{BaseCurrency: "EUR", LookbackMonths: 6})
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, "EUR", got.BaseCurrency)
	assert.Equal(t, 6, got.LookbackMonths)
}

func TestReportingHolderRejectsInvalidSeed(t *testing.T) {
	_, err := NewReportingHolder(Config{BaseCurrency: "nope", LookbackMonths: 6})
	require.Error(t, err)
}
