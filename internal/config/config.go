package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

const (
	// LookbackMonthsMin and LookbackMonthsMax bound the recognized-MRR window.
	LookbackMonthsMin = 1
	LookbackMonthsMax = 60

	defaultECBRatesURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-hist.xml"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	HTTPAddr    string

	StripeSecretKey string

	BaseCurrency   string
	LookbackMonths int

	ECBRatesURL       string
	FXRefreshInterval time.Duration
}

// Load loads configuration from environment variables and an optional .env file.
// It does not validate; call Validate before using the result.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:           getenv("APP_SERVICE", "revport"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		StripeSecretKey:   strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		BaseCurrency:      strings.ToUpper(strings.TrimSpace(getenv("BASE_CURRENCY", "USD"))),
		LookbackMonths:    getenvInt("LOOKBACK_MONTHS", 12),
		ECBRatesURL:       getenv("ECB_RATES_URL", defaultECBRatesURL),
		FXRefreshInterval: getenvDuration("FX_REFRESH_INTERVAL", 12*time.Hour),
	}
}

// Validate reports the first fatal configuration error. A report must never be
// computed against a config that fails validation.
func (c Config) Validate() error {
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if err := ValidateBaseCurrency(c.BaseCurrency); err != nil {
		return err
	}
	if err := ValidateLookbackMonths(c.LookbackMonths); err != nil {
		return err
	}
	if c.ECBRatesURL == "" {
		return fmt.Errorf("ECB_RATES_URL must not be empty")
	}
	if c.FXRefreshInterval <= 0 {
		return fmt.Errorf("FX_REFRESH_INTERVAL must be positive (got %s)", c.FXRefreshInterval)
	}
	return nil
}

// ValidateBaseCurrency checks that code looks like an ISO 4217 currency code.
func ValidateBaseCurrency(code string) error {
	if len(code) != 3 {
		return fmt.Errorf("base currency must be a 3-letter ISO 4217 code (got %q)", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("base currency must be a 3-letter ISO 4217 code (got %q)", code)
		}
	}
	return nil
}

// ValidateLookbackMonths checks the recognized-MRR window bounds.
func ValidateLookbackMonths(n int) error {
	if n < LookbackMonthsMin || n > LookbackMonthsMax {
		return fmt.Errorf("lookback months must be between %d and %d (got %d)", LookbackMonthsMin, LookbackMonthsMax, n)
	}
	return nil
}

func provide() (Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Module provides validated application configuration.
var Module = fx.Module("config",
	fx.Provide(provide),
	fx.Provide(NewReportingHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
