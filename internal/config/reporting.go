package config

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReportingConfig holds reporting defaults that operators may tune without a
// redeploy. Request parameters override these per call.
type ReportingConfig struct {
	BaseCurrency   string `mapstructure:"baseCurrency"`
	LookbackMonths int    `mapstructure:"lookbackMonths"`
}

// ReportingHolder serves the current reporting defaults and hot-reloads them
// when reporting.yml changes on disk.
type ReportingHolder struct {
	current atomic.Value // holds ReportingConfig
}

// NewReportingHolder loads reporting.yml if present, seeding defaults from the
// environment configuration otherwise.
func NewReportingHolder(appCfg Config) (*ReportingHolder, error) {
	v := viper.New()

	v.SetConfigName("reporting")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/revport")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REVPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("reporting.baseCurrency", appCfg.BaseCurrency)
	v.SetDefault("reporting.lookbackMonths", appCfg.LookbackMonths)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg ReportingConfig
	if err := v.UnmarshalKey("reporting", &cfg); err != nil {
		return nil, err
	}
	if err := validateReportingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ReportingHolder{}
	holder.current.Store(normalizeReportingConfig(cfg))

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated ReportingConfig
			if err := v.UnmarshalKey("reporting", &updated); err != nil {
				log.Printf("[reporting-config] reload failed: %v", err)
				return
			}
			if err := validateReportingConfig(updated); err != nil {
				log.Printf("[reporting-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(normalizeReportingConfig(updated))
			log.Printf("[reporting-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

// Get returns the currently active reporting defaults.
func (h *ReportingHolder) Get() ReportingConfig {
	return h.current.Load().(ReportingConfig)
}

func normalizeReportingConfig(cfg ReportingConfig) ReportingConfig {
	cfg.BaseCurrency = strings.ToUpper(strings.TrimSpace(cfg.BaseCurrency))
	return cfg
}

func validateReportingConfig(cfg ReportingConfig) error {
	if err := ValidateBaseCurrency(strings.ToUpper(strings.TrimSpace(cfg.BaseCurrency))); err != nil {
		return err
	}
	return ValidateLookbackMonths(cfg.LookbackMonths)
}
