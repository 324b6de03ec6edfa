// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	PostgresURL       string  `mapstructure:"postgres_url"`
	NATSURL           string  `mapstructure:"nats_url"`
	SellSubject       string  `mapstructure:"sell_subject"`
	BirdeyeAPIKey     string  `mapstructure:"birdeye_api_key"`
	BirdeyeBaseURL    string  `mapstructure:"birdeye_base_url"`
	DexscreenerURL    string  `mapstructure:"dexscreener_base_url"`
	BackendURL        string  `mapstructure:"backend_url"`
	BackendAPIKey     string  `mapstructure:"backend_api_key"`
	ProcessBackendURL string  `mapstructure:"process_backend_url"`
	WalletAddress     string  `mapstructure:"wallet_address"`
	ScanInterval      int     `mapstructure:"scan_interval"`
	Retries           int     `mapstructure:"retries"`
	DebugLogging      bool    `mapstructure:"debug_logging"`
	WeightRugPull     float64 `mapstructure:"weight_rug_pull"`
	WeightScam        float64 `mapstructure:"weight_scam"`
	WeightRapidDump   float64 `mapstructure:"weight_rapid_dump"`
	WeightSuspicious  float64 `mapstructure:"weight_suspicious_volume"`
	ConfidenceDivisor float64 `mapstructure:"confidence_divisor"`
}

const (
	DefaultSellSubject       = "simulation.sell"
	DefaultBirdeyeBaseURL    = "https://public-api.birdeye.so"
	DefaultDexscreenerURL    = "https://api.dexscreener.com/latest/dex"
	DefaultScanInterval      = 60
	DefaultRetries           = 3
	DefaultWeightRugPull     = 10
	DefaultWeightScam        = 10
	DefaultWeightRapidDump   = 5
	DefaultWeightSuspicious  = 5
	DefaultConfidenceDivisor = 1_000_000
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"sell_subject":             DefaultSellSubject,
		"birdeye_base_url":         DefaultBirdeyeBaseURL,
		"dexscreener_base_url":     DefaultDexscreenerURL,
		"scan_interval":            DefaultScanInterval,
		"retries":                  DefaultRetries,
		"weight_rug_pull":          DefaultWeightRugPull,
		"weight_scam":              DefaultWeightScam,
		"weight_rapid_dump":        DefaultWeightRapidDump,
		"weight_suspicious_volume": DefaultWeightSuspicious,
		"confidence_divisor":       DefaultConfidenceDivisor,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.PostgresURL == "" {
		return errors.New("missing postgres_url in configuration")
	}
	if cfg.NATSURL == "" {
		return errors.New("missing nats_url in configuration")
	}
	if cfg.SellSubject == "" {
		return errors.New("sell_subject is empty")
	}
	if err := validateURLWithCache(cfg.BirdeyeBaseURL, "http"); err != nil {
		return errors.New("invalid birdeye_base_url")
	}
	if err := validateURLWithCache(cfg.DexscreenerURL, "http"); err != nil {
		return errors.New("invalid dexscreener_base_url")
	}
	if cfg.BackendURL != "" {
		if err := validateURLWithCache(cfg.BackendURL, "http"); err != nil {
			return errors.New("invalid backend_url")
		}
	}
	if cfg.ProcessBackendURL != "" {
		if err := validateURLWithCache(cfg.ProcessBackendURL, "http"); err != nil {
			return errors.New("invalid process_backend_url")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.ScanInterval <= 0 {
		return errors.New("invalid scan_interval")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.WeightRugPull < 0 || cfg.WeightScam < 0 || cfg.WeightRapidDump < 0 || cfg.WeightSuspicious < 0 {
		return errors.New("risk weights must be non-negative")
	}
	if cfg.ConfidenceDivisor <= 0 {
		return errors.New("invalid confidence_divisor")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("TRUST_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if key := v.GetString("BIRDEYE_API_KEY"); key != "" {
		cfg.BirdeyeAPIKey = key
	}
	if dsn := v.GetString("POSTGRES_URL"); dsn != "" {
		cfg.PostgresURL = dsn
	}
	if natsURL := v.GetString("NATS_URL"); natsURL != "" {
		cfg.NATSURL = natsURL
	}
	if key := v.GetString("BACKEND_API_KEY"); key != "" {
		cfg.BackendAPIKey = key
	}
	return nil
}
