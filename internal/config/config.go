package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/cedarpos/checkout-api/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	PostingBaseURL     string
	PostingAPIKey      string
	PostingMaxAttempts int
	CORSAllowedOrigins []string

	// Session defaults for the POS checkout core.
	CurrencyPrimary    pricing.Currency
	SettlementCurrency pricing.Currency
	VATDisplayMode     pricing.VATDisplayMode
	OriginCompany      pricing.Company
	VATRatePct         float64

	CatalogCacheTTL  time.Duration
	SubmitRateWindow time.Duration
	SubmitRateMax    int
	MaxRequestBody   int64
	ShutdownTimeout  time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		PostingBaseURL:     k.String("POSTING_BASE_URL"),
		PostingAPIKey:      k.String("POSTING_API_KEY"),
		PostingMaxAttempts: parseInt(k.String("POSTING_MAX_ATTEMPTS"), 3),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyPrimary:    parseCurrency(k.String("CURRENCY_PRIMARY")),
		SettlementCurrency: parseCurrency(k.String("SETTLEMENT_CURRENCY")),
		VATDisplayMode:     pricing.NormalizeDisplayMode(k.String("VAT_DISPLAY_MODE")),
		OriginCompany:      parseCompany(k.String("ORIGIN_COMPANY")),
		VATRatePct:         parseFloat(k.String("VAT_RATE_PCT"), 11),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		SubmitRateWindow:   parseDuration(k.String("SUBMIT_RATE_WINDOW"), "1m"),
		SubmitRateMax:      parseInt(k.String("SUBMIT_RATE_MAX"), 30),
		MaxRequestBody:     int64(parseInt(k.String("MAX_REQUEST_BODY"), 1<<20)),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "10s"),
	}

	if cfg.PostingBaseURL == "" {
		return nil, errors.New("POSTING_BASE_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

// parseCurrency fails safe to USD: the settlement currency must never default
// to LBP on a missing or unrecognized value.
func parseCurrency(value string) pricing.Currency {
	if strings.EqualFold(strings.TrimSpace(value), string(pricing.CurrencyLBP)) {
		return pricing.CurrencyLBP
	}
	return pricing.CurrencyUSD
}

func parseCompany(value string) pricing.Company {
	if strings.EqualFold(strings.TrimSpace(value), string(pricing.CompanyUnofficial)) {
		return pricing.CompanyUnofficial
	}
	return pricing.CompanyOfficial
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
