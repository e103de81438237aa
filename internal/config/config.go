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
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-quotation/internal/money"
	"github.com/noah-isme/toko-quotation/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	Currency   money.Currency
	DefaultTax pricing.TaxConfig

	QuotationNumberTemplate string
	QuotationValidity       time.Duration
	QuotationCacheTTL       time.Duration
	QuotationPageSize       int

	IdempotencyTTL    time.Duration
	RateLimit         string
	BodyLimitBytes    int64
	WorkerConcurrency int
	TaskQueue         string
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
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Currency: money.Currency{
			Code:      strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), money.THB.Code)),
			Symbol:    valueOrDefault(k.String("CURRENCY_SYMBOL"), money.THB.Symbol),
			Precision: int32(parseInt(k.String("CURRENCY_PRECISION"), int(money.THB.Precision))),
		},
		QuotationNumberTemplate: valueOrDefault(k.String("QUOTATION_NUMBER_TEMPLATE"), "QT-{YYYY}{MM}{DD}-{SEQ6}"),
		QuotationValidity:       parseDuration(k.String("QUOTATION_VALIDITY"), "720h"),
		QuotationCacheTTL:       parseDuration(k.String("QUOTATION_CACHE_TTL"), "10m"),
		QuotationPageSize:       parseInt(k.String("QUOTATION_PAGE_SIZE"), 20),
		IdempotencyTTL:          parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimit:               valueOrDefault(k.String("RATE_LIMIT"), "300-M"),
		BodyLimitBytes:          int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		WorkerConcurrency:       parseInt(k.String("WORKER_CONCURRENCY"), 5),
		TaskQueue:               valueOrDefault(k.String("TASK_QUEUE"), "quotations"),
	}

	tax, err := parseTax(k.String("DEFAULT_TAX_RATE"), k.String("DEFAULT_TAX_MODE"))
	if err != nil {
		return nil, err
	}
	cfg.DefaultTax = tax

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.Currency.Precision < 0 || cfg.Currency.Precision > 6 {
		return nil, fmt.Errorf("CURRENCY_PRECISION must be between 0 and 6, got %d", cfg.Currency.Precision)
	}
	if !strings.Contains(cfg.QuotationNumberTemplate, "{SEQ") {
		return nil, errors.New("QUOTATION_NUMBER_TEMPLATE must contain a {SEQ} token")
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

func parseTax(rate, mode string) (pricing.TaxConfig, error) {
	r, err := decimal.NewFromString(valueOrDefault(rate, "7"))
	if err != nil {
		return pricing.TaxConfig{}, fmt.Errorf("DEFAULT_TAX_RATE: %w", err)
	}
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(100)) {
		return pricing.TaxConfig{}, fmt.Errorf("DEFAULT_TAX_RATE must be between 0 and 100, got %s", r)
	}
	m := pricing.ParseTaxMode(mode)
	if m != pricing.TaxExclusive && m != pricing.TaxInclusive {
		return pricing.TaxConfig{}, fmt.Errorf("DEFAULT_TAX_MODE must be exclusive or inclusive, got %q", mode)
	}
	return pricing.TaxConfig{Rate: r, Mode: m}, nil
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
		return strings.TrimSpace(value)
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
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
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
