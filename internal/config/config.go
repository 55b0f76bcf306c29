package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	UpstreamBaseURL    string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	CartTTL         time.Duration
	CatalogCacheTTL time.Duration
	IdempotencyTTL  time.Duration

	UpstreamTimeout     time.Duration
	RetryMaxAttempts    int
	RetryBaseBackoff    time.Duration
	RetryJitterPercent  float64
	CircuitMinRequests  int
	CircuitFailureRate  float64
	CircuitOpenFor      time.Duration
	CatalogDefaultLimit int
	CatalogMaxLimit     int

	ChatAPIKey   string
	ChatBaseURL  string
	ChatModel    string
	ChatRPM      int
	LoginRPM     int
	CurrencyCode string

	ReceiptWebhookURL    string
	ReceiptWebhookSecret string
	ReceiptMaxRetry      int
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
		UpstreamBaseURL:    strings.TrimRight(strings.TrimSpace(k.String("UPSTREAM_BASE_URL")), "/"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CartTTL:         parseDuration(k.String("CART_TTL"), "4h"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		UpstreamTimeout:     parseDuration(k.String("UPSTREAM_TIMEOUT"), "10s"),
		RetryMaxAttempts:    intOrDefault(k.Int("RETRY_MAX_ATTEMPTS"), 3),
		RetryBaseBackoff:    parseDuration(k.String("RETRY_BASE_BACKOFF"), "200ms"),
		RetryJitterPercent:  floatOrDefault(k.Float64("RETRY_JITTER_PERCENT"), 0.2),
		CircuitMinRequests:  intOrDefault(k.Int("CIRCUIT_MIN_REQUESTS"), 10),
		CircuitFailureRate:  floatOrDefault(k.Float64("CIRCUIT_FAILURE_RATE"), 0.5),
		CircuitOpenFor:      parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),
		CatalogDefaultLimit: intOrDefault(k.Int("CATALOG_DEFAULT_LIMIT"), 50),
		CatalogMaxLimit:     intOrDefault(k.Int("CATALOG_MAX_LIMIT"), 200),

		ChatAPIKey:   k.String("CHAT_API_KEY"),
		ChatBaseURL:  valueOrDefault(k.String("CHAT_BASE_URL"), "https://api.openai.com/v1"),
		ChatModel:    valueOrDefault(k.String("CHAT_MODEL"), "gpt-4o-mini"),
		ChatRPM:      intOrDefault(k.Int("CHAT_RATE_PER_MINUTE"), 20),
		LoginRPM:     intOrDefault(k.Int("LOGIN_RATE_PER_MINUTE"), 10),
		CurrencyCode: valueOrDefault(k.String("CURRENCY_CODE"), "BGN"),

		ReceiptWebhookURL:    k.String("RECEIPT_WEBHOOK_URL"),
		ReceiptWebhookSecret: k.String("RECEIPT_WEBHOOK_SECRET"),
		ReceiptMaxRetry:      intOrDefault(k.Int("RECEIPT_MAX_RETRY"), 10),
	}

	if cfg.UpstreamBaseURL == "" {
		return nil, errors.New("UPSTREAM_BASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
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

func intOrDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func floatOrDefault(value, fallback float64) float64 {
	if value > 0 {
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
