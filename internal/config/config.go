package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const minJWTSecretLen = 32

// Config holds service configuration loaded from the environment.
type Config struct {
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	JWTSecret      string
	TokenTTL       time.Duration
	MetricsEnabled bool
	MetricsToken   string
	RateLimit      int
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		AppEnv:         valueOrDefault(k.String("APP_ENV"), "development"),
		Port:           valueOrDefault(k.String("PORT"), "8080"),
		LogLevel:       valueOrDefault(k.String("LOG_LEVEL"), "info"),
		DatabaseURL:    strings.TrimSpace(k.String("DATABASE_URL")),
		JWTSecret:      k.String("JWT_SECRET"),
		TokenTTL:       parseDuration(k.String("TOKEN_TTL"), "15m"),
		MetricsEnabled: parseBool(k.String("METRICS_ENABLED"), true),
		MetricsToken:   k.String("METRICS_TOKEN"),
		RateLimit:      parseInt(k.String("CHECKOUT_RATE_LIMIT"), 120),
	}

	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.JWTSecret = "dev-secret-dev-secret-dev-secret"
	}
	if len(cfg.JWTSecret) < minJWTSecretLen {
		return nil, errors.New("JWT_SECRET is required and must be at least 32 chars")
	}
	if cfg.RateLimit <= 0 {
		return nil, errors.New("CHECKOUT_RATE_LIMIT must be positive")
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
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

func parseBool(value string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return b
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
