package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	SessionTTL          time.Duration
	SessionCookieName   string
	SessionTokenSecret  string
	SessionTokenIssuer  string
	CookieDomain        string
	CookieSecure        bool
	CookieSameSite      string
	CORSAllowedOrigins  []string
	AuthRateLimitPerMin int
	APIRateLimitPerMin  int

	RateLimitTrustedCIDRs []string
	IdempotencyTTL        time.Duration
	PostCacheTTL          time.Duration

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	CoverUploadsOn bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "bubbles_sid"),
		SessionTokenSecret:  os.Getenv("SESSION_TOKEN_SECRET"),
		SessionTokenIssuer:  getEnv("SESSION_TOKEN_ISSUER", "bubbles-cafe"),
		CookieDomain:        os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:        getEnvBool("COOKIE_SECURE", true),
		CookieSameSite:      strings.ToLower(getEnv("COOKIE_SAMESITE", "lax")),
		CORSAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthRateLimitPerMin: getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:  getEnvInt("API_RATE_LIMIT_PER_MIN", 120),

		RateLimitTrustedCIDRs: splitCSV(getEnv("RATE_LIMIT_TRUSTED_CIDRS", "")),
		MinIOEndpoint:         os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:        os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:        os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:           getEnv("MINIO_BUCKET", "bubbles-cafe-covers"),
		MinIOUseSSL:           getEnvBool("MINIO_USE_SSL", false),
		CoverUploadsOn:        getEnvBool("COVER_UPLOADS_ENABLED", false),
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("parse SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = ttl

	idemTTL, err := time.ParseDuration(getEnv("IDEMPOTENCY_TTL", "6h"))
	if err != nil {
		return nil, fmt.Errorf("parse IDEMPOTENCY_TTL: %w", err)
	}
	cfg.IdempotencyTTL = idemTTL

	cacheTTL, err := time.ParseDuration(getEnv("POST_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("parse POST_CACHE_TTL: %w", err)
	}
	cfg.PostCacheTTL = cacheTTL

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.SessionTokenSecret) < 32 {
		errs = append(errs, "SESSION_TOKEN_SECRET must be at least 32 chars")
	}
	if c.SessionTTL < time.Minute || c.SessionTTL > 30*24*time.Hour {
		errs = append(errs, "SESSION_TTL must be between 1m and 30d")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.CoverUploadsOn {
		if c.MinIOEndpoint == "" {
			errs = append(errs, "MINIO_ENDPOINT is required when cover uploads are enabled")
		}
		if c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			errs = append(errs, "MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when cover uploads are enabled")
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
