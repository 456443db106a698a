package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the process configuration read from the environment
type Config struct {
	Port     string
	AppURL   string
	LogLevel zerolog.Level

	DatabaseDriver string
	DatabaseURL    string

	MongoURI      string
	MongoDatabase string
	RedisURL      string

	ShopifyAPIKey     string
	ShopifyAPISecret  string
	ShopifyScopes     []string
	ShopifyAPIVersion string
	ShopifyRetries    int

	JWTSecret          string
	JWTIssuer          string
	JWTTTL             time.Duration
	TokenEncryptionKey string

	SyncInterval    time.Duration
	SyncConcurrency int
	SyncLockTTL     time.Duration
	SyncOnStart     bool

	CORSAllowedOrigins []string
}

// Load reads the configuration from environment variables, applying
// defaults and validating required values.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		AppURL:             strings.TrimSuffix(getEnv("APP_URL", "http://localhost:8080"), "/"),
		DatabaseDriver:     strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MongoURI:           os.Getenv("MONGODB_URI"),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "shopify_tenant_sync"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ShopifyAPIKey:      os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret:   os.Getenv("SHOPIFY_API_SECRET"),
		ShopifyScopes:      splitList(getEnv("SHOPIFY_SCOPES", "read_products,read_customers,read_orders")),
		ShopifyAPIVersion:  os.Getenv("SHOPIFY_API_VERSION"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          os.Getenv("JWT_ISSUER"),
		TokenEncryptionKey: os.Getenv("TOKEN_ENCRYPTION_KEY"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	cfg.LogLevel = level

	cfg.ShopifyRetries = getInt("SHOPIFY_RETRIES", 3, &errs)
	cfg.JWTTTL = getDuration("JWT_TTL", time.Hour, &errs)
	cfg.SyncInterval = getDuration("SYNC_INTERVAL", 15*time.Minute, &errs)
	cfg.SyncConcurrency = getInt("SYNC_CONCURRENCY", 4, &errs)
	cfg.SyncLockTTL = getDuration("SYNC_LOCK_TTL", 30*time.Minute, &errs)
	cfg.SyncOnStart = getBool("SYNC_ON_START", false, &errs)

	switch cfg.DatabaseDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", cfg.DatabaseDriver))
	}
	if cfg.ShopifyAPIKey == "" {
		errs = append(errs, errors.New("SHOPIFY_API_KEY is required"))
	}
	if cfg.ShopifyAPISecret == "" {
		errs = append(errs, errors.New("SHOPIFY_API_SECRET is required"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.SyncConcurrency < 1 {
		errs = append(errs, errors.New("SYNC_CONCURRENCY must be at least 1"))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return fallback
	}
	return d
}

func getBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
