package app

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/AndriiLiubov/homework-web-14/pkg/tokenx"
)

type Config struct {
	Secret    string // Required: shared HMAC signing secret for all tokens
	Algorithm string // Optional: HMAC signing algorithm (HS256, HS384, HS512) (default: HS256)

	AccessTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL time.Duration // Optional: refresh token lifetime (default: 7 days)
	VerifyTTL  time.Duration // Optional: email verification token lifetime (default: 7 days)

	DatabaseFile string // Optional: path to SQLite database file (default: ./auth.db)

	RedisAddr     string        // Optional: Redis address for the principal cache (default: localhost:6379)
	RedisPassword string        // Optional: Redis password
	RedisDB       int           // Optional: Redis logical database (default: 0)
	CacheTTL      time.Duration // Optional: principal cache entry lifetime (default: 15m)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		Secret:    os.Getenv("AUTH_SECRET"),
		Algorithm: getEnvOrDefault("AUTH_ALGORITHM", "HS256"),

		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", tokenx.DefaultAccessTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", tokenx.DefaultRefreshTTL),
		VerifyTTL:  getEnvDurationOrDefault("AUTH_VERIFY_TTL", tokenx.DefaultEmailVerificationTTL),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
		CacheTTL:      getEnvDurationOrDefault("CACHE_TTL", 15*time.Minute),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	// The secret signs every token the service issues; there is no safe
	// default to fall back to.
	if cfg.Secret == "" {
		return Config{}, errors.New("AUTH_SECRET is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
