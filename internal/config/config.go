package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const sqlitePrefix = "sqlite:///"

// Config holds all configuration for the application.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	WebhookSecret string
	RedisURL      string

	// Downstream fan-out of newly stored messages (optional)
	NatsURL     string
	NatsSubject string

	// Request limits
	MaxBodyBytes        int64
	MessagesDefaultPage int
	MessagesMaxPage     int
	MaxTextLength       int

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// A missing WEBHOOK_SECRET is not fatal here: the server starts, reports
// not-ready and refuses webhook traffic.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8000"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         getEnv("DATABASE_URL", "sqlite:////data/app.db"),
		WebhookSecret:       os.Getenv("WEBHOOK_SECRET"),
		RedisURL:            os.Getenv("REDIS_URL"),
		NatsURL:             os.Getenv("NATS_URL"),
		NatsSubject:         getEnv("NATS_SUBJECT", "messages.ingested"),
		MaxBodyBytes:        int64(getEnvInt("MAX_BODY_BYTES", 64*1024)),
		MessagesDefaultPage: getEnvInt("MESSAGES_DEFAULT_LIMIT", 50),
		MessagesMaxPage:     getEnvInt("MESSAGES_MAX_LIMIT", 100),
		MaxTextLength:       getEnvInt("MAX_TEXT_LENGTH", 4096),
		AutoBlockEnabled:    getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	if cfg.MessagesMaxPage < 1 {
		cfg.MessagesMaxPage = 100
	}
	if cfg.MessagesDefaultPage < 0 || cfg.MessagesDefaultPage > cfg.MessagesMaxPage {
		cfg.MessagesDefaultPage = min(50, cfg.MessagesMaxPage)
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// SecretConfigured reports whether webhook signatures can be verified.
func (c *Config) SecretConfigured() bool {
	return c.WebhookSecret != ""
}

// StoreDriver maps DATABASE_URL to a database/sql-style driver name and DSN.
//
//	sqlite:////data/app.db     -> ("sqlite3", "/data/app.db")
//	sqlite:///./app.db         -> ("sqlite3", "./app.db")
//	postgres://user@host/db    -> ("pgx", "postgres://user@host/db")
func (c *Config) StoreDriver() (driver, dsn string, err error) {
	u := strings.TrimSpace(c.DatabaseURL)
	switch {
	case strings.HasPrefix(u, sqlitePrefix):
		path := strings.TrimPrefix(u, sqlitePrefix)
		if path == "" {
			return "", "", fmt.Errorf("DATABASE_URL %q has no sqlite path", u)
		}
		return "sqlite3", path, nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return "pgx", u, nil
	default:
		return "", "", fmt.Errorf("DATABASE_URL must start with %q or postgres://", sqlitePrefix)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
