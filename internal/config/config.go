package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ulule/limiter/v3"

	applog "timetrack/internal/log"
)

const minJWTSecretLen = 16

var validBackends = []string{"memory", "sqlite", "mysql"}

type Config struct {
	// HTTP Server
	Port               string
	RateLimit          string
	TrustForwardHeader bool
	MetricsEnabled     bool
	Environment        string

	// Database
	DataBackend  string
	SQLiteDBPath string
	MySQLDSN     string

	// AMQP, optional: an empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auth
	JWTSecret    string
	JWTIssuer    string
	JWTExpiresIn time.Duration
	UserCacheTTL time.Duration

	// Worker
	SweepSchedule string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimit:          getEnv("RATE_LIMIT", "300-M"),
		TrustForwardHeader: getEnvBool("TRUST_FORWARD_HEADER", false),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		Environment:        getEnv("ENVIRONMENT", "development"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/timetrack.db"),
		MySQLDSN:     getEnv("MYSQL_DSN", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "timetrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "project_cascade"),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", "timetrack"),
		JWTExpiresIn: getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour),
		UserCacheTTL: getEnvDuration("USER_CACHE_TTL", time.Minute),

		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@every 15m"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// IsDevelopment relaxes HTTPS-only security headers.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "mysql":
		if c.MySQLDSN == "" {
			errors = append(errors, "MYSQL_DSN is required when using mysql backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(c.JWTSecret) < minJWTSecretLen {
		errors = append(errors, fmt.Sprintf("JWT_SECRET must be at least %d bytes", minJWTSecretLen))
	}
	if c.JWTExpiresIn < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid JWT lifetime %v: must be at least 1 minute", c.JWTExpiresIn))
	}

	if c.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rate limit '%s': %v", c.RateLimit, err))
		}
	}

	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid sweep schedule '%s': %v", c.SweepSchedule, err))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
