package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ledger/internal/log"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Database
	SQLiteDBPath string
	StoreTimeout time.Duration

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 5*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "movement_events"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// AMQPEnabled reports whether movement events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.StoreTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid store timeout %v: must be at least 100ms", c.StoreTimeout))
	} else if c.StoreTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid store timeout %v: must be at most 1 minute", c.StoreTimeout))
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

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
