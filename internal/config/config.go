package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port        string
	FrontendURL string

	// Database
	SQLiteDBPath string

	// OAuth (Microsoft identity platform)
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthRedirectURL  string

	// Sessions
	JWTSecret      string
	SessionLength  time.Duration

	// AMQP event bus (optional, disabled when URL is empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Notification worker
	WebhookURL     string
	WebhookTimeout time.Duration

	// Expense snapshot cache
	SnapshotTTL time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/jostrid.db"),

		OAuthClientID:     getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
		OAuthAuthURL:      getEnv("OAUTH_AUTH_URL", "https://login.microsoftonline.com/consumers/oauth2/v2.0/authorize"),
		OAuthTokenURL:     getEnv("OAUTH_TOKEN_URL", "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"),
		OAuthRedirectURL:  getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/oauth/callback"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		SessionLength: getEnvDuration("SESSION_LENGTH", 24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "jostrid"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
		WebhookTimeout: getEnvDuration("NOTIFY_WEBHOOK_TIMEOUT", 5*time.Second),

		SnapshotTTL: getEnvDuration("SNAPSHOT_TTL", 5*time.Minute),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET must be set")
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters")
	}

	if c.OAuthClientID == "" {
		errs = append(errs, "OAUTH_CLIENT_ID must be set")
	}
	if c.OAuthClientSecret == "" {
		errs = append(errs, "OAUTH_CLIENT_SECRET must be set")
	}
	for _, u := range []struct{ name, value string }{
		{"OAUTH_AUTH_URL", c.OAuthAuthURL},
		{"OAUTH_TOKEN_URL", c.OAuthTokenURL},
		{"OAUTH_REDIRECT_URL", c.OAuthRedirectURL},
	} {
		if parsed, err := url.Parse(u.value); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid %s '%s'", u.name, u.value))
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.WebhookURL != "" {
		if parsed, err := url.Parse(c.WebhookURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("invalid NOTIFY_WEBHOOK_URL '%s'", c.WebhookURL))
		}
	}

	if c.SessionLength < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session length %v: must be at least 1 minute", c.SessionLength))
	}
	if c.SnapshotTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid snapshot TTL %v: must be at least 1 second", c.SnapshotTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
