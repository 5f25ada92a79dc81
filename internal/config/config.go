package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Database configuration
	DatabaseURL string

	// Mention search configuration
	MentionSearchRPCURL string // ranked search edge function; empty disables the primary path
	SearchDebounceMS    int
	SuggestionLimit     int

	// Digest configuration
	DigestEnabled bool
	DigestFrom    string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string

	// Notification retention
	NotificationRetentionDays int

	TimeZone string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		MentionSearchRPCURL: getEnv("MENTION_SEARCH_RPC_URL", ""),
		SearchDebounceMS:    getIntEnv("SEARCH_DEBOUNCE_MS", 300),
		SuggestionLimit:     getIntEnv("SUGGESTION_LIMIT", 10),

		DigestEnabled: getBoolEnv("DIGEST_ENABLED", false),
		DigestFrom:    getEnv("DIGEST_FROM", ""),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getIntEnv("SMTP_PORT", 587),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),

		NotificationRetentionDays: getIntEnv("NOTIFICATION_RETENTION_DAYS", 90),

		TimeZone: getEnv("TIMEZONE", "UTC"),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.SearchDebounceMS < 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE_MS must not be negative")
	}

	if c.SuggestionLimit <= 0 {
		return fmt.Errorf("SUGGESTION_LIMIT must be positive")
	}

	if c.NotificationRetentionDays <= 0 {
		return fmt.Errorf("NOTIFICATION_RETENTION_DAYS must be positive")
	}

	if c.DigestEnabled {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when DIGEST_ENABLED is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
