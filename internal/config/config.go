// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	SessionTTL  time.Duration
	Remote      RemoteConfig
	MediaURL    string
}

// RemoteConfig points at the shared key-value score store. An empty URL
// runs the server in local-only mode.
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	remoteTimeout := getEnvInt("REMOTE_TIMEOUT_SECONDS", 10)
	if remoteTimeout <= 0 {
		remoteTimeout = 10
	}
	sessionTTL := getEnvInt("SESSION_TTL_MINUTES", 60)
	if sessionTTL <= 0 {
		sessionTTL = 60
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/nahw.db"),
		SessionTTL:  time.Duration(sessionTTL) * time.Minute,
		Remote: RemoteConfig{
			BaseURL: getEnv("REMOTE_STORE_URL", ""),
			Timeout: time.Duration(remoteTimeout) * time.Second,
		},
		MediaURL: getEnv("MEDIA_SERVICE_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Remote.BaseURL != "" && !strings.HasPrefix(c.Remote.BaseURL, "http") {
		return fmt.Errorf("REMOTE_STORE_URL must be an http(s) URL")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
