// Package config loads runtime configuration for the lapcli client.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures the runtime configuration of the client.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	CacheTTL       time.Duration
	ConfigDir      string
	LogLevel       string
}

// Load reads configuration from the environment, applying defaults suitable
// for talking to a local backend. A .env file in the working directory is
// honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BaseURL:        getString("LAP_BASE_URL", "http://localhost:8080/api"),
		RequestTimeout: getDuration("LAP_REQUEST_TIMEOUT", 30*time.Second),
		MaxRetries:     getInt("LAP_MAX_RETRIES", 2),
		CacheTTL:       getDuration("LAP_CACHE_TTL", time.Minute),
		ConfigDir:      getString("LAP_CONFIG_DIR", defaultConfigDir()),
		LogLevel:       getString("LAP_LOG_LEVEL", "info"),
	}
	return cfg, nil
}

func defaultConfigDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "lapcli")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "lapcli")
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
