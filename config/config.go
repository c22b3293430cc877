// Package config loads engine settings from environment variables, with an
// optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the runtime settings of the engine.
type Config struct {
	// DatabasePath is the sqlite file the durable store opens.
	DatabasePath string
	// BaseCurrency is the aggregation currency for users without a stored
	// preference.
	BaseCurrency string
	// LogLevel is a zerolog level name (trace, debug, info, warn, error).
	LogLevel zerolog.Level
}

// Load reads configuration from the environment. A .env file in the current
// directory is loaded first when present; explicit environment variables
// take precedence over it.
func Load() (Config, error) {
	// godotenv never overrides variables already set in the environment.
	_ = godotenv.Load()

	levelStr := getEnv("FOLIO_LOG_LEVEL", "info")
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return Config{}, fmt.Errorf("invalid FOLIO_LOG_LEVEL %q: %w", levelStr, err)
	}

	cfg := Config{
		DatabasePath: getEnv("FOLIO_DB_PATH", "./folio.db"),
		BaseCurrency: strings.ToUpper(getEnv("FOLIO_BASE_CURRENCY", "USD")),
		LogLevel:     level,
	}
	if len(cfg.BaseCurrency) != 3 {
		return Config{}, fmt.Errorf("invalid FOLIO_BASE_CURRENCY %q: want a 3-letter code", cfg.BaseCurrency)
	}
	return cfg, nil
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
