package config

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FOLIO_DB_PATH", "")
	t.Setenv("FOLIO_BASE_CURRENCY", "")
	t.Setenv("FOLIO_LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DatabasePath != "./folio.db" {
		t.Errorf("DatabasePath = %q, want ./folio.db", cfg.DatabasePath)
	}
	if cfg.BaseCurrency != "USD" {
		t.Errorf("BaseCurrency = %q, want USD", cfg.BaseCurrency)
	}
	if cfg.LogLevel != zerolog.InfoLevel {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOLIO_DB_PATH", "/tmp/test.db")
	t.Setenv("FOLIO_BASE_CURRENCY", "eur")
	t.Setenv("FOLIO_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DatabasePath != "/tmp/test.db" {
		t.Errorf("DatabasePath = %q, want /tmp/test.db", cfg.DatabasePath)
	}
	if cfg.BaseCurrency != "EUR" {
		t.Errorf("BaseCurrency = %q, want EUR", cfg.BaseCurrency)
	}
	if cfg.LogLevel != zerolog.DebugLevel {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadRejectsBadLevel(t *testing.T) {
	t.Setenv("FOLIO_LOG_LEVEL", "loud")
	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted an invalid log level")
	}
}
