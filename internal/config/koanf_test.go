package config

import (
	"os"
	"testing"
)

func TestLoadWithKoanfDefaults(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	for k := range map[string]struct{}{} {
		_ = k
	}
	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("expected default database path ':memory:', got %q", cfg.Database.Path)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoadWithKoanfDatabaseURLOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "/tmp/quotaledger-test.duckdb")
	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Path != "/tmp/quotaledger-test.duckdb" {
		t.Errorf("expected DATABASE_URL to override database.path, got %q", cfg.Database.Path)
	}
}

func TestLoadWithKoanfEnvPrefix(t *testing.T) {
	t.Setenv("QUOTALEDGER_SERVER_PORT", "9090")
	t.Setenv("QUOTALEDGER_LOG_LEVEL", "debug")
	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090 from env, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug from env, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for port 0")
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := defaultConfig()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown log format")
	}
}
