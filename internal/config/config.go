// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

// Package config loads the quota ledger's configuration from layered
// sources: built-in defaults, an optional YAML file, then environment
// variables, in that order of increasing priority.
package config

import (
	"fmt"
	"time"
)

// DatabaseConfig configures the embedded DuckDB event store.
type DatabaseConfig struct {
	// Path is the DuckDB database file, or ":memory:" for an ephemeral
	// in-process database. Populated from DATABASE_URL.
	Path string `koanf:"path"`

	// MaxMemory bounds DuckDB's memory budget, e.g. "2GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads caps the connection pool's open connections; 0 means
	// runtime.NumCPU(). DuckDB's own worker thread setting is not changed.
	Threads int `koanf:"threads"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string        `koanf:"host"`
	Port int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig configures the background services run under
// internal/supervisor.
type SupervisorConfig struct {
	CheckpointInterval time.Duration `koanf:"checkpoint_interval"`
	AuditorInterval    time.Duration `koanf:"auditor_interval"`
	AuditorSampleSize  int           `koanf:"auditor_sample_size"`
}

// Config is the quota ledger's complete runtime configuration.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// Validate checks the configuration for internally inconsistent values
// that would otherwise surface as a confusing failure deeper in startup.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path (DATABASE_URL) must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Supervisor.AuditorSampleSize <= 0 {
		return fmt.Errorf("supervisor.auditor_sample_size must be > 0, got %d", c.Supervisor.AuditorSampleSize)
	}
	return nil
}
