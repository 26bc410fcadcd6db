// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for an optional config
// file, in priority order. The first one found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/quotaledger/config.yaml",
	"/etc/quotaledger/config.yml",
}

// ConfigPathEnvVar overrides the searched config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      ":memory:",
			MaxMemory: "2GB",
			Threads:   0,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			CheckpointInterval: 5 * time.Minute,
			AuditorInterval:    1 * time.Minute,
			AuditorSampleSize:  50,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources: defaults, then
// an optional YAML file, then environment variables — each layer
// overriding the last.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// DATABASE_URL is the contract's own env var, outside the
	// QUOTALEDGER_ prefix used by everything else, so it is applied
	// directly rather than through envTransformFunc.
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		if err := k.Set("database.path", dbURL); err != nil {
			return nil, fmt.Errorf("failed to apply DATABASE_URL: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps QUOTALEDGER_-prefixed environment variables to
// koanf config paths, e.g. QUOTALEDGER_SERVER_PORT -> server.port.
// Unmapped keys are skipped so arbitrary environment variables never
// leak into the configuration.
func envTransformFunc(key string) string {
	const prefix = "QUOTALEDGER_"
	if !strings.HasPrefix(key, prefix) {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, prefix))

	envMappings := map[string]string{
		"database_max_memory":          "database.max_memory",
		"database_threads":             "database.threads",
		"server_host":                  "server.host",
		"server_port":                  "server.port",
		"server_timeout":               "server.timeout",
		"log_level":                    "logging.level",
		"log_format":                   "logging.format",
		"log_caller":                   "logging.caller",
		"checkpoint_interval":          "supervisor.checkpoint_interval",
		"auditor_interval":             "supervisor.auditor_interval",
		"auditor_sample_size":          "supervisor.auditor_sample_size",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
