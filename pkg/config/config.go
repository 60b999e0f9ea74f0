// Package config loads Monument's environment-variable driven server
// configuration plus an optional YAML file of per-namespace creation
// defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the server-wide settings read from the environment at
// startup. These are representative of §6's env table: DATA_DIR,
// MAX_COLLECT_TIMEOUT_MS, SCORING_INTERVAL, DEFAULT_GRID_W/H. LLM_* vars
// are intentionally not modeled here — they are consumed only by the
// agent collaborator process, never by the engine.
type Config struct {
	HTTPAddr string

	DataDir string

	// MaxCollectTimeout bounds how long COLLECT waits before synthesizing
	// TIMEOUT entries for actors that have not submitted.
	MaxCollectTimeout time.Duration

	// IdleHandleTTL is how long a namespace handle may sit with no
	// activity and no open WS connections before the cleanup sweeper
	// evicts it from the in-memory registry.
	IdleHandleTTL time.Duration

	// NamespaceDefaults are the built-in creation defaults, merged with
	// any YAML overrides the operator supplies.
	NamespaceDefaults NamespaceDefaults
}

// LoadFromEnv reads the server config from the environment, applying the
// same defaults-then-override shape the rest of the package uses for
// namespace creation settings.
func LoadFromEnv() (*Config, error) {
	defaults, err := LoadNamespaceDefaults(getEnv("NAMESPACE_DEFAULTS_FILE", "./config/namespace-defaults.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		DataDir:           getEnv("DATA_DIR", "./data"),
		MaxCollectTimeout: getEnvDuration("MAX_COLLECT_TIMEOUT_MS", 30*time.Second),
		IdleHandleTTL:     getEnvDuration("IDLE_HANDLE_TTL_MS", 15*time.Minute),
		NamespaceDefaults: defaults,
	}

	if v, ok := os.LookupEnv("DEFAULT_GRID_W"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NamespaceDefaults.Width = n
		}
	}
	if v, ok := os.LookupEnv("DEFAULT_GRID_H"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NamespaceDefaults.Height = n
		}
	}
	if v, ok := os.LookupEnv("SCORING_INTERVAL"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.NamespaceDefaults.ScoringInterval = n
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvDuration reads a millisecond integer env var into a Duration.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
