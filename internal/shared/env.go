package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override config file values.
const (
	EnvBackendURL   = "YTPOD_URL"
	EnvDatabasePath = "YTPOD_DB"
	EnvPollInterval = "YTPOD_POLL_INTERVAL_MS"
)

// LoadEnv loads variables from the given dotenv files into the process environment.
//
// Missing files are skipped; variables already set in the environment win.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with YTPOD_* environment variables.
func ApplyEnv(c *Config) error {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvPollInterval); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvPollInterval, v)
		}
		c.Polling.IntervalMS = ms
	}
	return nil
}
