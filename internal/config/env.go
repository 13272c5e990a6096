package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables that override file configuration.
const (
	EnvSeed     = "CRAGSMAN_SEED"
	EnvLogLevel = "CRAGSMAN_LOG_LEVEL"
	EnvWorkers  = "CRAGSMAN_WORKERS"
)

// ApplyEnv overrides selected fields from the process environment and
// re-validates the result.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSeed); ok && strings.TrimSpace(v) != "" {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Terrain.Seed = seed
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvWorkers); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Streaming.Workers = n
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}
