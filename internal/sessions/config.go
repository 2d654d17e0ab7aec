package sessions

import (
	"fmt"
	"os"
	"slices"
	"time"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendBlob     = "blob"
)

var backends = []string{BackendMemory, BackendRedis, BackendPostgres, BackendBlob}

// Config selects and tunes the session backend. Connection settings for the
// redis, postgres and blob backends live with their shared systems.
type Config struct {
	Backend       string `toml:"backend"`
	TTL           string `toml:"ttl"`
	SweepInterval string `toml:"sweep_interval"`
	KeyPrefix     string `toml:"key_prefix"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend       string
	TTL           string
	SweepInterval string
	KeyPrefix     string
}

// TTLDuration returns TTL as a time.Duration.
func (c *Config) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// SweepIntervalDuration returns SweepInterval as a time.Duration.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.TTL != "" {
		c.TTL = overlay.TTL
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
	if overlay.KeyPrefix != "" {
		c.KeyPrefix = overlay.KeyPrefix
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.TTL == "" {
		c.TTL = "24h"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "5m"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "caduceus:session:"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}
	if env.TTL != "" {
		if v := os.Getenv(env.TTL); v != "" {
			c.TTL = v
		}
	}
	if env.SweepInterval != "" {
		if v := os.Getenv(env.SweepInterval); v != "" {
			c.SweepInterval = v
		}
	}
	if env.KeyPrefix != "" {
		if v := os.Getenv(env.KeyPrefix); v != "" {
			c.KeyPrefix = v
		}
	}
}

func (c *Config) validate() error {
	if !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("%w: %s", ErrUnknownBackend, c.Backend)
	}
	ttl, err := time.ParseDuration(c.TTL)
	if err != nil {
		return fmt.Errorf("invalid ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %s", c.TTL)
	}
	if _, err := time.ParseDuration(c.SweepInterval); err != nil {
		return fmt.Errorf("invalid sweep_interval: %w", err)
	}
	return nil
}
