package progress

import (
	"fmt"
	"os"
	"strconv"
)

// Config tunes progress delivery.
type Config struct {
	BufferSize      int         `toml:"buffer_size"`
	SecondsPerField int         `toml:"seconds_per_field"`
	Redis           RedisConfig `toml:"redis"`
}

// RedisConfig enables cross-process delivery over Redis pub/sub.
type RedisConfig struct {
	Enabled bool   `toml:"enabled"`
	Channel string `toml:"channel"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	BufferSize      string
	SecondsPerField string
	RedisEnabled    string
	RedisChannel    string
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
	if overlay.BufferSize != 0 {
		c.BufferSize = overlay.BufferSize
	}
	if overlay.SecondsPerField != 0 {
		c.SecondsPerField = overlay.SecondsPerField
	}
	if overlay.Redis.Enabled {
		c.Redis.Enabled = true
	}
	if overlay.Redis.Channel != "" {
		c.Redis.Channel = overlay.Redis.Channel
	}
}

func (c *Config) loadDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = 64
	}
	if c.SecondsPerField == 0 {
		c.SecondsPerField = 45
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "caduceus:progress"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.BufferSize != "" {
		if v := os.Getenv(env.BufferSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.BufferSize = n
			}
		}
	}
	if env.SecondsPerField != "" {
		if v := os.Getenv(env.SecondsPerField); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.SecondsPerField = n
			}
		}
	}
	if env.RedisEnabled != "" {
		if v := os.Getenv(env.RedisEnabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Redis.Enabled = b
			}
		}
	}
	if env.RedisChannel != "" {
		if v := os.Getenv(env.RedisChannel); v != "" {
			c.Redis.Channel = v
		}
	}
}

func (c *Config) validate() error {
	if c.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be positive: %d", c.BufferSize)
	}
	if c.SecondsPerField < 0 {
		return fmt.Errorf("seconds_per_field must not be negative: %d", c.SecondsPerField)
	}
	return nil
}
