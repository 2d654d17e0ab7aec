package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/caduceus/pkg/formatting"
	"github.com/JaimeStill/caduceus/pkg/middleware"
)

const defaultMaxBodySize = 1024 * 1024

var corsEnv = &middleware.CORSEnv{
	Enabled:          "CADUCEUS_CORS_ENABLED",
	Origins:          "CADUCEUS_CORS_ORIGINS",
	AllowedMethods:   "CADUCEUS_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "CADUCEUS_CORS_ALLOWED_HEADERS",
	AllowCredentials: "CADUCEUS_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "CADUCEUS_CORS_MAX_AGE",
}

// APIConfig holds API routing, CORS, and request size settings.
type APIConfig struct {
	BasePath    string                `toml:"base_path"`
	MaxBodySize string                `toml:"max_body_size"`
	CORS        middleware.CORSConfig `toml:"cors"`
}

// MaxBodySizeBytes returns MaxBodySize in bytes, falling back to 1MB when
// the value cannot be parsed.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return defaultMaxBodySize
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS config.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}

	c.CORS.Merge(&overlay.CORS)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("CADUCEUS_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("CADUCEUS_API_MAX_BODY_SIZE"); v != "" {
		c.MaxBodySize = v
	}
}

func (c *APIConfig) validate() error {
	if _, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	return nil
}
