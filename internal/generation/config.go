package generation

import (
	"fmt"
	"os"
	"strconv"
)

// Resume strategies.
const (
	// ResumeExact restarts at the first stage whose fields are not all present.
	ResumeExact = "exact"
	// ResumeAverage divides the completed field count by the average number
	// of fields per stage.
	ResumeAverage = "average"
)

// Config tunes orchestration behaviour.
type Config struct {
	Confidence          float64 `toml:"confidence"`
	ResumeStrategy      string  `toml:"resume_strategy"`
	IntegrationFallback bool    `toml:"integration_fallback"`
	SummaryTruncate     int     `toml:"summary_truncate"`
	IntegrationTruncate int     `toml:"integration_truncate"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Confidence          string
	ResumeStrategy      string
	IntegrationFallback string
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
	if overlay.Confidence != 0 {
		c.Confidence = overlay.Confidence
	}
	if overlay.ResumeStrategy != "" {
		c.ResumeStrategy = overlay.ResumeStrategy
	}
	if overlay.IntegrationFallback {
		c.IntegrationFallback = true
	}
	if overlay.SummaryTruncate != 0 {
		c.SummaryTruncate = overlay.SummaryTruncate
	}
	if overlay.IntegrationTruncate != 0 {
		c.IntegrationTruncate = overlay.IntegrationTruncate
	}
}

func (c *Config) loadDefaults() {
	if c.Confidence == 0 {
		c.Confidence = 0.95
	}
	if c.ResumeStrategy == "" {
		c.ResumeStrategy = ResumeExact
	}
	if c.SummaryTruncate == 0 {
		c.SummaryTruncate = 500
	}
	if c.IntegrationTruncate == 0 {
		c.IntegrationTruncate = 300
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Confidence != "" {
		if v := os.Getenv(env.Confidence); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.Confidence = f
			}
		}
	}
	if env.ResumeStrategy != "" {
		if v := os.Getenv(env.ResumeStrategy); v != "" {
			c.ResumeStrategy = v
		}
	}
	if env.IntegrationFallback != "" {
		if v := os.Getenv(env.IntegrationFallback); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.IntegrationFallback = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be within [0, 1]: %v", c.Confidence)
	}
	if c.ResumeStrategy != ResumeExact && c.ResumeStrategy != ResumeAverage {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, c.ResumeStrategy)
	}
	if c.SummaryTruncate < 1 || c.IntegrationTruncate < 1 {
		return fmt.Errorf("truncation limits must be positive")
	}
	return nil
}
