package provider

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds provider connection and model parameters.
type Config struct {
	Name                   string  `toml:"name"`
	BaseURL                string  `toml:"base_url"`
	APIKey                 string  `toml:"api_key"`
	Model                  string  `toml:"model"`
	Temperature            float64 `toml:"temperature"`
	IntegrationTemperature float64 `toml:"integration_temperature"`
	StageMaxTokens         int     `toml:"stage_max_tokens"`
	SummaryMaxTokens       int     `toml:"summary_max_tokens"`
	IntegrationMaxTokens   int     `toml:"integration_max_tokens"`
	Timeout                string  `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Name        string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature string
	Timeout     string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
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
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Temperature != 0 {
		c.Temperature = overlay.Temperature
	}
	if overlay.IntegrationTemperature != 0 {
		c.IntegrationTemperature = overlay.IntegrationTemperature
	}
	if overlay.StageMaxTokens != 0 {
		c.StageMaxTokens = overlay.StageMaxTokens
	}
	if overlay.SummaryMaxTokens != 0 {
		c.SummaryMaxTokens = overlay.SummaryMaxTokens
	}
	if overlay.IntegrationMaxTokens != 0 {
		c.IntegrationMaxTokens = overlay.IntegrationMaxTokens
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.Name == "" {
		c.Name = "openai"
	}
	if c.Model == "" {
		c.Model = "o3"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.IntegrationTemperature == 0 {
		c.IntegrationTemperature = 0.1
	}
	if c.StageMaxTokens == 0 {
		c.StageMaxTokens = 6000
	}
	if c.SummaryMaxTokens == 0 {
		c.SummaryMaxTokens = 1000
	}
	if c.IntegrationMaxTokens == 0 {
		c.IntegrationMaxTokens = 10000
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Name != "" {
		if v := os.Getenv(env.Name); v != "" {
			c.Name = v
		}
	}
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.APIKey != "" {
		if v := os.Getenv(env.APIKey); v != "" {
			c.APIKey = v
		}
	}
	if env.Model != "" {
		if v := os.Getenv(env.Model); v != "" {
			c.Model = v
		}
	}
	if env.Temperature != "" {
		if v := os.Getenv(env.Temperature); v != "" {
			if t, err := strconv.ParseFloat(v, 64); err == nil {
				c.Temperature = t
			}
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.Name != "openai" {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, c.Name)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("invalid temperature: %v", c.Temperature)
	}
	if c.IntegrationTemperature < 0 || c.IntegrationTemperature > 2 {
		return fmt.Errorf("invalid integration_temperature: %v", c.IntegrationTemperature)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
