package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "CADUCEUS_SERVER_HOST"
	EnvServerPort              = "CADUCEUS_SERVER_PORT"
	EnvServerReadTimeout       = "CADUCEUS_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "CADUCEUS_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "CADUCEUS_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "CADUCEUS_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "CADUCEUS_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP server parameters. WriteTimeout bounds a whole
// generation request, so it defaults well above the provider timeout times
// the number of calls in a run. Event streams clear it.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return duration(c.ReadTimeout)
}

// ReadHeaderTimeoutDuration returns ReadHeaderTimeout as a time.Duration.
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return duration(c.ReadHeaderTimeout)
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return duration(c.WriteTimeout)
}

// IdleTimeoutDuration returns IdleTimeout as a time.Duration.
func (c *ServerConfig) IdleTimeoutDuration() time.Duration {
	return duration(c.IdleTimeout)
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for dst, v := range c.durations(overlay) {
		if v != "" {
			*dst = v
		}
	}
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
}

// durations pairs each duration field of c with the same field of other.
func (c *ServerConfig) durations(other *ServerConfig) map[*string]string {
	return map[*string]string{
		&c.ReadTimeout:       other.ReadTimeout,
		&c.ReadHeaderTimeout: other.ReadHeaderTimeout,
		&c.WriteTimeout:      other.WriteTimeout,
		&c.IdleTimeout:       other.IdleTimeout,
		&c.ShutdownTimeout:   other.ShutdownTimeout,
	}
}

func (c *ServerConfig) loadDefaults() {
	c.Merge(&ServerConfig{
		Host:              pick(c.Host, "0.0.0.0"),
		Port:              c.portOr(8080),
		ReadTimeout:       pick(c.ReadTimeout, "1m"),
		ReadHeaderTimeout: pick(c.ReadHeaderTimeout, "10s"),
		WriteTimeout:      pick(c.WriteTimeout, "15m"),
		IdleTimeout:       pick(c.IdleTimeout, "2m"),
		ShutdownTimeout:   pick(c.ShutdownTimeout, "30s"),
	})
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	c.Merge(&ServerConfig{
		Host:              os.Getenv(EnvServerHost),
		ReadTimeout:       os.Getenv(EnvServerReadTimeout),
		ReadHeaderTimeout: os.Getenv(EnvServerReadHeaderTimeout),
		WriteTimeout:      os.Getenv(EnvServerWriteTimeout),
		IdleTimeout:       os.Getenv(EnvServerIdleTimeout),
		ShutdownTimeout:   os.Getenv(EnvServerShutdownTimeout),
	})
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, f := range []struct{ name, value string }{
		{"read_timeout", c.ReadTimeout},
		{"read_header_timeout", c.ReadHeaderTimeout},
		{"write_timeout", c.WriteTimeout},
		{"idle_timeout", c.IdleTimeout},
		{"shutdown_timeout", c.ShutdownTimeout},
	} {
		if _, err := time.ParseDuration(f.value); err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
	}
	return nil
}

func (c *ServerConfig) portOr(def int) int {
	if c.Port != 0 {
		return c.Port
	}
	return def
}

func pick(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
