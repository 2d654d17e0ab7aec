// Package config loads the service configuration from config.toml, an
// optional config.<CADUCEUS_ENV>.toml overlay and CADUCEUS_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/caduceus/internal/generation"
	"github.com/JaimeStill/caduceus/internal/progress"
	"github.com/JaimeStill/caduceus/internal/provider"
	"github.com/JaimeStill/caduceus/internal/sessions"
	"github.com/JaimeStill/caduceus/pkg/cache"
	"github.com/JaimeStill/caduceus/pkg/database"
	"github.com/JaimeStill/caduceus/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvCaduceusEnv             = "CADUCEUS_ENV"
	EnvCaduceusShutdownTimeout = "CADUCEUS_SHUTDOWN_TIMEOUT"
	EnvCaduceusVersion         = "CADUCEUS_VERSION"
)

var providerEnv = &provider.Env{
	Name:        "CADUCEUS_PROVIDER_NAME",
	BaseURL:     "CADUCEUS_PROVIDER_BASE_URL",
	APIKey:      "CADUCEUS_PROVIDER_API_KEY",
	Model:       "CADUCEUS_PROVIDER_MODEL",
	Temperature: "CADUCEUS_PROVIDER_TEMPERATURE",
	Timeout:     "CADUCEUS_PROVIDER_TIMEOUT",
}

var generationEnv = &generation.Env{
	Confidence:          "CADUCEUS_GENERATION_CONFIDENCE",
	ResumeStrategy:      "CADUCEUS_GENERATION_RESUME_STRATEGY",
	IntegrationFallback: "CADUCEUS_GENERATION_INTEGRATION_FALLBACK",
}

var sessionsEnv = &sessions.Env{
	Backend:       "CADUCEUS_SESSIONS_BACKEND",
	TTL:           "CADUCEUS_SESSIONS_TTL",
	SweepInterval: "CADUCEUS_SESSIONS_SWEEP_INTERVAL",
	KeyPrefix:     "CADUCEUS_SESSIONS_KEY_PREFIX",
}

var progressEnv = &progress.Env{
	BufferSize:      "CADUCEUS_PROGRESS_BUFFER_SIZE",
	SecondsPerField: "CADUCEUS_PROGRESS_SECONDS_PER_FIELD",
	RedisEnabled:    "CADUCEUS_PROGRESS_REDIS_ENABLED",
	RedisChannel:    "CADUCEUS_PROGRESS_REDIS_CHANNEL",
}

var databaseEnv = &database.Env{
	Host:            "CADUCEUS_DB_HOST",
	Port:            "CADUCEUS_DB_PORT",
	Name:            "CADUCEUS_DB_NAME",
	User:            "CADUCEUS_DB_USER",
	Password:        "CADUCEUS_DB_PASSWORD",
	SSLMode:         "CADUCEUS_DB_SSL_MODE",
	MaxOpenConns:    "CADUCEUS_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CADUCEUS_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CADUCEUS_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CADUCEUS_DB_CONN_TIMEOUT",
	AutoMigrate:     "CADUCEUS_DB_AUTO_MIGRATE",
}

var storageEnv = &storage.Env{
	ContainerName:    "CADUCEUS_STORAGE_CONTAINER_NAME",
	ConnectionString: "CADUCEUS_STORAGE_CONNECTION_STRING",
	MaxRetries:       "CADUCEUS_STORAGE_MAX_RETRIES",
}

var redisEnv = &cache.Env{
	Addr:        "CADUCEUS_REDIS_ADDR",
	Password:    "CADUCEUS_REDIS_PASSWORD",
	DB:          "CADUCEUS_REDIS_DB",
	DialTimeout: "CADUCEUS_REDIS_DIAL_TIMEOUT",
	PoolSize:    "CADUCEUS_REDIS_POOL_SIZE",
}

// Config is the root configuration for the caduceus service and CLI.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	API             APIConfig         `toml:"api"`
	Provider        provider.Config   `toml:"provider"`
	Generation      generation.Config `toml:"generation"`
	Sessions        sessions.Config   `toml:"sessions"`
	Progress        progress.Config   `toml:"progress"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	Redis           cache.Config      `toml:"redis"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the CADUCEUS_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvCaduceusEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// NeedsDatabase reports whether the configured backends use PostgreSQL.
func (c *Config) NeedsDatabase() bool {
	return c.Sessions.Backend == sessions.BackendPostgres
}

// NeedsStorage reports whether the configured backends use blob storage.
func (c *Config) NeedsStorage() bool {
	return c.Sessions.Backend == sessions.BackendBlob
}

// NeedsRedis reports whether sessions or progress delivery use Redis.
func (c *Config) NeedsRedis() bool {
	return c.Sessions.Backend == sessions.BackendRedis || c.Progress.Redis.Enabled
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	return LoadFile(BaseConfigFile)
}

// LoadFile is Load with an explicit base file. The overlay is resolved next
// to the working directory as with Load.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if overlay := overlayPath(); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
	c.Provider.Merge(&overlay.Provider)
	c.Generation.Merge(&overlay.Generation)
	c.Sessions.Merge(&overlay.Sessions)
	c.Progress.Merge(&overlay.Progress)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Redis.Merge(&overlay.Redis)
}

// finalize validates the always-required sections first, then the
// connection sections the selected backends depend on.
func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Provider.Finalize(providerEnv); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	if err := c.Generation.Finalize(generationEnv); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if err := c.Sessions.Finalize(sessionsEnv); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	if err := c.Progress.Finalize(progressEnv); err != nil {
		return fmt.Errorf("progress: %w", err)
	}

	if c.NeedsDatabase() {
		if err := c.Database.Finalize(databaseEnv); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if c.NeedsStorage() {
		if err := c.Storage.Finalize(storageEnv); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	if c.NeedsRedis() {
		if err := c.Redis.Finalize(redisEnv); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvCaduceusShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvCaduceusVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvCaduceusEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
