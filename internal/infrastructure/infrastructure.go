// Package infrastructure provides core service initialization for application startup.
// It assembles the shared systems (logging, provider, sessions, progress, metrics)
// and the connections the configured backends depend on.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/caduceus/internal/config"
	"github.com/JaimeStill/caduceus/internal/generation"
	"github.com/JaimeStill/caduceus/internal/metrics"
	"github.com/JaimeStill/caduceus/internal/progress"
	"github.com/JaimeStill/caduceus/internal/provider"
	"github.com/JaimeStill/caduceus/internal/sessions"
	"github.com/JaimeStill/caduceus/internal/stages"
	"github.com/JaimeStill/caduceus/pkg/cache"
	"github.com/JaimeStill/caduceus/pkg/database"
	"github.com/JaimeStill/caduceus/pkg/lifecycle"
	"github.com/JaimeStill/caduceus/pkg/storage"
)

// Infrastructure holds the systems shared by the HTTP service and the CLI.
// Database, Storage, Cache and Bus are nil unless the configuration selects
// a backend that uses them.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Provider  provider.Provider
	Sessions  sessions.System
	Progress  *progress.Hub
	Metrics   *metrics.Recorder

	Database database.System
	Storage  storage.System
	Cache    cache.System
	Bus      *progress.RedisBus
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// NewWithLogger is New with an explicit root logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Metrics:   metrics.New(),
	}

	if cfg.NeedsDatabase() {
		db, err := database.New(&cfg.Database, sessions.Schema(), logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		infra.Database = db
	}

	if cfg.NeedsStorage() {
		store, err := storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
		infra.Storage = store
	}

	if cfg.NeedsRedis() {
		infra.Cache = cache.New(&cfg.Redis, logger)
	}

	llm, err := provider.New(&cfg.Provider, logger)
	if err != nil {
		return nil, fmt.Errorf("provider init failed: %w", err)
	}
	infra.Provider = llm

	store, err := sessions.New(&cfg.Sessions, sessions.Deps{
		Cache:    infra.Cache,
		Database: infra.Database,
		Storage:  infra.Storage,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("sessions init failed: %w", err)
	}
	infra.Sessions = store

	infra.Progress = progress.NewHub(&cfg.Progress, logger)
	if cfg.Progress.Redis.Enabled {
		infra.Bus = progress.NewRedisBus(infra.Cache.Client(), &cfg.Progress, infra.Progress, logger)
	}

	return infra, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Connection systems are tracked for readiness.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
		i.Lifecycle.Track("database", i.Database)
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
		i.Lifecycle.Track("storage", i.Storage)
	}
	if i.Cache != nil {
		if err := i.Cache.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("cache start failed: %w", err)
		}
		i.Lifecycle.Track("redis", i.Cache)
	}
	if err := i.Sessions.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("sessions start failed: %w", err)
	}
	if i.Bus != nil {
		if err := i.Bus.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("progress bus start failed: %w", err)
		}
	}
	return nil
}

// Generation creates the generation system over the default stage registry,
// wired to the shared provider, session store, progress hub and metrics.
func (i *Infrastructure) Generation(cfg *config.Config) generation.System {
	return generation.New(&cfg.Generation, &generation.Runtime{
		Provider: i.Provider,
		Registry: stages.Default(),
		Sessions: i.Sessions,
		Progress: i.Progress,
		Observer: i.Metrics,
		Params:   generation.ParamsFromProvider(&cfg.Provider),
		Logger:   i.Logger,
	})
}
