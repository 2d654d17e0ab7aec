// Package database provides PostgreSQL connection management with lifecycle
// coordination and schema migrations.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/caduceus/pkg/lifecycle"
)

// System manages database connections and lifecycle coordination.
type System interface {
	lifecycle.ReadinessChecker
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type database struct {
	conn        *sql.DB
	url         string
	schema      fs.FS
	autoMigrate bool
	connTimeout time.Duration
	logger      *slog.Logger
	ready       atomic.Bool
}

// New creates a database system. schema holds golang-migrate migration files
// at its root and is applied on startup when cfg.AutoMigrate is set; it may
// be nil. No connection is made until Start.
func New(cfg *Config, schema fs.FS, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		url:         cfg.URL(),
		schema:      schema,
		autoMigrate: cfg.AutoMigrate && schema != nil,
		connTimeout: cfg.ConnTimeoutDuration(),
		logger:      logger.With("system", "database", "host", cfg.Host, "name", cfg.Name),
	}, nil
}

// NewMigrator returns a migrator that applies the migrations at the root of
// schema to the database at url. Callers must Close it.
func NewMigrator(url string, schema fs.FS) (*migrate.Migrate, error) {
	source, err := iofs.New(schema, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return nil, fmt.Errorf("migrator: %w", err)
	}
	return m, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

// Ready reports whether the startup ping, and migration when enabled, succeeded.
func (d *database) Ready() bool {
	return d.ready.Load()
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection", "auto_migrate", d.autoMigrate)

	lc.OnStartup(func() {
		pingCtx, cancel := context.WithTimeout(lc.Context(), d.connTimeout)
		defer cancel()

		if err := d.conn.PingContext(pingCtx); err != nil {
			d.logger.Error("database ping failed", "error", err)
			return
		}

		if d.autoMigrate {
			if err := d.migrate(); err != nil {
				d.logger.Error("schema migration failed", "error", err)
				return
			}
		}

		d.ready.Store(true)
		d.logger.Info("database connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.ready.Store(false)

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}
		d.logger.Info("database connection closed")
	})

	return nil
}

func (d *database) migrate() error {
	m, err := NewMigrator(d.url, d.schema)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}

	d.logger.Info("schema up to date", "version", version)
	return nil
}
