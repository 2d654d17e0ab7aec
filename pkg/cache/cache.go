// Package cache provides Redis connection management with lifecycle coordination.
package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/caduceus/pkg/lifecycle"
)

// System manages a Redis client and lifecycle coordination.
type System interface {
	lifecycle.ReadinessChecker
	// Client returns the underlying Redis client.
	Client() *redis.Client
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type cache struct {
	client      *redis.Client
	logger      *slog.Logger
	dialTimeout time.Duration
	ready       atomic.Bool
}

// New creates a cache system with the given configuration.
// The client connects lazily; Start verifies connectivity.
func New(cfg *Config, logger *slog.Logger) System {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeoutDuration(),
		PoolSize:    cfg.PoolSize,
	})

	return &cache{
		client:      client,
		logger:      logger.With("system", "cache"),
		dialTimeout: cfg.DialTimeoutDuration(),
	}
}

func (c *cache) Client() *redis.Client {
	return c.client
}

func (c *cache) Ready() bool {
	return c.ready.Load()
}

func (c *cache) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting cache connection")

	lc.OnStartup(func() {
		pingCtx, cancel := context.WithTimeout(lc.Context(), c.dialTimeout)
		defer cancel()

		if err := c.client.Ping(pingCtx).Err(); err != nil {
			c.logger.Error("cache ping failed", "error", err)
			return
		}

		c.ready.Store(true)
		c.logger.Info("cache connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		c.ready.Store(false)
		c.logger.Info("closing cache connection")

		if err := c.client.Close(); err != nil {
			c.logger.Error("cache close failed", "error", err)
			return
		}

		c.logger.Info("cache connection closed")
	})

	return nil
}
