package sessions

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/caduceus/pkg/cache"
	"github.com/JaimeStill/caduceus/pkg/database"
	"github.com/JaimeStill/caduceus/pkg/storage"
)

// Deps carries the shared systems a backend may need. Only the dependency of
// the configured backend is required.
type Deps struct {
	Cache    cache.System
	Database database.System
	Storage  storage.System
}

// New creates the session system selected by cfg.Backend.
func New(cfg *Config, deps Deps, logger *slog.Logger) (System, error) {
	ttl := cfg.TTLDuration()
	sweep := cfg.SweepIntervalDuration()

	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(ttl, sweep, logger), nil
	case BackendRedis:
		if deps.Cache == nil {
			return nil, fmt.Errorf("%w: redis", ErrMissingDependency)
		}
		return NewRedis(deps.Cache.Client(), cfg.KeyPrefix, ttl, logger), nil
	case BackendPostgres:
		if deps.Database == nil {
			return nil, fmt.Errorf("%w: database", ErrMissingDependency)
		}
		return NewPostgres(deps.Database.Connection(), ttl, sweep, logger), nil
	case BackendBlob:
		if deps.Storage == nil {
			return nil, fmt.Errorf("%w: storage", ErrMissingDependency)
		}
		return NewBlob(deps.Storage, ttl, sweep, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}
