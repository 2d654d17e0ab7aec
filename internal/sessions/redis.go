package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/pkg/lifecycle"
)

// Redis stores each session as a JSON value whose expiry is the session TTL.
// Eviction is delegated to Redis key expiry.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis creates a Redis-backed store.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("system", "sessions", "backend", BackendRedis),
	}
}

func (r *Redis) key(id string) string {
	return r.prefix + id
}

func (r *Redis) Save(ctx context.Context, id string, s *protocol.Session) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, id string) (*protocol.Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var s protocol.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Start is a no-op; connection lifecycle belongs to the cache system.
func (r *Redis) Start(lc *lifecycle.Coordinator) error {
	return nil
}
