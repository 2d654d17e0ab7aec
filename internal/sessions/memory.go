package sessions

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/pkg/lifecycle"
)

type entry struct {
	session   *protocol.Session
	expiresAt time.Time
}

// Memory is an in-process Store. Sessions are copied on the way in and out
// so callers never share state with the store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	sweep   time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewMemory creates an in-memory store. A zero sweep interval disables the
// background janitor; expired entries are still hidden from Load.
func NewMemory(ttl, sweep time.Duration, logger *slog.Logger) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		sweep:   sweep,
		now:     time.Now,
		logger:  logger.With("system", "sessions", "backend", BackendMemory),
	}
}

// WithClock replaces the time source. Intended for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Save(ctx context.Context, id string, s *protocol.Session) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[id] = entry{
		session:   s.Clone(),
		expiresAt: m.now().Add(m.ttl),
	}
	return nil
}

func (m *Memory) Load(ctx context.Context, id string) (*protocol.Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok || !m.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.session.Clone(), nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

// Sweep removes expired entries and returns how many were evicted.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Start registers the janitor, which runs until the coordinator context is
// cancelled.
func (m *Memory) Start(lc *lifecycle.Coordinator) error {
	if m.sweep <= 0 {
		return nil
	}

	lc.OnShutdown(func() {
		runJanitor(lc.Context(), m.sweep, m.logger, func(ctx context.Context) (int, error) {
			return m.Sweep(), nil
		})
	})
	return nil
}

func runJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger, sweep func(context.Context) (int, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sweep(ctx)
			if err != nil {
				logger.Error("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired sessions evicted", "count", n)
			}
		}
	}
}
