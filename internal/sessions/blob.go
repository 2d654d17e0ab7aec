package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/pkg/lifecycle"
	"github.com/JaimeStill/caduceus/pkg/storage"
)

type blobEnvelope struct {
	ExpiresAt time.Time         `json:"expires_at"`
	Session   *protocol.Session `json:"session"`
}

const (
	blobPrefix      = "sessions/"
	expiresMetadata = "expires"
)

// Blob stores each session as sessions/<id>.json in blob storage. Expiry is
// checked on Load, where an expired blob is removed and reported as
// ErrNotFound. The janitor removes expired blobs by their expires metadata.
type Blob struct {
	store  storage.System
	ttl    time.Duration
	sweep  time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewBlob creates a blob-backed store.
func NewBlob(store storage.System, ttl, sweep time.Duration, logger *slog.Logger) *Blob {
	return &Blob{
		store:  store,
		ttl:    ttl,
		sweep:  sweep,
		now:    time.Now,
		logger: logger.With("system", "sessions", "backend", BackendBlob),
	}
}

// WithClock replaces the time source. Intended for tests.
func (b *Blob) WithClock(now func() time.Time) *Blob {
	b.now = now
	return b
}

func blobKey(id string) string {
	return blobPrefix + id + ".json"
}

func (b *Blob) Save(ctx context.Context, id string, s *protocol.Session) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	expires := b.now().UTC().Add(b.ttl)

	data, err := json.Marshal(blobEnvelope{ExpiresAt: expires, Session: s})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	opts := storage.UploadOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{expiresMetadata: expires.Format(time.RFC3339Nano)},
	}
	if err := b.store.Upload(ctx, blobKey(id), bytes.NewReader(data), opts); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (b *Blob) Load(ctx context.Context, id string) (*protocol.Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	rc, err := b.store.Download(ctx, blobKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	defer rc.Close()

	var env blobEnvelope
	if err := json.NewDecoder(rc).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}

	if !b.now().Before(env.ExpiresAt) || env.Session == nil {
		if err := b.store.Delete(ctx, blobKey(id)); err != nil && !errors.Is(err, storage.ErrNotFound) {
			b.logger.WarnContext(ctx, "expired session removal failed", "session_id", id, "error", err)
		}
		return nil, ErrNotFound
	}

	return env.Session, nil
}

func (b *Blob) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	if err := b.store.Delete(ctx, blobKey(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Sweep deletes blobs whose expires metadata has passed and returns how many
// were removed. Blobs without the metadata are left for Load to judge.
func (b *Blob) Sweep(ctx context.Context) (int, error) {
	objects, err := b.store.List(ctx, blobPrefix)
	if err != nil {
		return 0, err
	}

	now := b.now()
	removed := 0
	for _, obj := range objects {
		expires, err := time.Parse(time.RFC3339Nano, obj.Metadata[expiresMetadata])
		if err != nil || now.Before(expires) {
			continue
		}
		if err := b.store.Delete(ctx, obj.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return removed, fmt.Errorf("delete %s: %w", obj.Key, err)
		}
		removed++
	}
	return removed, nil
}

// Start registers the janitor. Container initialization belongs to the
// storage system.
func (b *Blob) Start(lc *lifecycle.Coordinator) error {
	if b.sweep <= 0 {
		return nil
	}

	lc.OnShutdown(func() {
		runJanitor(lc.Context(), b.sweep, b.logger, b.Sweep)
	})
	return nil
}
