package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/pkg/lifecycle"
)

const pgUndefinedTable = "42P01"

const (
	upsertSession = `
		INSERT INTO generation_sessions (id, payload, updated_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at`

	selectSession = `
		SELECT payload FROM generation_sessions
		WHERE id = $1 AND expires_at > $2`

	deleteSession = `DELETE FROM generation_sessions WHERE id = $1`

	sweepSessions = `
		DELETE FROM generation_sessions
		WHERE expires_at <= $1
		RETURNING id`
)

// Postgres stores sessions as JSONB rows in generation_sessions. Expired rows
// are hidden from Load and removed by the janitor.
type Postgres struct {
	db     *sql.DB
	ttl    time.Duration
	sweep  time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewPostgres creates a PostgreSQL-backed store.
func NewPostgres(db *sql.DB, ttl, sweep time.Duration, logger *slog.Logger) *Postgres {
	return &Postgres{
		db:     db,
		ttl:    ttl,
		sweep:  sweep,
		now:    time.Now,
		logger: logger.With("system", "sessions", "backend", BackendPostgres),
	}
}

func (p *Postgres) Save(ctx context.Context, id string, s *protocol.Session) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	now := p.now().UTC()
	if _, err := p.db.ExecContext(ctx, upsertSession, id, string(payload), now, now.Add(p.ttl)); err != nil {
		return fmt.Errorf("save session %s: %w", id, pgError(err))
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, id string) (*protocol.Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var payload []byte
	if err := p.db.QueryRowContext(ctx, selectSession, id, p.now().UTC()).Scan(&payload); err != nil {
		return nil, pgError(err)
	}

	var session protocol.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &session, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	result, err := p.db.ExecContext(ctx, deleteSession, id)
	if err != nil {
		return pgError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Sweep deletes expired rows and returns their ids.
func (p *Postgres) Sweep(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, sweepSessions, p.now().UTC())
	if err != nil {
		return nil, pgError(err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Start registers the janitor, which runs until the coordinator context is
// cancelled.
func (p *Postgres) Start(lc *lifecycle.Coordinator) error {
	if p.sweep <= 0 {
		return nil
	}

	lc.OnShutdown(func() {
		runJanitor(lc.Context(), p.sweep, p.logger, func(ctx context.Context) (int, error) {
			ids, err := p.Sweep(ctx)
			return len(ids), err
		})
	})
	return nil
}

// pgError maps driver errors onto session errors.
func pgError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pgErr.Message)
	}
	return err
}
