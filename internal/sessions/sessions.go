// Package sessions persists resumable generation progress. Every backend
// overwrites a session wholesale on Save and honours a time-to-live after
// which the session loads as ErrNotFound.
package sessions

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/pkg/lifecycle"
)

// Store saves, loads and deletes sessions by id. Keys are independent and
// implementations are safe for concurrent use.
type Store interface {
	Save(ctx context.Context, id string, session *protocol.Session) error
	Load(ctx context.Context, id string) (*protocol.Session, error)
	Delete(ctx context.Context, id string) error
}

// System is a Store with lifecycle hooks for background eviction.
type System interface {
	Store
	Start(lc *lifecycle.Coordinator) error
}

// Domain errors for session operations.
var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidID         = errors.New("invalid session id")
	ErrUnknownBackend    = errors.New("unknown session backend")
	ErrMissingDependency = errors.New("session backend dependency not configured")
	ErrSchemaMissing     = errors.New("session schema missing, run migrate -up or enable auto_migrate")
)

// MapHTTPStatus maps session errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidID) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

// ValidateID rejects ids that are empty, overly long, or that could escape a
// key namespace.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) || strings.Contains(id, "..") {
		return ErrInvalidID
	}
	return nil
}
