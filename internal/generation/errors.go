package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/internal/sessions"
)

// Sentinel errors for generation runs. The typed errors below match these
// through errors.Is.
var (
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrStageValidation   = errors.New("stage validation failed")
	ErrSchemaValidation  = errors.New("schema validation failed")
	ErrContextSummary    = errors.New("context summary failed")
	ErrIntegration       = errors.New("integration failed")
	ErrUnknownStrategy   = errors.New("unknown resume strategy")
)

// MalformedResponseError reports provider output that is not a JSON object
// or whose field values cannot be decoded.
type MalformedResponseError struct {
	Stage string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, ErrMalformedResponse, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// StageValidationError names the declared fields a stage response lacked.
type StageValidationError struct {
	Stage   string
	Missing []string
}

func (e *StageValidationError) Error() string {
	return fmt.Sprintf("%s: %s: missing fields %s", e.Stage, ErrStageValidation, strings.Join(e.Missing, ", "))
}

func (e *StageValidationError) Is(target error) bool { return target == ErrStageValidation }

// SchemaValidationError lists every problem found validating a complete
// document.
type SchemaValidationError struct {
	Problems []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSchemaValidation, strings.Join(e.Problems, "; "))
}

func (e *SchemaValidationError) Is(target error) bool { return target == ErrSchemaValidation }

// RunError is returned for every failed run. It carries what a caller needs
// to resume and unwraps to the cause.
type RunError struct {
	SessionID   string
	FieldsSoFar []string
	Stage       string
	Phase       State
	Resumable   bool
	Err         error
}

func (e *RunError) Error() string {
	return fmt.Sprintf(
		"generation %s failed during %s (%s) with %d fields saved: %v",
		e.SessionID, e.Phase, e.Stage, len(e.FieldsSoFar), e.Err,
	)
}

func (e *RunError) Unwrap() error { return e.Err }

// MapHTTPStatus maps generation errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, protocol.ErrEmptySubject),
		errors.Is(err, sessions.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, sessions.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrMalformedResponse),
		errors.Is(err, ErrStageValidation),
		errors.Is(err, ErrSchemaValidation),
		errors.Is(err, ErrContextSummary),
		errors.Is(err, ErrIntegration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
