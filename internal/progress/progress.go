// Package progress fans generation progress out to observers. Emission is
// fire-and-forget: a slow or absent subscriber never blocks a run.
package progress

import (
	"slices"
	"time"

	"github.com/JaimeStill/caduceus/internal/protocol"
)

// Info describes the position of a run when a progress event is emitted.
type Info struct {
	StageIndex      int
	TotalStages     int
	Stage           string
	FieldsCompleted []string
	TotalFields     int
	Message         string
}

// Emitter receives progress notifications from the orchestrator.
// Implementations must not block and must not panic into the caller.
type Emitter interface {
	EmitProgress(correlationID, sessionID string, info Info)
	EmitError(correlationID, sessionID, message string)
	EmitComplete(correlationID, sessionID string, fields []string)
}

// Discard is an Emitter that drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) EmitProgress(string, string, Info)     {}
func (discard) EmitError(string, string, string)      {}
func (discard) EmitComplete(string, string, []string) {}

// Estimate computes the completion percentage and the estimated seconds
// remaining from completed and total field counts.
func Estimate(completed, total, secondsPerField int) (percentage, remaining int) {
	if total <= 0 {
		return 0, 0
	}
	completed = min(max(completed, 0), total)
	return completed * 100 / total, (total - completed) * secondsPerField
}

func progressEvent(correlationID, sessionID string, info Info, secondsPerField int, now time.Time) protocol.ProgressEvent {
	pct, eta := Estimate(len(info.FieldsCompleted), info.TotalFields, secondsPerField)
	return protocol.ProgressEvent{
		CorrelationID:      correlationID,
		SessionID:          sessionID,
		Type:               protocol.EventProgress,
		StageIndex:         info.StageIndex,
		TotalStages:        info.TotalStages,
		Stage:              info.Stage,
		FieldsCompleted:    slices.Clone(info.FieldsCompleted),
		Message:            info.Message,
		Percentage:         pct,
		EstimatedRemaining: eta,
		Timestamp:          now.UTC(),
	}
}
