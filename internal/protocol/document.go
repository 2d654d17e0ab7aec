package protocol

import "time"

// Document is the validated output of a completed run.
type Document struct {
	SessionID   string           `json:"session_id"`
	Fields      map[string]Field `json:"fields"`
	Confidence  float64          `json:"confidence"`
	Warnings    []string         `json:"warnings"`
	CompletedAt time.Time        `json:"completed_at"`
}

// EventType discriminates progress events.
type EventType string

const (
	EventProgress EventType = "progress"
	EventError    EventType = "error"
	EventComplete EventType = "complete"
)

// ProgressEvent reports the state of a run to observers. Events are keyed by
// CorrelationID and SessionID.
type ProgressEvent struct {
	CorrelationID      string    `json:"correlation_id"`
	SessionID          string    `json:"session_id"`
	Type               EventType `json:"type"`
	StageIndex         int       `json:"stage_index"`
	TotalStages        int       `json:"total_stages"`
	Stage              string    `json:"stage,omitempty"`
	FieldsCompleted    []string  `json:"fields_completed,omitempty"`
	Message            string    `json:"message,omitempty"`
	Percentage         int       `json:"percentage"`
	EstimatedRemaining int       `json:"estimated_remaining_seconds"`
	Error              string    `json:"error,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}
