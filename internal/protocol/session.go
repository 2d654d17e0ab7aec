package protocol

import (
	"maps"
	"time"
)

// Session is the resumable state of one generation run. It is overwritten
// wholesale after every successful stage and on failure.
type Session struct {
	ID        string           `json:"id"`
	Fields    map[string]Field `json:"fields"`
	Summaries map[int]string   `json:"summaries"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewSession returns an empty session for id.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Fields:    make(map[string]Field),
		Summaries: make(map[int]string),
	}
}

// Capture records the accumulator contents and stamps the update time.
func (s *Session) Capture(acc *Accumulator) {
	s.Fields = acc.Snapshot()
	s.UpdatedAt = time.Now().UTC()
}

// Summary returns the cached context summary for a stage index.
func (s *Session) Summary(index int) (string, bool) {
	v, ok := s.Summaries[index]
	return v, ok
}

// SetSummary caches the context summary for a stage index.
func (s *Session) SetSummary(index int, summary string) {
	if s.Summaries == nil {
		s.Summaries = make(map[int]string)
	}
	s.Summaries[index] = summary
}

// Clone returns a deep copy suitable for handing to a store.
func (s *Session) Clone() *Session {
	return &Session{
		ID:        s.ID,
		Fields:    maps.Clone(s.Fields),
		Summaries: maps.Clone(s.Summaries),
		UpdatedAt: s.UpdatedAt,
	}
}
