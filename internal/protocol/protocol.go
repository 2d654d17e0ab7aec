// Package protocol defines the document model assembled by staged generation:
// the subject and its evidence, per-field values, stage fragments and the
// accumulator that merges them.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Finding is one annotated evidence snippet supporting generation.
type Finding struct {
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
}

// Subject is the topic that drives generation together with its evidence.
// It is caller-supplied and never modified during a run.
type Subject struct {
	Condition string    `json:"condition"`
	Evidence  []Finding `json:"evidence"`
}

// Validate reports whether the subject carries a condition to generate for.
func (s Subject) Validate() error {
	if strings.TrimSpace(s.Condition) == "" {
		return ErrEmptySubject
	}
	return nil
}

// Field is a single document field as exchanged with the provider and callers.
// Content is either a JSON string or a structured JSON value.
type Field struct {
	Number  int             `json:"fieldNumber"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

type wireField struct {
	Number  json.RawMessage `json:"fieldNumber"`
	Alt     json.RawMessage `json:"sectionNumber"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

// UnmarshalJSON accepts fieldNumber as either a JSON number or a numeric
// string ("3" and 3 both decode to 3). The legacy sectionNumber key is
// accepted when fieldNumber is absent.
func (f *Field) UnmarshalJSON(data []byte) error {
	var w wireField
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	raw := w.Number
	if len(raw) == 0 || string(raw) == "null" {
		raw = w.Alt
	}

	n, err := decodeNumber(raw)
	if err != nil {
		return fmt.Errorf("fieldNumber: %w", err)
	}

	f.Number = n
	f.Title = w.Title
	f.Content = w.Content
	return nil
}

// HasContent reports whether the field carries a non-empty content value.
func (f Field) HasContent() bool {
	c := bytes.TrimSpace(f.Content)
	switch string(c) {
	case "", "null", `""`, "{}", "[]":
		return false
	}
	return true
}

// Text returns string content verbatim and structured content as compact JSON.
func (f Field) Text() string {
	var s string
	if err := json.Unmarshal(f.Content, &s); err == nil {
		return s
	}
	return string(f.Content)
}

func decodeNumber(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("expected number or numeric string, got %s", raw)
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("non-numeric string %q", s)
	}
	return n, nil
}

// Key returns the wire key for a field number.
func Key(number int) string {
	return strconv.Itoa(number)
}
