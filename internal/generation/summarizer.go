package generation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/internal/provider"
	"github.com/JaimeStill/caduceus/internal/stages"
)

// Summarizer condenses the fields drafted so far into a brief that keeps
// later stages consistent with earlier ones.
type Summarizer struct {
	rt    *Runtime
	limit int
}

// NewSummarizer creates a summarizer that truncates each field to limit
// characters in the request.
func NewSummarizer(rt *Runtime, limit int) *Summarizer {
	return &Summarizer{rt: rt, limit: limit}
}

// Summarize makes one provider call and returns the trimmed summary text.
// Any failure, including an empty summary, wraps ErrContextSummary.
func (s *Summarizer) Summarize(ctx context.Context, subject protocol.Subject, acc *protocol.Accumulator) (string, error) {
	request := fmt.Sprintf(
		"Medical Condition: %s\n\nPrevious Fields:\n%s",
		subject.Condition, digest(acc, s.limit),
	)

	messages := []provider.Message{
		provider.System(stages.SummaryInstructions),
		provider.User(request),
	}

	content, err := s.rt.complete(ctx, PurposeSummary, messages, s.rt.Params.Summary)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrContextSummary, err)
	}

	summary := strings.TrimSpace(content)
	if summary == "" {
		return "", fmt.Errorf("%w: %w", ErrContextSummary, provider.ErrEmptyResponse)
	}
	return summary, nil
}

// digest renders each accumulated field as "Field N - title:" followed by
// its content cut to limit characters.
func digest(acc *protocol.Accumulator, limit int) string {
	keys := acc.Keys()
	parts := make([]string, 0, len(keys))

	for _, key := range keys {
		f, _ := acc.Get(key)
		parts = append(parts, fmt.Sprintf("Field %s - %s:\n%s...", key, f.Title, truncate(f.Text(), limit)))
	}

	return strings.Join(parts, "\n\n")
}

// truncate cuts s to at most limit characters without splitting a rune.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
