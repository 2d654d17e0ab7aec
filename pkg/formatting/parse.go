package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when sanitized content cannot be decoded as JSON.
var ErrParseFailed = errors.New("failed to parse response")

var (
	openFence  = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
	closeFence = regexp.MustCompile("\r?\n?```[ \t]*$")
)

// Sanitize strips a markdown code fence wrapping provider output. A leading
// fence (with or without a language tag in any casing) and a trailing fence
// are removed independently, so partially fenced text is handled as well.
// Text without fences is returned trimmed and otherwise unchanged.
// Sanitize never fails; malformed content surfaces at the parse step.
func Sanitize(content string) string {
	s := strings.TrimSpace(content)
	s = openFence.ReplaceAllString(s, "")
	s = closeFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Parse sanitizes content and unmarshals the result into T.
// Returns ErrParseFailed when the sanitized text is not valid JSON for T.
func Parse[T any](content string) (T, error) {
	var result T

	cleaned := Sanitize(content)
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return result, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	return result, nil
}

// ParseObject sanitizes content and decodes it as a JSON object whose values
// are kept raw for per-key decoding. A top-level array, scalar or null is
// rejected with ErrParseFailed.
func ParseObject(content string) (map[string]json.RawMessage, error) {
	if !strings.HasPrefix(Sanitize(content), "{") {
		return nil, fmt.Errorf("%w: expected JSON object", ErrParseFailed)
	}
	return Parse[map[string]json.RawMessage](content)
}
