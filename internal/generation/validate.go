package generation

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/internal/stages"
)

// ValidateDocument checks fields against the complete schema of reg: every
// field present with a title and content, and no unknown keys. It returns
// one problem per violation, empty when the document is valid.
func ValidateDocument(reg *stages.Registry, fields map[string]protocol.Field) []string {
	var problems []string

	schema := reg.Keys()
	for _, key := range schema {
		f, ok := fields[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("field %s is missing", key))
			continue
		}
		if strings.TrimSpace(f.Title) == "" {
			problems = append(problems, fmt.Sprintf("field %s has no title", key))
		}
		if !f.HasContent() {
			problems = append(problems, fmt.Sprintf("field %s has no content", key))
		}
	}

	extra := slices.Sorted(maps.Keys(fields))
	for _, key := range extra {
		if !slices.Contains(schema, key) {
			problems = append(problems, fmt.Sprintf("unknown field %s", key))
		}
	}

	return problems
}

// decodeField decodes one field value stored under key. The key is
// authoritative for the field number. An absent or null value reports
// present as false.
func decodeField(key string, raw json.RawMessage) (f protocol.Field, present bool, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return f, false, nil
	}

	if err := json.Unmarshal(raw, &f); err != nil {
		return f, true, fmt.Errorf("field %s: %w", key, err)
	}

	if n, err := strconv.Atoi(key); err == nil {
		f.Number = n
	}
	return f, true, nil
}
