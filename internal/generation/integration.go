package generation

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/internal/provider"
	"github.com/JaimeStill/caduceus/internal/stages"
	"github.com/JaimeStill/caduceus/pkg/formatting"
)

// Integrator runs the final consistency pass over a complete draft.
type Integrator struct {
	rt    *Runtime
	limit int
}

// NewIntegrator creates an integrator that truncates each field to limit
// characters in the request.
func NewIntegrator(rt *Runtime, limit int) *Integrator {
	return &Integrator{rt: rt, limit: limit}
}

// Integrate asks the provider to return the whole document reconciled and
// validates the answer against the complete schema. A provider failure wraps
// ErrIntegration; a response that does not satisfy the schema is a
// SchemaValidationError.
func (i *Integrator) Integrate(ctx context.Context, subject protocol.Subject, acc *protocol.Accumulator) (map[string]protocol.Field, error) {
	request := fmt.Sprintf(
		"Medical Condition: %s\n\nComplete Protocol:\n%s\n\nPlease review and ensure consistency. Return the complete integrated protocol.",
		subject.Condition, digest(acc, i.limit),
	)

	messages := []provider.Message{
		provider.System(stages.IntegrationInstructions),
		provider.User(request),
	}

	content, err := i.rt.complete(ctx, PurposeIntegration, messages, i.rt.Params.Integration)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntegration, err)
	}

	return i.decode(content)
}

func (i *Integrator) decode(content string) (map[string]protocol.Field, error) {
	obj, err := formatting.ParseObject(content)
	if err != nil {
		return nil, &MalformedResponseError{Stage: "integration", Err: err}
	}

	fields := make(map[string]protocol.Field, len(obj))
	var problems []string

	for _, key := range slices.Sorted(maps.Keys(obj)) {
		f, present, err := decodeField(key, obj[key])
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if !present {
			problems = append(problems, fmt.Sprintf("field %s is null", key))
			continue
		}
		fields[key] = f
	}

	problems = append(problems, ValidateDocument(i.rt.Registry, fields)...)
	if len(problems) > 0 {
		return nil, &SchemaValidationError{Problems: problems}
	}

	return fields, nil
}
