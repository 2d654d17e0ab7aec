package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/internal/provider"
	"github.com/JaimeStill/caduceus/internal/stages"
	"github.com/JaimeStill/caduceus/pkg/formatting"
)

// StageRequest is the input of one stage execution. Accumulator is read only.
type StageRequest struct {
	Subject      protocol.Subject
	Accumulator  *protocol.Accumulator
	Summary      string
	Instructions string
}

// Executor turns one stage into one provider call and validates the result.
type Executor struct {
	rt *Runtime
}

// NewExecutor creates an executor bound to rt.
func NewExecutor(rt *Runtime) *Executor {
	return &Executor{rt: rt}
}

// Execute builds the stage prompt, calls the provider and returns a fragment
// holding exactly the stage's declared fields. It fails with a
// MalformedResponseError when the response is not a JSON object and with a
// StageValidationError when any declared field is absent or empty.
func (e *Executor) Execute(ctx context.Context, stage stages.Stage, req StageRequest) (protocol.Fragment, error) {
	var completed []string
	if req.Accumulator != nil {
		completed = req.Accumulator.Keys()
	}

	prompt := stage.Prompt(stages.PromptInput{
		Subject:      req.Subject,
		Summary:      req.Summary,
		Instructions: req.Instructions,
		Titles:       e.rt.Registry.Titles(),
		Completed:    completed,
	})

	messages := []provider.Message{
		provider.System(stages.SystemInstructions),
		provider.User(prompt),
	}

	content, err := e.rt.complete(ctx, PurposeStage, messages, e.rt.Params.Stage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stage.ID, err)
	}

	return e.decode(stage, content)
}

func (e *Executor) decode(stage stages.Stage, content string) (protocol.Fragment, error) {
	obj, err := formatting.ParseObject(content)
	if err != nil {
		return nil, &MalformedResponseError{Stage: stage.ID, Err: err}
	}

	fragment := make(protocol.Fragment, len(stage.Fields))
	var missing []string

	for _, n := range stage.Fields {
		key := protocol.Key(n)

		f, present, err := decodeField(key, obj[key])
		if err != nil {
			return nil, &MalformedResponseError{Stage: stage.ID, Err: err}
		}
		if !present || !f.HasContent() {
			missing = append(missing, key)
			continue
		}

		if strings.TrimSpace(f.Title) == "" {
			f.Title = e.rt.Registry.Title(n)
		}
		fragment[key] = f
	}

	if len(missing) > 0 {
		return nil, &StageValidationError{Stage: stage.ID, Missing: missing}
	}

	return fragment, nil
}
