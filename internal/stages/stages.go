// Package stages defines the ordered stage catalogue for staged generation.
// Each stage owns a disjoint set of document fields; the union of all stage
// fields is the complete document schema.
package stages

import (
	"fmt"
	"maps"
	"slices"

	"github.com/JaimeStill/caduceus/internal/protocol"
)

// Stage is one unit of generation responsible for a fixed set of fields.
type Stage struct {
	ID          string
	Ordinal     int
	Name        string
	Description string
	Fields      []int
	Prompt      func(PromptInput) string
}

// Keys returns the wire keys of the stage's fields.
func (s Stage) Keys() []string {
	keys := make([]string, len(s.Fields))
	for i, n := range s.Fields {
		keys[i] = protocol.Key(n)
	}
	return keys
}

// Registry is an immutable, validated, ordered list of stages.
type Registry struct {
	stages []Stage
	titles map[int]string
	fields []int
}

// New validates the stage definitions and returns a registry. Stages keep
// their declaration order and are assigned ordinals from 0. Construction
// fails when a stage is empty, when two stages declare the same field, when
// a stage id repeats, or when a declared field has no title.
func New(titles map[int]string, defs ...Stage) (*Registry, error) {
	if len(defs) == 0 {
		return nil, ErrNoStages
	}

	owner := make(map[int]string)
	ids := make(map[string]bool)
	stages := make([]Stage, 0, len(defs))

	for i, def := range defs {
		if len(def.Fields) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyStage, def.ID)
		}
		if ids[def.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStage, def.ID)
		}
		ids[def.ID] = true

		for _, n := range def.Fields {
			if prev, ok := owner[n]; ok {
				return nil, fmt.Errorf("%w: field %d in %s and %s", ErrOverlappingFields, n, prev, def.ID)
			}
			if _, ok := titles[n]; !ok {
				return nil, fmt.Errorf("%w: %d", ErrUntitledField, n)
			}
			owner[n] = def.ID
		}

		def.Ordinal = i
		def.Fields = slices.Clone(def.Fields)
		if def.Prompt == nil {
			def.Prompt = Compose(def.Name, def.Fields, def.Description)
		}
		stages = append(stages, def)
	}

	fields := make([]int, 0, len(owner))
	for n := range owner {
		fields = append(fields, n)
	}
	slices.Sort(fields)

	return &Registry{
		stages: stages,
		titles: maps.Clone(titles),
		fields: fields,
	}, nil
}

// Stages returns the stages in execution order.
func (r *Registry) Stages() []Stage {
	return slices.Clone(r.stages)
}

// Stage returns the stage at index i.
func (r *Registry) Stage(i int) Stage {
	return r.stages[i]
}

// Len returns the number of stages.
func (r *Registry) Len() int {
	return len(r.stages)
}

// Fields returns every field number of the document schema in order.
func (r *Registry) Fields() []int {
	return slices.Clone(r.fields)
}

// Keys returns the wire keys of the complete schema in order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, n := range r.fields {
		keys[i] = protocol.Key(n)
	}
	return keys
}

// Title returns the canonical title of a field.
func (r *Registry) Title(n int) string {
	return r.titles[n]
}

// Titles returns the canonical title catalogue.
func (r *Registry) Titles() map[int]string {
	return maps.Clone(r.titles)
}
