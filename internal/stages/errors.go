package stages

import "errors"

// Registry construction errors.
var (
	ErrEmptyStage        = errors.New("stage declares no fields")
	ErrOverlappingFields = errors.New("field declared by more than one stage")
	ErrDuplicateStage    = errors.New("stage id already registered")
	ErrUntitledField     = errors.New("field has no title")
	ErrNoStages          = errors.New("registry requires at least one stage")
)
