package protocol

import "errors"

// Sentinel errors for document model operations.
var (
	ErrEmptySubject   = errors.New("subject condition must not be empty")
	ErrDuplicateField = errors.New("field already present in accumulator")
	ErrKeySetMismatch = errors.New("replacement does not match accumulated field set")
)
