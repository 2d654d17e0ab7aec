package protocol

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strconv"
)

// Fragment is the field map produced by a single stage call.
type Fragment map[string]Field

// Keys returns the fragment keys in numeric order.
func (f Fragment) Keys() []string {
	return sortKeys(maps.Keys(f))
}

// Accumulator holds the document under construction. Each key is written
// exactly once by Merge; Replace swaps values for the integration pass
// without changing the key set. An Accumulator belongs to a single run and
// is not safe for concurrent use.
type Accumulator struct {
	fields map[string]Field
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{fields: make(map[string]Field)}
}

// Hydrate rebuilds an accumulator from persisted fields.
func Hydrate(fields map[string]Field) *Accumulator {
	a := NewAccumulator()
	maps.Copy(a.fields, fields)
	return a
}

// Merge adds every field of the fragment. If any key is already present the
// accumulator is left unchanged and ErrDuplicateField is returned.
func (a *Accumulator) Merge(f Fragment) error {
	for key := range f {
		if _, ok := a.fields[key]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateField, key)
		}
	}
	maps.Copy(a.fields, f)
	return nil
}

// Replace overwrites every value with the replacement. The replacement must
// carry exactly the accumulated key set.
func (a *Accumulator) Replace(fields map[string]Field) error {
	if len(fields) != len(a.fields) {
		return fmt.Errorf("%w: have %d fields, got %d", ErrKeySetMismatch, len(a.fields), len(fields))
	}
	for key := range fields {
		if _, ok := a.fields[key]; !ok {
			return fmt.Errorf("%w: unexpected field %s", ErrKeySetMismatch, key)
		}
	}
	maps.Copy(a.fields, fields)
	return nil
}

// Has reports whether the key has been produced.
func (a *Accumulator) Has(key string) bool {
	_, ok := a.fields[key]
	return ok
}

// Get returns the field stored under key.
func (a *Accumulator) Get(key string) (Field, bool) {
	f, ok := a.fields[key]
	return f, ok
}

// Len returns the number of accumulated fields.
func (a *Accumulator) Len() int {
	return len(a.fields)
}

// Keys returns the accumulated keys in numeric order.
func (a *Accumulator) Keys() []string {
	return sortKeys(maps.Keys(a.fields))
}

// Snapshot returns a copy of the accumulated fields.
func (a *Accumulator) Snapshot() map[string]Field {
	return maps.Clone(a.fields)
}

// MarshalJSON encodes the accumulator as the canonical field map.
func (a *Accumulator) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.fields)
}

func sortKeys(seq iter.Seq[string]) []string {
	keys := slices.Collect(seq)
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na - nb
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
