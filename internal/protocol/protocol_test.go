package protocol_test

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/JaimeStill/caduceus/internal/protocol"
)

func field(n int, title, content string) protocol.Field {
	raw, _ := json.Marshal(content)
	return protocol.Field{Number: n, Title: title, Content: raw}
}

func TestFieldNumberNormalization(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"number", `{"fieldNumber":3,"title":"t","content":"c"}`, 3, false},
		{"numeric string", `{"fieldNumber":"3","title":"t","content":"c"}`, 3, false},
		{"padded string", `{"fieldNumber":" 12 ","title":"t","content":"c"}`, 12, false},
		{"legacy key", `{"sectionNumber":"7","title":"t","content":"c"}`, 7, false},
		{"missing", `{"title":"t","content":"c"}`, 0, false},
		{"non-numeric string", `{"fieldNumber":"three","title":"t","content":"c"}`, 0, true},
		{"boolean", `{"fieldNumber":true,"title":"t","content":"c"}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f protocol.Field
			err := json.Unmarshal([]byte(tt.input), &f)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && f.Number != tt.want {
				t.Errorf("Number = %d, want %d", f.Number, tt.want)
			}
		})
	}
}

func TestFieldStructuredContent(t *testing.T) {
	var f protocol.Field
	input := `{"fieldNumber":5,"title":"Criteria","content":{"inclusion":["a","b"]}}`
	if err := json.Unmarshal([]byte(input), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !f.HasContent() {
		t.Error("structured content should count as content")
	}
	if got := f.Text(); got != `{"inclusion":["a","b"]}` {
		t.Errorf("Text() = %s", got)
	}
}

func TestFieldHasContent(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{`"text"`, true},
		{`""`, false},
		{`null`, false},
		{`{}`, false},
		{`[]`, false},
		{``, false},
		{`{"a":1}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			f := protocol.Field{Number: 1, Title: "t", Content: json.RawMessage(tt.content)}
			if got := f.HasContent(); got != tt.want {
				t.Errorf("HasContent(%s) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestAccumulatorMerge(t *testing.T) {
	acc := protocol.NewAccumulator()

	first := protocol.Fragment{"1": field(1, "a", "x"), "2": field(2, "b", "y")}
	if err := acc.Merge(first); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	second := protocol.Fragment{"3": field(3, "c", "z")}
	if err := acc.Merge(second); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if got := acc.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
}

func TestAccumulatorMergeRejectsDuplicate(t *testing.T) {
	acc := protocol.NewAccumulator()
	if err := acc.Merge(protocol.Fragment{"1": field(1, "a", "x")}); err != nil {
		t.Fatal(err)
	}

	overlap := protocol.Fragment{"1": field(1, "a", "other"), "2": field(2, "b", "y")}
	err := acc.Merge(overlap)
	if !errors.Is(err, protocol.ErrDuplicateField) {
		t.Fatalf("error = %v, want ErrDuplicateField", err)
	}

	if acc.Has("2") {
		t.Error("rejected merge must leave the accumulator unchanged")
	}
	if f, _ := acc.Get("1"); f.Text() != "x" {
		t.Errorf("field 1 overwritten: %q", f.Text())
	}
}

func TestAccumulatorReplace(t *testing.T) {
	acc := protocol.Hydrate(map[string]protocol.Field{
		"1": field(1, "a", "x"),
		"2": field(2, "b", "y"),
	})

	t.Run("same key set", func(t *testing.T) {
		err := acc.Replace(map[string]protocol.Field{
			"1": field(1, "a", "x2"),
			"2": field(2, "b", "y2"),
		})
		if err != nil {
			t.Fatalf("Replace: %v", err)
		}
		if f, _ := acc.Get("2"); f.Text() != "y2" {
			t.Errorf("field 2 = %q, want y2", f.Text())
		}
	})

	t.Run("added key", func(t *testing.T) {
		err := acc.Replace(map[string]protocol.Field{
			"1": field(1, "a", "x"),
			"2": field(2, "b", "y"),
			"3": field(3, "c", "z"),
		})
		if !errors.Is(err, protocol.ErrKeySetMismatch) {
			t.Errorf("error = %v, want ErrKeySetMismatch", err)
		}
	})

	t.Run("swapped key", func(t *testing.T) {
		err := acc.Replace(map[string]protocol.Field{
			"1": field(1, "a", "x"),
			"9": field(9, "i", "z"),
		})
		if !errors.Is(err, protocol.ErrKeySetMismatch) {
			t.Errorf("error = %v, want ErrKeySetMismatch", err)
		}
	})
}

func TestAccumulatorKeysNumericOrder(t *testing.T) {
	acc := protocol.NewAccumulator()
	frag := protocol.Fragment{}
	for _, n := range []int{11, 2, 13, 1, 10} {
		frag[protocol.Key(n)] = field(n, "t", "c")
	}
	if err := acc.Merge(frag); err != nil {
		t.Fatal(err)
	}

	want := []string{"1", "2", "10", "11", "13"}
	if got := acc.Keys(); !slices.Equal(got, want) {
		t.Errorf("Keys = %v, want %v", got, want)
	}
}

func TestAccumulatorSnapshotIsCopy(t *testing.T) {
	acc := protocol.Hydrate(map[string]protocol.Field{"1": field(1, "a", "x")})
	snap := acc.Snapshot()
	snap["2"] = field(2, "b", "y")

	if acc.Has("2") {
		t.Error("mutating a snapshot must not affect the accumulator")
	}
}

func TestSessionCapture(t *testing.T) {
	acc := protocol.Hydrate(map[string]protocol.Field{"1": field(1, "a", "x")})
	s := protocol.NewSession("s-1")
	s.SetSummary(1, "digest")
	s.Capture(acc)

	if len(s.Fields) != 1 {
		t.Errorf("Fields = %d, want 1", len(s.Fields))
	}
	if s.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped")
	}

	clone := s.Clone()
	clone.SetSummary(2, "other")
	if _, ok := s.Summary(2); ok {
		t.Error("clone shares summaries with original")
	}
}

func TestSubjectValidate(t *testing.T) {
	if err := (protocol.Subject{Condition: "  "}).Validate(); !errors.Is(err, protocol.ErrEmptySubject) {
		t.Errorf("error = %v, want ErrEmptySubject", err)
	}
	if err := (protocol.Subject{Condition: "Sepse"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
