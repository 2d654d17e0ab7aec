package formatting_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/JaimeStill/caduceus/pkg/formatting"
)

type sample struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unfenced", `{"a":1}`, `{"a":1}`},
		{"unfenced with whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"uppercase tag", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"no tag", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"single line", "```json {\"a\":1} ```", `{"a":1}`},
		{"opening fence only", "```json\n{\"a\":1}", `{"a":1}`},
		{"closing fence only", "{\"a\":1}\n```", `{"a":1}`},
		{"crlf line endings", "```json\r\n{\"a\":1}\r\n```", `{"a":1}`},
		{"plain text", "not json at all", "not json at all"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatting.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("direct JSON", func(t *testing.T) {
		got, err := formatting.Parse[sample](`{"name":"test","value":42}`)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "test" || got.Value != 42 {
			t.Errorf("Parse = %+v, want {Name:test Value:42}", got)
		}
	})

	t.Run("fenced and unfenced decode identically", func(t *testing.T) {
		plain, err := formatting.Parse[sample](`{"name":"x","value":7}`)
		if err != nil {
			t.Fatalf("Parse plain: %v", err)
		}
		fenced, err := formatting.Parse[sample]("```json\n{\"name\":\"x\",\"value\":7}\n```")
		if err != nil {
			t.Fatalf("Parse fenced: %v", err)
		}
		if plain != fenced {
			t.Errorf("fenced = %+v, plain = %+v", fenced, plain)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := formatting.Parse[sample]("the model refused")
		if !errors.Is(err, formatting.ErrParseFailed) {
			t.Errorf("error = %v, want ErrParseFailed", err)
		}
	})
}

func TestParseObject(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		obj, err := formatting.ParseObject("```json\n{\"1\":{\"title\":\"a\"},\"2\":{}}\n```")
		if err != nil {
			t.Fatalf("ParseObject error: %v", err)
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		if len(keys) != 2 {
			t.Errorf("keys = %v, want 2 entries", keys)
		}
	})

	t.Run("fenced equals unfenced", func(t *testing.T) {
		a, err := formatting.ParseObject(`{"1":{"title":"a"}}`)
		if err != nil {
			t.Fatal(err)
		}
		b, err := formatting.ParseObject("```\n{\"1\":{\"title\":\"a\"}}\n```")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("fenced %v != unfenced %v", b, a)
		}
	})

	rejects := []struct {
		name  string
		input string
	}{
		{"array", `[1,2,3]`},
		{"scalar", `42`},
		{"null", `null`},
		{"truncated", `{"1": {"title": "a"`},
	}

	for _, tt := range rejects {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			if _, err := formatting.ParseObject(tt.input); !errors.Is(err, formatting.ErrParseFailed) {
				t.Errorf("error = %v, want ErrParseFailed", err)
			}
		})
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"512", 512, false},
		{"1KB", 1024, false},
		{"1 mb", 1024 * 1024, false},
		{"1.5KB", 1536, false},
		{"", 0, true},
		{"ten", 0, true},
		{"5XB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
