package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/internal/render"
)

func TestField(t *testing.T) {
	tests := []struct {
		name    string
		field   protocol.Field
		want    []string
		notWant []string
	}{
		{
			name: "markdown content",
			field: protocol.Field{
				Number:  4,
				Title:   "Critérios <Inclusão>",
				Content: json.RawMessage(`"**FC < 50 bpm**\n\n- síncope\n- hipotensão"`),
			},
			want: []string{
				`<section id="field-4">`,
				"<h2>4. Critérios &lt;Inclusão&gt;</h2>",
				"<strong>FC &lt; 50 bpm</strong>",
				"<li>síncope</li>",
			},
		},
		{
			name: "markdown table",
			field: protocol.Field{
				Number:  7,
				Title:   "Tratamento",
				Content: json.RawMessage(`"| Droga | Dose |\n|---|---|\n| Atropina | 1 mg |"`),
			},
			want: []string{"<table>", "<td>Atropina</td>"},
		},
		{
			name: "structured content",
			field: protocol.Field{
				Number:  13,
				Title:   "Referências",
				Content: json.RawMessage(`{"itens":["<SBC 2023>"]}`),
			},
			want:    []string{"<pre>{\n  &#34;itens&#34;: [\n    &#34;&lt;SBC 2023&gt;&#34;\n  ]\n}</pre>"},
			notWant: []string{"<SBC 2023>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := render.Field(&buf, tt.field); err != nil {
				t.Fatalf("Field: %v", err)
			}

			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, bad := range tt.notWant {
				if strings.Contains(out, bad) {
					t.Errorf("output contains unescaped %q", bad)
				}
			}
		})
	}
}

func TestHTMLOrdersFields(t *testing.T) {
	doc := &protocol.Document{
		Fields: map[string]protocol.Field{
			"10": {Number: 10, Title: "Dez", Content: json.RawMessage(`"d"`)},
			"2":  {Number: 2, Title: "Dois", Content: json.RawMessage(`"b"`)},
			"1":  {Number: 1, Title: "Um", Content: json.RawMessage(`"a"`)},
		},
		Warnings: []string{"integração ignorada"},
	}

	var buf bytes.Buffer
	if err := render.HTML(&buf, "Bradiarritmia", doc); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	one := strings.Index(out, "field-1\"")
	two := strings.Index(out, "field-2\"")
	ten := strings.Index(out, "field-10\"")
	if one < 0 || two < 0 || ten < 0 || one >= two || two >= ten {
		t.Errorf("fields not in numeric order: %d %d %d", one, two, ten)
	}

	if !strings.Contains(out, "<title>Bradiarritmia</title>") {
		t.Error("title missing")
	}
	if !strings.Contains(out, `<p class="warning">integração ignorada</p>`) {
		t.Error("warning missing")
	}
}
