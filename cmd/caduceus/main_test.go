package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/caduceus/internal/protocol"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSubject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"valid", `{"condition":"Bradiarritmia","evidence":[{"source":"ESC","kind":"guideline","text":"FC < 50"}]}`, ""},
		{"malformed", `{"condition":`, "parse subject"},
		{"empty condition", `{"condition":"  "}`, "subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "subject.json", tt.content)

			subject, err := loadSubject(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error: got %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if subject.Condition != "Bradiarritmia" || len(subject.Evidence) != 1 {
				t.Errorf("subject: got %+v", subject)
			}
		})
	}
}

func TestLoadSubjectMissingFile(t *testing.T) {
	if _, err := loadSubject(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input string
		html  bool
		want  string
	}{
		{"subjects/brady.json", false, filepath.Join("out", "brady.json")},
		{"subjects/brady.json", true, filepath.Join("out", "brady.html")},
		{"sepsis", false, filepath.Join("out", "sepsis.json")},
		{"a.b.json", true, filepath.Join("out", "a.b.html")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := outputPath("out", tt.input, tt.html); got != tt.want {
				t.Errorf("outputPath: got %s, want %s", got, tt.want)
			}
		})
	}
}

func document() *protocol.Document {
	return &protocol.Document{
		SessionID: "s-1",
		Fields: map[string]protocol.Field{
			"1": {Number: 1, Title: "Definição", Content: json.RawMessage(`"Frequência **baixa**"`)},
		},
		Confidence: 0.9,
	}
}

func TestWriteDocument(t *testing.T) {
	subject := protocol.Subject{Condition: "Bradiarritmia"}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeDocument(&buf, subject, document(), false); err != nil {
			t.Fatal(err)
		}

		var doc protocol.Document
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("output is not a document: %v", err)
		}
		if doc.SessionID != "s-1" || len(doc.Fields) != 1 {
			t.Errorf("document: got %+v", doc)
		}
	})

	t.Run("html", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeDocument(&buf, subject, document(), true); err != nil {
			t.Fatal(err)
		}

		out := buf.String()
		for _, want := range []string{"<h1>Bradiarritmia</h1>", "<strong>baixa</strong>"} {
			if !strings.Contains(out, want) {
				t.Errorf("html missing %q:\n%s", want, out)
			}
		}
	})
}

func TestPrintProgress(t *testing.T) {
	events := make(chan protocol.ProgressEvent, 3)
	events <- protocol.ProgressEvent{Type: protocol.EventProgress, Message: "Etapa 1", Percentage: 20, EstimatedRemaining: 90}
	events <- protocol.ProgressEvent{Type: protocol.EventError, Message: "Falha", Error: "timeout"}
	events <- protocol.ProgressEvent{Type: protocol.EventComplete, Message: "Concluído"}
	close(events)

	var buf bytes.Buffer
	printProgress(&buf, events)

	want := "[ 20%] Etapa 1 (~90s remaining)\n[fail] Falha: timeout\n[100%] Concluído\n"
	if buf.String() != want {
		t.Errorf("output:\ngot  %q\nwant %q", buf.String(), want)
	}
}

func TestBatchRejectsConcurrency(t *testing.T) {
	err := runBatch(t.Context(), &globalFlags{}, &batchFlags{concurrency: 0}, []string{"x.json"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "concurrency") {
		t.Errorf("error: got %v", err)
	}
}

func TestRootCommand(t *testing.T) {
	cmd := rootCmd()

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"generate", "batch", "version"} {
		if !names[want] {
			t.Errorf("missing subcommand %s", want)
		}
	}

	generate, _, err := cmd.Find([]string{"generate"})
	if err != nil {
		t.Fatal(err)
	}
	for _, flag := range []string{"session", "correlation", "instructions", "html", "output", "quiet"} {
		if generate.Flags().Lookup(flag) == nil {
			t.Errorf("generate missing --%s", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "caduceus version ") {
		t.Errorf("output: got %q", out.String())
	}
}
