package stages

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/caduceus/internal/protocol"
)

// PromptInput carries everything a stage prompt may draw on.
type PromptInput struct {
	Subject      protocol.Subject
	Summary      string
	Instructions string
	Titles       map[int]string
	Completed    []string
}

// Compose returns a prompt function that combines the subject, the optional
// context summary and list of drafted fields, the rendered evidence, the
// stage guidance and the output contract for the stage's fields.
func Compose(name string, fields []int, guidance string) func(PromptInput) string {
	return func(in PromptInput) string {
		var sb strings.Builder

		fmt.Fprintf(&sb, "Medical Condition: %s\n\n", in.Subject.Condition)

		if in.Summary != "" {
			sb.WriteString("Context from Previous Fields:\n")
			sb.WriteString(in.Summary)
			sb.WriteString("\n\n")
		}

		if len(in.Completed) > 0 {
			fmt.Fprintf(&sb, "Fields Already Drafted: %s\n\n", strings.Join(in.Completed, ", "))
		}

		sb.WriteString("Research Findings:\n")
		sb.WriteString(RenderEvidence(in.Subject.Evidence))
		sb.WriteString("\n\n")

		fmt.Fprintf(&sb, "Current Task: Generate %s (Fields %s)\n\n", name, joinInts(fields))
		for _, n := range fields {
			if title, ok := in.Titles[n]; ok {
				fmt.Fprintf(&sb, "- %d. %s\n", n, title)
			}
		}
		sb.WriteString("\n")
		sb.WriteString(guidance)
		sb.WriteString("\n\n")

		if in.Instructions != "" {
			sb.WriteString("Specific Instructions:\n")
			sb.WriteString(in.Instructions)
			sb.WriteString("\n\n")
		}

		sb.WriteString(OutputSpec(fields))
		return sb.String()
	}
}

// RenderEvidence formats findings one per line as "- source (kind): text".
func RenderEvidence(findings []protocol.Finding) string {
	if len(findings) == 0 {
		return "(none provided)"
	}

	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = fmt.Sprintf("- %s (%s): %s", f.Source, f.Kind, f.Text)
	}
	return strings.Join(lines, "\n")
}

// OutputSpec describes the JSON contract a stage response must satisfy.
func OutputSpec(fields []int) string {
	keys := make([]string, len(fields))
	for i, n := range fields {
		keys[i] = fmt.Sprintf("%q", protocol.Key(n))
	}

	return fmt.Sprintf(`Output format: a single JSON object with exactly the keys %s.
Each value is an object with "fieldNumber" (integer), "title" (string) and "content" (string or structured object).
Do not include any other keys and do not add text before or after the JSON.`, strings.Join(keys, ", "))
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = protocol.Key(n)
	}
	return strings.Join(parts, ", ")
}
