package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/internal/render"
)

func loadSubject(path string) (protocol.Subject, error) {
	var subject protocol.Subject

	data, err := os.ReadFile(path)
	if err != nil {
		return subject, fmt.Errorf("read subject: %w", err)
	}
	if err := json.Unmarshal(data, &subject); err != nil {
		return subject, fmt.Errorf("parse subject %s: %w", path, err)
	}
	if err := subject.Validate(); err != nil {
		return subject, fmt.Errorf("subject %s: %w", path, err)
	}
	return subject, nil
}

func writeDocument(w io.Writer, subject protocol.Subject, doc *protocol.Document, html bool) error {
	if html {
		return render.HTML(w, subject.Condition, doc)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// outputPath names the document after its subject file.
func outputPath(dir, subjectPath string, html bool) string {
	base := strings.TrimSuffix(filepath.Base(subjectPath), filepath.Ext(subjectPath))
	ext := ".json"
	if html {
		ext = ".html"
	}
	return filepath.Join(dir, base+ext)
}

func printProgress(w io.Writer, events <-chan protocol.ProgressEvent) {
	for e := range events {
		switch e.Type {
		case protocol.EventProgress:
			fmt.Fprintf(w, "[%3d%%] %s (~%ds remaining)\n", e.Percentage, e.Message, e.EstimatedRemaining)
		case protocol.EventComplete:
			fmt.Fprintf(w, "[100%%] %s\n", e.Message)
		case protocol.EventError:
			fmt.Fprintf(w, "[fail] %s: %s\n", e.Message, e.Error)
		}
	}
}
