// Package render converts a generated document to a standalone HTML page.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/JaimeStill/caduceus/internal/protocol"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML writes doc as an HTML page. String content is rendered as markdown;
// structured content is written as indented JSON inside <pre>.
func HTML(w io.Writer, title string, doc *protocol.Document) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html lang=\"pt-BR\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title))
	fmt.Fprintf(&buf, "<h1>%s</h1>\n", html.EscapeString(title))

	for _, warning := range doc.Warnings {
		fmt.Fprintf(&buf, "<p class=\"warning\">%s</p>\n", html.EscapeString(warning))
	}

	acc := protocol.Hydrate(doc.Fields)
	for _, key := range acc.Keys() {
		f, _ := acc.Get(key)
		if err := Field(&buf, f); err != nil {
			return fmt.Errorf("render field %s: %w", key, err)
		}
	}

	buf.WriteString("</body>\n</html>\n")

	_, err := buf.WriteTo(w)
	return err
}

// Field writes one field as a section.
func Field(w io.Writer, f protocol.Field) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "<section id=\"field-%d\">\n<h2>%d. %s</h2>\n", f.Number, f.Number, html.EscapeString(f.Title))

	var text string
	if err := json.Unmarshal(f.Content, &text); err == nil {
		if err := markdown.Convert([]byte(text), &buf); err != nil {
			return err
		}
	} else {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, f.Content, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(f.Content)
		}
		fmt.Fprintf(&buf, "<pre>%s</pre>\n", html.EscapeString(pretty.String()))
	}

	buf.WriteString("</section>\n")

	_, err := buf.WriteTo(w)
	return err
}
