// Package render turns an assembled document into LiaScript markdown.
package render

import (
	"context"
	"strings"
)

// MaxIndent is the deepest header level markdown supports.
const MaxIndent = 6

// Meta is the LiaScript header comment. Empty fields are omitted.
type Meta struct {
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Email    string `json:"email,omitempty"`
	Date     string `json:"date,omitempty"`
	Version  string `json:"version,omitempty"`
	Narrator string `json:"narrator,omitempty"`
	Comment  string `json:"comment,omitempty"`
	Logo     string `json:"logo,omitempty"`
}

// Section is one slide of the course. Indent is the header level.
type Section struct {
	Title  string   `json:"title"`
	Indent int      `json:"indent"`
	Body   []string `json:"body,omitempty"`
}

// Document is a complete course ready to be rendered.
type Document struct {
	Meta     Meta      `json:"meta"`
	Sections []Section `json:"sections"`
}

// Renderer serializes a Document.
type Renderer interface {
	Render(ctx context.Context, doc Document) (string, error)
}

// ClampIndent limits n to 1..MaxIndent.
func ClampIndent(n int) int {
	return max(1, min(n, MaxIndent))
}

// LiaScript renders documents as a single LiaScript markdown file.
type LiaScript struct{}

// Render writes the meta comment followed by every section in order.
func (LiaScript) Render(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	writeMeta(&b, doc.Meta)

	for _, s := range doc.Sections {
		b.WriteString("\n")
		b.WriteString(strings.Repeat("#", ClampIndent(s.Indent)))
		b.WriteString(" ")
		b.WriteString(singleLine(s.Title))
		b.WriteString("\n")
		for _, part := range s.Body {
			if strings.TrimSpace(part) == "" {
				continue
			}
			b.WriteString("\n")
			b.WriteString(part)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func writeMeta(b *strings.Builder, m Meta) {
	fields := [][2]string{
		{"title", m.Title},
		{"author", m.Author},
		{"email", m.Email},
		{"date", m.Date},
		{"version", m.Version},
		{"narrator", m.Narrator},
		{"comment", m.Comment},
		{"logo", m.Logo},
	}

	b.WriteString("<!--\n")
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		b.WriteString(f[0])
		b.WriteString(": ")
		b.WriteString(singleLine(f[1]))
		b.WriteString("\n")
	}
	b.WriteString("-->\n")
}

// singleLine keeps a value on one line and out of the comment terminator.
func singleLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "-->", "--&gt;")
}
