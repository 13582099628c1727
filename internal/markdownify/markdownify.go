// Package markdownify fixes markdown fragments for the LiaScript dialect:
// headers are wrapped in balanced block tags so they do not start new slides,
// code fences lose annotations LiaScript does not understand, and images on
// known storage servers are rewritten to paths inside the export.
package markdownify

import (
	"strings"

	"github.com/starford/coursemark/internal/diag"
	"github.com/starford/coursemark/internal/models"
)

// Tag is the wrapper element emitted around header sections.
type Tag string

const (
	TagSection Tag = "section"
	TagArticle Tag = "article"
	TagDiv     Tag = "div"
)

// Options controls Convert.
type Options struct {
	Tag            Tag
	SanitizeFences bool
	// StorageURLs are absolute URL prefixes whose images are rewritten to
	// StorageDestination.
	StorageURLs        []string
	StorageDestination string
}

// DefaultOptions wraps headers in <section> and sanitizes code fences.
func DefaultOptions() Options {
	return Options{Tag: TagSection, SanitizeFences: true}
}

// Result is the converted fragment and the storage files it now refers to.
type Result struct {
	Markdown  string
	Resources []models.MediaFileReplacement
}

// Convert rewrites a markdown fragment. Unsupported code fence styles are
// reported to sink as a single article diagnostic.
func Convert(text string, opts Options, sink diag.Sink) Result {
	if opts.Tag == "" {
		opts.Tag = TagSection
	}
	if sink == nil {
		sink = diag.Discard
	}

	open := "<" + string(opts.Tag) + ">\n"
	closing := "</" + string(opts.Tag) + ">\n"

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+8)
	levels := []int{0}
	inFence := false
	var causes []string

	for _, line := range lines {
		if strings.HasPrefix(line, fenceMarker) {
			if !inFence && opts.SanitizeFences && len(line) > len(fenceMarker) {
				f := sanitizeFence(line)
				out = append(out, f.markers...)
				line = f.line
				if f.unsupported != "" {
					causes = append(causes, diag.CauseUnsupportedCodeStyle+": "+f.unsupported)
				}
			}
			inFence = !inFence
			out = append(out, line)
			continue
		}

		if inFence || !strings.HasPrefix(line, "#") {
			out = append(out, line)
			continue
		}

		// Close every open section at this depth or deeper, then open one
		// for the header. This covers siblings (one close), deeper headers
		// (no close) and shallower headers (a close per level given up).
		level := headerLevel(line)
		for levels[len(levels)-1] >= level {
			levels = levels[:len(levels)-1]
			out = append(out, closing)
		}
		out = append(out, open)
		levels = append(levels, level)
		out = append(out, line)
	}

	for len(levels) > 1 {
		levels = levels[:len(levels)-1]
		out = append(out, closing)
	}

	if len(causes) > 0 {
		sink.Report(diag.Article{Causes: causes})
	}

	markdown := strings.TrimSpace(strings.Join(out, "\n"))
	if len(opts.StorageURLs) == 0 {
		return Result{Markdown: markdown, Resources: []models.MediaFileReplacement{}}
	}
	markdown, resources := RemoveStorageURLs(markdown, opts.StorageURLs, opts.StorageDestination)
	return Result{Markdown: markdown, Resources: resources}
}

// headerLevel counts the leading '#' characters of line.
func headerLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	return n
}
