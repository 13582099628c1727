package media

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/starford/coursemark/internal/models"
)

// Archiver packs an export and its media into a zip archive.
type Archiver struct {
	fetcher  Fetcher
	workers  int
	logger   *slog.Logger
	progress func(done, total int)
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithWorkers bounds the number of parallel downloads.
func WithWorkers(n int) ArchiverOption {
	return func(a *Archiver) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithProgress registers a callback invoked after each finished download.
func WithProgress(fn func(done, total int)) ArchiverOption {
	return func(a *Archiver) {
		a.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ArchiverOption {
	return func(a *Archiver) {
		a.logger = l
	}
}

// NewArchiver creates an Archiver downloading with f.
func NewArchiver(f Fetcher, opts ...ArchiverOption) *Archiver {
	a := &Archiver{fetcher: f, workers: 4, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MarkdownName is the archive entry name of the exported document.
func MarkdownName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "course"
	}
	return name + ".md"
}

// Write downloads every media file and writes the archive to w. The archive
// holds MarkdownName(title) plus each file at its destination. Any failed
// download aborts the archive.
func (a *Archiver) Write(ctx context.Context, w io.Writer, title, markdown string, files []models.MediaFileReplacement) error {
	entries := make([]string, len(files))
	for i, f := range files {
		name, err := entryName(f.Destination)
		if err != nil {
			return err
		}
		entries[i] = name
	}

	contents := make([][]byte, len(files))
	var done atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, f := range files {
		g.Go(func() error {
			a.logger.Debug("media: downloading", slog.String("source", f.Source))
			data, err := a.fetcher.Fetch(gCtx, f.Source)
			if err != nil {
				return fmt.Errorf("media: fetch %s: %w", f.Source, err)
			}
			contents[i] = data
			if a.progress != nil {
				a.progress(int(done.Add(1)), len(files))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	if err := writeEntry(zw, MarkdownName(title), []byte(markdown)); err != nil {
		return err
	}
	written := map[string]bool{}
	for i, name := range entries {
		if written[name] {
			continue
		}
		written[name] = true
		if err := writeEntry(zw, name, contents[i]); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("media: close archive: %w", err)
	}
	return nil
}

// entryName rejects destinations that would escape the archive root.
func entryName(dest string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(dest, "\\", "/"))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("media: invalid destination %q", dest)
	}
	return clean, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("media: add %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("media: write %s: %w", name, err)
	}
	return nil
}
