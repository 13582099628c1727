package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/coursemark/internal/diag"
	"github.com/starford/coursemark/internal/export"
	"github.com/starford/coursemark/internal/parser"
)

// ExportFile exports the bundle at in to the markdown file out and writes a
// human-readable report of degraded content to report. An empty out writes
// next to the bundle.
func ExportFile(ctx context.Context, in, out string, report io.Writer, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	res, _, err := app.exportBundle(ctx, in, logger)
	if err != nil {
		return err
	}
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".md"
	}
	if err := os.WriteFile(out, []byte(res.Markdown), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("exported", slog.String("bundle", in), slog.String("markdown", out))

	writeReport(report, res)
	return nil
}

// ArchiveFile exports the bundle at in and writes a zip with the markdown
// and every media file to out. An empty out writes next to the bundle.
func ArchiveFile(ctx context.Context, in, out string, report io.Writer, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	res, title, err := app.exportBundle(ctx, in, logger)
	if err != nil {
		return err
	}
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".zip"
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := app.archiver(logger).Write(ctx, f, title, res.Markdown, res.MediaFiles); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}
	logger.Info("archived",
		slog.String("bundle", in),
		slog.String("archive", out),
		slog.Int("media_files", len(res.MediaFiles)))

	writeReport(report, res)
	return nil
}

// exportBundle returns the export result and the course title.
func (a *application) exportBundle(ctx context.Context, in string, logger *slog.Logger) (*export.Result, string, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, "", fmt.Errorf("read bundle: %w", err)
	}
	b, err := parser.ParseFile(in, data)
	if err != nil {
		return nil, "", err
	}
	res, err := a.exporter(logger).Export(ctx, b, a.config.Export.Options)
	if err != nil {
		return nil, "", err
	}
	return res, b.Course.Title, nil
}

// writeReport prints one line per diagnostic, grouped by lesson.
func writeReport(w io.Writer, res *export.Result) {
	if w == nil || !res.Incomplete() {
		return
	}
	fmt.Fprintln(w, "export incomplete:")
	for _, d := range res.General {
		fmt.Fprintf(w, "  course: %s\n", diag.Message(d))
	}
	for _, rep := range res.Reports {
		for _, d := range rep.Missed {
			fmt.Fprintf(w, "  lesson %q (%s): %s\n", rep.Lesson.Name, rep.Lesson.ID, diag.Message(d))
		}
	}
}
