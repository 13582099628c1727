// Package exportservice coordinates the course library, the exporter and the
// export index.
package exportservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/coursemark/internal/apperr"
	"github.com/starford/coursemark/internal/checksum"
	"github.com/starford/coursemark/internal/cloze"
	"github.com/starford/coursemark/internal/diag"
	"github.com/starford/coursemark/internal/export"
	"github.com/starford/coursemark/internal/index"
	"github.com/starford/coursemark/internal/markdownify"
	"github.com/starford/coursemark/internal/media"
	"github.com/starford/coursemark/internal/models"
	"github.com/starford/coursemark/internal/parser"
	"github.com/starford/coursemark/internal/storage"
)

// CourseListItem is a lightweight item in a list response.
type CourseListItem struct {
	Path       string    `json:"path"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	Incomplete bool      `json:"incomplete"`
	ExportedAt time.Time `json:"exported_at"`
}

// CourseDetail is the full representation of an exported course.
type CourseDetail struct {
	Path       string                        `json:"path"`
	RunID      string                        `json:"run_id"`
	Slug       string                        `json:"slug"`
	Title      string                        `json:"title"`
	Checksum   string                        `json:"checksum"`
	Markdown   string                        `json:"markdown"`
	Report     json.RawMessage               `json:"report"`
	Media      []models.MediaFileReplacement `json:"media"`
	Incomplete bool                          `json:"incomplete"`
	ExportedAt time.Time                     `json:"exported_at"`
}

// Report is the stored form of an export's diagnostics.
type Report struct {
	Reports []export.LessonReport `json:"reports"`
	General []diag.Diagnostic     `json:"general"`
}

// FragmentResult is the outcome of converting a single markdown fragment.
type FragmentResult struct {
	Markdown    string                        `json:"markdown"`
	Resources   []models.MediaFileReplacement `json:"resources"`
	Diagnostics []diag.Diagnostic             `json:"diagnostics"`
}

// ClozeResult is the outcome of rewriting a cloze text.
type ClozeResult struct {
	Text   string   `json:"text"`
	Causes []string `json:"causes"`
}

// Service coordinates library, exporter and index operations.
type Service struct {
	library  storage.Provider
	output   storage.Provider
	db       index.ExportIndex
	exporter *export.Exporter
	archiver *media.Archiver
	opts     export.Options
	workers  int
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithOutput writes every library export as <bundle>.md to out.
func WithOutput(out storage.Provider) Option {
	return func(s *Service) { s.output = out }
}

// WithArchiver sets the archiver used by Archive.
func WithArchiver(a *media.Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithWorkers bounds parallel exports during Sync.
func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the clock used for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new export service. opts are the defaults applied to
// library exports and to conversions without explicit options.
func NewService(library storage.Provider, db index.ExportIndex, exp *export.Exporter, opts export.Options, options ...Option) *Service {
	s := &Service{
		library:  library,
		db:       db,
		exporter: exp,
		opts:     opts,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range options {
		o(s)
	}
	if s.archiver == nil {
		s.archiver = media.NewArchiver(media.NewHTTPFetcher(), media.WithLogger(s.logger))
	}
	return s
}

// Syncer returns an index syncer that exports library bundles through s.
func (s *Service) Syncer() *index.Syncer {
	return &index.Syncer{
		DB:          s.db,
		Store:       s.library,
		Export:      s.ExportBundle,
		Fingerprint: Fingerprint(s.opts),
		Workers:     s.workers,
		Logger:      s.logger,
	}
}

// Fingerprint identifies export options for change detection.
func Fingerprint(opts export.Options) string {
	b, err := json.Marshal(opts)
	if err != nil {
		return ""
	}
	return checksum.Sum(b)
}

// ExportBundle parses and exports one library bundle. It is the export
// function of the index syncer.
func (s *Service) ExportBundle(ctx context.Context, bundlePath string, data []byte) (index.ExportRow, error) {
	b, err := parser.ParseFile(bundlePath, data)
	if err != nil {
		return index.ExportRow{}, err
	}
	res, err := s.exporter.Export(ctx, b, s.opts)
	if err != nil {
		return index.ExportRow{}, err
	}
	report, err := json.Marshal(Report{Reports: res.Reports, General: res.General})
	if err != nil {
		return index.ExportRow{}, fmt.Errorf("exportservice: encode report: %w", err)
	}

	if s.output != nil {
		if err := s.output.Write(MarkdownPath(bundlePath), []byte(res.Markdown)); err != nil {
			return index.ExportRow{}, fmt.Errorf("exportservice: write markdown: %w", err)
		}
	}
	if res.Incomplete() {
		s.logger.Info("export incomplete",
			slog.String("path", bundlePath),
			slog.Int("diagnostics", len(res.Diagnostics())))
	}

	return index.ExportRow{
		RunID:       uuid.NewString(),
		Slug:        b.Course.Slug,
		Title:       b.Course.Title,
		Markdown:    res.Markdown,
		Diagnostics: report,
		Media:       res.MediaFiles,
		Incomplete:  res.Incomplete(),
		ExportedAt:  s.now().UTC(),
	}, nil
}

// MarkdownPath maps a bundle path to the path of its markdown export.
func MarkdownPath(bundlePath string) string {
	return strings.TrimSuffix(bundlePath, path.Ext(bundlePath)) + ".md"
}

// Convert exports a bundle that is not part of the library. A nil opts uses
// the service defaults.
func (s *Service) Convert(ctx context.Context, data []byte, format parser.Format, opts *export.Options) (*export.Result, error) {
	o := s.opts
	if opts != nil {
		o = *opts
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("%w: options: %v", apperr.ErrInvalidBundle, err)
		}
	}
	if format == "" {
		format = parser.Sniff(data)
	}
	b, err := parser.Parse(data, format)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, b, o)
}

// ConvertMarkdown runs a single markdown fragment through the section and
// code fence rewriting, using the default storage settings.
func (s *Service) ConvertMarkdown(_ context.Context, text string) FragmentResult {
	var c diag.Collector
	res := markdownify.Convert(text, markdownify.Options{
		Tag:                markdownify.TagSection,
		SanitizeFences:     true,
		StorageURLs:        s.opts.StoragesToInclude,
		StorageDestination: s.opts.StorageDestination,
	}, &c)
	return FragmentResult{
		Markdown:    res.Markdown,
		Resources:   nonNilSlice(res.Resources),
		Diagnostics: nonNilSlice(c.Records()),
	}
}

// ConvertCloze rewrites the gap directives of a cloze text.
func (s *Service) ConvertCloze(_ context.Context, text string) ClozeResult {
	causes := []string{}
	out := cloze.Rewrite(text, func(cause string) {
		causes = append(causes, cause)
	})
	return ClozeResult{Text: out, Causes: causes}
}

// ListCourses returns every indexed export.
func (s *Service) ListCourses(_ context.Context) ([]CourseListItem, error) {
	rows, err := s.db.ListExports()
	if err != nil {
		return nil, err
	}
	items := make([]CourseListItem, len(rows))
	for i, r := range rows {
		items[i] = CourseListItem{
			Path:       r.Path,
			Slug:       r.Slug,
			Title:      r.Title,
			Checksum:   r.Checksum,
			Incomplete: r.Incomplete,
			ExportedAt: r.ExportedAt,
		}
	}
	return items, nil
}

// GetCourse returns the stored export of a library bundle.
func (s *Service) GetCourse(_ context.Context, bundlePath string) (*CourseDetail, error) {
	row, err := s.db.GetExport(bundlePath)
	if err != nil {
		return nil, err
	}
	return detail(row), nil
}

// Reexport exports a library bundle now, regardless of its checksum.
func (s *Service) Reexport(ctx context.Context, bundlePath string) (*CourseDetail, error) {
	if !parser.IsBundle(bundlePath) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrUnsupportedExt, bundlePath)
	}
	row, err := s.Syncer().ExportFile(ctx, bundlePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return detail(row), nil
}

// Archive writes a zip with the stored export of a library bundle and all of
// its media files.
func (s *Service) Archive(ctx context.Context, w io.Writer, bundlePath string) error {
	row, err := s.db.GetExport(bundlePath)
	if err != nil {
		return err
	}
	return s.archiver.Write(ctx, w, row.Title, row.Markdown, row.Media)
}

// ArchiveResult writes a zip for an export that is not part of the library.
func (s *Service) ArchiveResult(ctx context.Context, w io.Writer, title string, res *export.Result) error {
	return s.archiver.Write(ctx, w, title, res.Markdown, res.MediaFiles)
}

// CreateBundle validates content, adds it to the library and exports it.
func (s *Service) CreateBundle(ctx context.Context, bundlePath string, content []byte) (*CourseDetail, error) {
	if _, err := s.library.Read(bundlePath); err == nil {
		return nil, apperr.ErrAlreadyExists
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return s.storeBundle(ctx, bundlePath, content)
}

// UpdateBundle replaces a library bundle with optimistic concurrency:
// a non-empty ifMatch must equal the checksum of the stored file.
func (s *Service) UpdateBundle(ctx context.Context, bundlePath string, content []byte, ifMatch string) (*CourseDetail, error) {
	existing, err := s.library.Read(bundlePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	return s.storeBundle(ctx, bundlePath, content)
}

// DeleteBundle removes a bundle from the library and the index.
func (s *Service) DeleteBundle(_ context.Context, bundlePath string) error {
	if err := s.library.Delete(bundlePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	s.removeMarkdown(bundlePath)
	return s.db.DeleteExport(bundlePath)
}

// MoveBundle renames a library bundle and moves its export along.
func (s *Service) MoveBundle(ctx context.Context, from, to string) (*CourseDetail, error) {
	if !parser.IsBundle(to) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrUnsupportedExt, to)
	}
	if _, err := s.library.Read(to); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.library.Move(from, to); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	s.removeMarkdown(from)
	if err := s.db.DeleteExport(from); err != nil {
		return nil, err
	}
	return s.Reexport(ctx, to)
}

// removeMarkdown drops the written export of a bundle that left the library.
func (s *Service) removeMarkdown(bundlePath string) {
	if s.output == nil {
		return
	}
	if err := s.output.Delete(MarkdownPath(bundlePath)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove markdown export failed",
			slog.String("path", bundlePath),
			slog.String("error", err.Error()))
	}
}

func (s *Service) storeBundle(ctx context.Context, bundlePath string, content []byte) (*CourseDetail, error) {
	if _, err := parser.ParseFile(bundlePath, content); err != nil {
		return nil, err
	}
	if err := s.library.Write(bundlePath, content); err != nil {
		return nil, err
	}
	row, err := s.Syncer().ExportFile(ctx, bundlePath)
	if err != nil {
		return nil, err
	}
	return detail(row), nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

func detail(r *index.ExportRow) *CourseDetail {
	return &CourseDetail{
		Path:       r.Path,
		RunID:      r.RunID,
		Slug:       r.Slug,
		Title:      r.Title,
		Checksum:   r.Checksum,
		Markdown:   r.Markdown,
		Report:     r.Diagnostics,
		Media:      nonNilSlice(r.Media),
		Incomplete: r.Incomplete,
		ExportedAt: r.ExportedAt,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
