// Package export assembles a course bundle into one LiaScript document.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/coursemark/internal/diag"
	"github.com/starford/coursemark/internal/markdownify"
	"github.com/starford/coursemark/internal/models"
	"github.com/starford/coursemark/internal/quiz"
	"github.com/starford/coursemark/internal/render"
)

// Section titles of the generated document.
const (
	titleVideo   = "Video"
	titleArticle = "Artikel"
	titlePDF     = "PDF"
	titleQuiz    = "Lernzielkontrolle"

	metaVersion = "1.0"
)

// LessonInfo identifies a lesson in a report.
type LessonInfo struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// LessonReport lists what could not be exported faithfully for one lesson.
type LessonReport struct {
	Lesson LessonInfo        `json:"lesson"`
	Missed []diag.Diagnostic `json:"missed"`
}

// Result of an export.
type Result struct {
	Markdown   string                        `json:"markdown"`
	MediaFiles []models.MediaFileReplacement `json:"mediaFiles"`
	Reports    []LessonReport                `json:"reports"`
	// General holds diagnostics raised outside of any lesson, e.g. by the
	// course or chapter descriptions.
	General []diag.Diagnostic `json:"general"`
}

// Incomplete reports whether anything was degraded.
func (r *Result) Incomplete() bool {
	return len(r.Reports) > 0 || len(r.General) > 0
}

// Diagnostics returns every diagnostic of the export in document order,
// general ones first.
func (r *Result) Diagnostics() []diag.Diagnostic {
	out := append([]diag.Diagnostic{}, r.General...)
	for _, rep := range r.Reports {
		out = append(out, rep.Missed...)
	}
	return out
}

// Exporter turns bundles into LiaScript documents.
type Exporter struct {
	renderer render.Renderer
	now      func() time.Time
	logger   *slog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithClock sets the clock used for the meta date.
func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) {
		e.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		e.logger = l
	}
}

// New creates an Exporter. A nil renderer uses render.LiaScript.
func New(r render.Renderer, opts ...ExporterOption) *Exporter {
	if r == nil {
		r = render.LiaScript{}
	}
	e := &Exporter{renderer: r, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export assembles b and renders it once. Unsupported content never fails an
// export; it is reported in the result.
func (e *Exporter) Export(ctx context.Context, b *models.Bundle, opts Options) (*Result, error) {
	if opts.StorageDestination == "" {
		opts.StorageDestination = "media/" + b.Course.Slug + "/"
	}

	a := &assembly{
		opts:    opts,
		course:  b.Course,
		lessons: b.LessonsByID(),
		logger:  e.logger,
	}
	a.doc.Meta = a.meta(e.now())

	if opts.AddTitlePage {
		a.titlePage()
	}
	baseIndent := 1
	if opts.AddTitlePage {
		baseIndent = 2
	}
	for _, ch := range b.Course.Content {
		a.chapter(ch, baseIndent)
	}

	markdown, err := e.renderer.Render(ctx, a.doc)
	if err != nil {
		return nil, fmt.Errorf("export: render %q: %w", b.Course.Slug, err)
	}

	return &Result{
		Markdown:   markdown,
		MediaFiles: a.mediaFiles(),
		Reports:    nonNil(a.reports),
		General:    nonNil(a.general.Records()),
	}, nil
}

// assembly is the state of a single export.
type assembly struct {
	opts    Options
	course  models.Course
	lessons map[string]models.Lesson
	logger  *slog.Logger

	doc     render.Document
	media   []models.MediaFileReplacement
	reports []LessonReport
	general diag.Collector
}

func (a *assembly) meta(now time.Time) render.Meta {
	c := a.course
	names := make([]string, 0, len(c.Authors))
	mails := make([]string, 0, len(c.Authors))
	for _, au := range c.Authors {
		names = append(names, au.DisplayName)
		if au.Email != "" {
			mails = append(mails, au.Email)
		}
	}

	m := render.Meta{
		Title:    c.Title,
		Author:   strings.Join(names, ", "),
		Date:     now.Format(dateLayout(a.opts.Language)),
		Version:  metaVersion,
		Narrator: SelectNarrator(a.opts.Language, a.opts.Narrator),
		Logo:     c.ImgURL,
	}
	if a.opts.ExportMailAddresses {
		m.Email = strings.Join(mails, ", ")
	}
	if c.Description != "" {
		text, res := markdownify.RemoveStorageURLs(markdownify.ToPlainText(c.Description), a.opts.StoragesToInclude, a.opts.StorageDestination)
		m.Comment = text
		a.media = append(a.media, res...)
	}
	return m
}

// markdownify converts a fragment, collecting its media files and reporting
// diagnostics to sink.
func (a *assembly) markdownify(text string, sink diag.Sink) string {
	res := markdownify.Convert(text, markdownify.Options{
		Tag:                markdownify.TagSection,
		SanitizeFences:     true,
		StorageURLs:        a.opts.StoragesToInclude,
		StorageDestination: a.opts.StorageDestination,
	}, sink)
	a.media = append(a.media, res.Resources...)
	return res.Markdown
}

// relativize maps a media URL into the export if it is hosted on an included
// storage.
func (a *assembly) relativize(url string) string {
	rel, mf, ok := markdownify.Relativize(url, a.opts.StoragesToInclude, a.opts.StorageDestination)
	if ok {
		a.media = append(a.media, mf)
	}
	return rel
}

func (a *assembly) add(title string, indent int, body ...string) {
	a.doc.Sections = append(a.doc.Sections, render.Section{
		Title:  title,
		Indent: render.ClampIndent(indent),
		Body:   body,
	})
}

func (a *assembly) titlePage() {
	c := a.course
	var body []string
	if c.Subtitle != "" {
		body = append(body, a.markdownify(c.Subtitle, &a.general))
	}
	if c.ImgURL != "" {
		body = append(body, "![Course Logo]("+a.relativize(c.ImgURL)+")")
	}
	if c.Description != "" {
		body = append(body, a.markdownify(c.Description, &a.general))
	}
	if a.opts.ConsiderTopics {
		if c.Subject != nil && c.Subject.Title != "" {
			body = append(body, "**Fach:** "+c.Subject.Title)
		}
		if n := len(c.Specializations); n > 0 {
			label := "Spezialisierung"
			if n > 1 {
				label = "Spezialisierungen"
			}
			titles := make([]string, n)
			for i, s := range c.Specializations {
				titles[i] = s.Title
			}
			body = append(body, "**"+label+":** "+strings.Join(titles, ", "))
		}
	}
	a.add(c.Title, 1, body...)
}

func (a *assembly) chapter(ch models.Chapter, indent int) {
	var body []string
	if ch.Description != "" {
		body = append(body, a.markdownify(ch.Description, &a.general))
	}
	a.add(ch.Title, indent, body...)

	for _, ref := range ch.Content {
		lesson, ok := a.lessons[ref.LessonID]
		if !ok {
			a.logger.Debug("export: lesson not in bundle",
				slog.String("chapter", ch.Title),
				slog.String("lesson_id", ref.LessonID))
			continue
		}
		a.lesson(lesson, render.ClampIndent(indent+1))
	}
}

func (a *assembly) lesson(l models.Lesson, indent int) {
	var missed diag.Collector
	md := func(s string) string { return a.markdownify(s, &missed) }

	var body []string
	if l.Subtitle != "" {
		body = append(body, md(l.Subtitle))
	}
	if l.Description != "" {
		body = append(body, md(l.Description))
	}
	if l.SelfRegulatedQuestion != "" {
		body = append(body, md("**Aktivierungsfrage:** "+l.SelfRegulatedQuestion))
	}
	a.add(l.Title, indent, body...)

	inner := indent + 1
	if c, ok := l.FindContent(models.ContentVideo); ok {
		a.add(titleVideo, inner, "!?[Video]("+a.relativize(c.Value.URL)+")")
	}
	if c, ok := l.FindContent(models.ContentArticle); ok {
		a.add(titleArticle, inner, md(c.Value.Content))
	}
	if c, ok := l.FindContent(models.ContentPDF); ok {
		a.add(titlePDF, inner, a.relativize(c.Value.URL))
	}
	if l.Quiz != nil {
		a.add(titleQuiz, inner, quiz.Convert(*l.Quiz, md, &missed, quiz.WithLogger(a.logger))...)
	}

	if missed.Len() > 0 {
		a.reports = append(a.reports, LessonReport{
			Lesson: LessonInfo{Name: l.Title, ID: l.LessonID, Slug: l.Slug},
			Missed: missed.Records(),
		})
	}
}

// mediaFiles returns the collected media, each source once.
func (a *assembly) mediaFiles() []models.MediaFileReplacement {
	seen := make(map[models.MediaFileReplacement]bool, len(a.media))
	out := make([]models.MediaFileReplacement, 0, len(a.media))
	for _, m := range a.media {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
