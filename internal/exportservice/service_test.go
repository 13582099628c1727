package exportservice

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/coursemark/internal/apperr"
	"github.com/starford/coursemark/internal/checksum"
	"github.com/starford/coursemark/internal/diag"
	"github.com/starford/coursemark/internal/export"
	"github.com/starford/coursemark/internal/media"
	"github.com/starford/coursemark/internal/parser"
	"github.com/starford/coursemark/internal/storage"
	"github.com/starford/coursemark/internal/testutil"
)

type nopFetcher struct{}

func (nopFetcher) Fetch(context.Context, string) ([]byte, error) { return []byte("bin"), nil }

func newTestService(t *testing.T) (string, storage.Provider, *Service) {
	t.Helper()
	libDir, lib := testutil.TestLibrary(t)
	_, out := testutil.TestLibrary(t)
	fixed := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	exp := export.New(nil, export.WithClock(func() time.Time { return fixed }))
	svc := NewService(lib, testutil.TestDB(t), exp, export.DefaultOptions(),
		WithOutput(out),
		WithArchiver(media.NewArchiver(nopFetcher{})),
		WithClock(func() time.Time { return fixed }),
	)
	return libDir, out, svc
}

func TestSyncExportsLibrary(t *testing.T) {
	libDir, out, svc := newTestService(t)
	testutil.WriteBundle(t, libDir, "courses/java.json", testutil.SampleBundle)

	stats, err := svc.Syncer().Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Exported != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	items, err := svc.ListCourses(context.Background())
	if err != nil {
		t.Fatalf("ListCourses: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Java Basics" || items[0].Slug != "java" || !items[0].Incomplete {
		t.Fatalf("items = %+v", items)
	}

	md, err := out.Read("courses/java.md")
	if err != nil {
		t.Fatalf("markdown not written: %v", err)
	}
	if !strings.Contains(string(md), "Lernzielkontrolle") {
		t.Errorf("markdown = %q", md)
	}
}

func TestGetCourseReport(t *testing.T) {
	libDir, _, svc := newTestService(t)
	testutil.WriteBundle(t, libDir, "java.json", testutil.SampleBundle)
	if _, err := svc.Syncer().Sync(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	d, err := svc.GetCourse(context.Background(), "java.json")
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if d.RunID == "" || !d.ExportedAt.Equal(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("detail = %+v", d)
	}

	var rep struct {
		Reports []struct {
			Lesson struct {
				ID string `json:"id"`
			} `json:"lesson"`
			Missed []map[string]any `json:"missed"`
		} `json:"reports"`
	}
	if err := json.Unmarshal(d.Report, &rep); err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(rep.Reports) != 1 || rep.Reports[0].Lesson.ID != "l1" {
		t.Fatalf("report = %s", d.Report)
	}
	missed := rep.Reports[0].Missed
	if len(missed) != 1 || missed[0]["type"] != diag.KindClozeText || missed[0]["cause"] != diag.CauseUnsupportedAnswer {
		t.Errorf("missed = %v", missed)
	}

	if _, err := svc.GetCourse(context.Background(), "other.json"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReexport(t *testing.T) {
	libDir, _, svc := newTestService(t)
	testutil.WriteBundle(t, libDir, "java.yaml", "course:\n  slug: java\n  title: Java\n")

	d, err := svc.Reexport(context.Background(), "java.yaml")
	if err != nil {
		t.Fatalf("Reexport: %v", err)
	}
	if d.Title != "Java" || d.Incomplete {
		t.Errorf("detail = %+v", d)
	}

	if _, err := svc.Reexport(context.Background(), "gone.json"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Reexport(context.Background(), "notes.md"); !errors.Is(err, apperr.ErrUnsupportedExt) {
		t.Errorf("expected ErrUnsupportedExt, got %v", err)
	}
}

func TestConvert(t *testing.T) {
	_, _, svc := newTestService(t)

	res, err := svc.Convert(context.Background(), []byte(testutil.SampleBundle), "", nil)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.Contains(res.Markdown, "Java Basics") || !res.Incomplete() {
		t.Errorf("result = %+v", res)
	}

	opts := export.DefaultOptions()
	opts.Narrator = "robot"
	if _, err := svc.Convert(context.Background(), []byte(testutil.SampleBundle), parser.FormatJSON, &opts); !errors.Is(err, apperr.ErrInvalidBundle) {
		t.Errorf("expected ErrInvalidBundle for bad options, got %v", err)
	}

	if _, err := svc.Convert(context.Background(), []byte("course: ["), parser.FormatYAML, nil); !errors.Is(err, apperr.ErrInvalidBundle) {
		t.Errorf("expected ErrInvalidBundle, got %v", err)
	}
}

func TestConvertFragments(t *testing.T) {
	_, _, svc := newTestService(t)

	frag := svc.ConvertMarkdown(context.Background(), "# A\ntext")
	if !strings.Contains(frag.Markdown, "<section>") || len(frag.Diagnostics) != 0 {
		t.Errorf("fragment = %+v", frag)
	}

	cl := svc.ConvertCloze(context.Background(), "x {T: [a, b]} y {C: [#r, w]}")
	if len(cl.Causes) != 1 || cl.Causes[0] != diag.CauseUnsupportedAnswer {
		t.Errorf("causes = %v", cl.Causes)
	}
	if !strings.HasPrefix(cl.Text, "x ") || !strings.HasSuffix(cl.Text, " y [[(r)| w]]") {
		t.Errorf("text = %q", cl.Text)
	}
}

func TestArchive(t *testing.T) {
	libDir, _, svc := newTestService(t)
	testutil.WriteBundle(t, libDir, "java.json", testutil.SampleBundle)
	if _, err := svc.Syncer().Sync(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := svc.Archive(context.Background(), &buf, "java.json"); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != media.MarkdownName("Java Basics") {
		t.Errorf("entries = %v", zr.File)
	}
}

func TestFingerprintTracksOptions(t *testing.T) {
	a := export.DefaultOptions()
	b := export.DefaultOptions()
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("equal options should have equal fingerprints")
	}
	b.Language = "en"
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("fingerprint should change with options")
	}
}

func TestMarkdownPath(t *testing.T) {
	for in, want := range map[string]string{"java.json": "java.md", "a/b.yml": "a/b.md", "c.yaml": "c.md"} {
		if got := MarkdownPath(in); got != want {
			t.Errorf("MarkdownPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBundleLifecycle(t *testing.T) {
	_, _, svc := newTestService(t)
	ctx := context.Background()
	v1 := []byte("course:\n  slug: go\n  title: Go\n")
	v2 := []byte("course:\n  slug: go\n  title: Go 2\n")

	d, err := svc.CreateBundle(ctx, "go.yaml", v1)
	if err != nil {
		t.Fatalf("CreateBundle: %v", err)
	}
	if d.Title != "Go" {
		t.Errorf("title = %q", d.Title)
	}
	if _, err := svc.CreateBundle(ctx, "go.yaml", v1); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := svc.CreateBundle(ctx, "bad.json", []byte(`{"course": {}}`)); !errors.Is(err, apperr.ErrInvalidBundle) {
		t.Errorf("expected ErrInvalidBundle, got %v", err)
	}

	if _, err := svc.UpdateBundle(ctx, "go.yaml", v2, "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	d, err = svc.UpdateBundle(ctx, "go.yaml", v2, checksum.Sum(v1))
	if err != nil {
		t.Fatalf("UpdateBundle: %v", err)
	}
	if d.Title != "Go 2" {
		t.Errorf("title = %q", d.Title)
	}

	d, err = svc.MoveBundle(ctx, "go.yaml", "lang/go.yaml")
	if err != nil {
		t.Fatalf("MoveBundle: %v", err)
	}
	if d.Path != "lang/go.yaml" {
		t.Errorf("path = %q", d.Path)
	}
	if _, err := svc.GetCourse(ctx, "go.yaml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old export should be gone, got %v", err)
	}

	if err := svc.DeleteBundle(ctx, "lang/go.yaml"); err != nil {
		t.Fatalf("DeleteBundle: %v", err)
	}
	if err := svc.DeleteBundle(ctx, "lang/go.yaml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	items, _ := svc.ListCourses(ctx)
	if len(items) != 0 {
		t.Errorf("items = %+v", items)
	}
}
