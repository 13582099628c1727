// Package testutil provides shared test helpers for setting up course
// libraries and export databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/coursemark/internal/index"
	"github.com/starford/coursemark/internal/storage"
)

// SampleBundle is a small course bundle with one chapter, one lesson and a
// cloze question whose text gap has several answers, so exports of it are
// reported as incomplete.
const SampleBundle = `{
  "course": {
    "courseId": "c1", "slug": "java", "title": "Java Basics",
    "description": "Learn **Java**.",
    "authors": [{"displayName": "Ada", "email": "ada@example.org"}],
    "content": [{"title": "Intro", "content": [{"lessonId": "l1"}, {"lessonId": "missing"}]}]
  },
  "lessons": [{
    "lessonId": "l1", "slug": "hello", "title": "Hello World",
    "content": [{"type": "article", "value": {"content": "## Variables\nint x = 1;"}}],
    "quiz": {"questions": [
      {"type": "cloze", "questionId": "q1", "statement": "Fill in",
       "clozeText": "A {T: [int, Integer]} holds numbers.", "hints": []}
    ]}
  }]
}`

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "coursemark-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary course library with a storage.Provider.
func TestLibrary(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteBundle writes data to rel inside the library dir.
func WriteBundle(t *testing.T, dir, rel, data string) {
	t.Helper()
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}
