package media

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/coursemark/internal/models"
)

type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	data, ok := m[rawURL]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func readArchive(t *testing.T, buf []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	require.NoError(t, err)
	out := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		out[f.Name] = string(data)
	}
	return out
}

func TestArchiver_Write(t *testing.T) {
	fetch := mapFetcher{
		"https://s.example.org/a.png": []byte("A"),
		"https://s.example.org/b.mp4": []byte("B"),
	}
	files := []models.MediaFileReplacement{
		{Source: "https://s.example.org/a.png", Destination: "media/java/a.png"},
		{Source: "https://s.example.org/b.mp4", Destination: "media/java/b.mp4"},
		{Source: "https://s.example.org/a.png", Destination: "media/java/a.png"},
	}

	var mu sync.Mutex
	var calls []int
	arch := NewArchiver(fetch, WithWorkers(2), WithProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		calls = append(calls, done)
	}))

	var buf bytes.Buffer
	require.NoError(t, arch.Write(context.Background(), &buf, "Java", "# Java", files))

	assert.Equal(t, map[string]string{
		"Java.md":          "# Java",
		"media/java/a.png": "A",
		"media/java/b.mp4": "B",
	}, readArchive(t, buf.Bytes()))
	assert.ElementsMatch(t, []int{1, 2, 3}, calls)
}

func TestArchiver_FetchErrorAborts(t *testing.T) {
	arch := NewArchiver(mapFetcher{})
	err := arch.Write(context.Background(), io.Discard, "x", "", []models.MediaFileReplacement{
		{Source: "https://gone.example.org/a.png", Destination: "media/a.png"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone.example.org")
}

func TestArchiver_RejectsEscapingDestination(t *testing.T) {
	arch := NewArchiver(mapFetcher{"u": nil})
	for _, dest := range []string{"../evil", "/etc/passwd", "..", ""} {
		err := arch.Write(context.Background(), io.Discard, "x", "", []models.MediaFileReplacement{{Source: "u", Destination: dest}})
		assert.Error(t, err, dest)
	}
}

func TestMarkdownName(t *testing.T) {
	assert.Equal(t, "Java Basics.md", MarkdownName(" Java Basics "))
	assert.Equal(t, "a_b_c.md", MarkdownName("a/b\\c"))
	assert.Equal(t, "course.md", MarkdownName(""))
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write([]byte("png-bytes"))
		case "/big":
			_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	_, err := f.Fetch(context.Background(), srv.URL+"/ok.png")
	require.Error(t, err, "loopback must be blocked by default")

	f.AllowLoopback = true
	data, err := f.Fetch(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "HTTP 404")

	f.MaxFileSize = 10
	_, err = f.Fetch(context.Background(), srv.URL+"/big")
	assert.ErrorContains(t, err, "too large")

	_, err = f.Fetch(context.Background(), "ftp://example.org/x")
	assert.ErrorContains(t, err, "unsupported scheme")
}
