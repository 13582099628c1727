package api

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/coursemark/internal/diag"
	"github.com/starford/coursemark/internal/exportservice"
	"github.com/starford/coursemark/internal/media"
	"github.com/starford/coursemark/internal/parser"
)

const maxBodySize = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *exportservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *exportservice.Service) *Handler {
	return &Handler{svc: svc}
}

// bundlePath extracts the bundle path from the URL (everything after the
// route prefix). Supports encoded slashes from OpenAPI clients
// (e.g. java%2Fcourse.json).
func bundlePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// readRequest reads a size-limited body and decodes it into v.
func readRequest(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		badRequest(w, "failed to read body")
		return false
	}
	if err := decodeJSON(body, v); err != nil {
		badRequest(w, "invalid request: "+err.Error())
		return false
	}
	return true
}

// ListCourses handles GET /api/courses.
//
//	@Summary		List exported courses
//	@Tags			courses
//	@Produce		json
//	@Success		200		{object}	CourseListResponse
//	@Security		BearerAuth
//	@Router			/courses [get]
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListCourses(r.Context())
	if err != nil {
		writeError(w, "list courses", "", err)
		return
	}
	if items == nil {
		items = []CourseListItem{}
	}
	writeJSON(w, http.StatusOK, CourseListResponse{Courses: items, Total: len(items)})
}

// GetCourse handles GET /api/courses/*.
//
//	@Summary		Get the export of a library bundle
//	@Tags			courses
//	@Produce		json
//	@Param			path	path		string	true	"Bundle path"
//	@Success		200		{object}	CourseDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses/{path} [get]
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	path := bundlePath(r)
	if path == "" {
		badRequest(w, "path is required")
		return
	}
	d, err := h.svc.GetCourse(r.Context(), path)
	if err != nil {
		writeError(w, "get course", path, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(d.Checksum))
	writeJSON(w, http.StatusOK, d)
}

// ExportCourse handles POST /api/courses/*.
//
//	@Summary		Export a library bundle now
//	@Tags			courses
//	@Produce		json
//	@Param			path	path		string	true	"Bundle path"
//	@Success		200		{object}	CourseDetail
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses/{path} [post]
func (h *Handler) ExportCourse(w http.ResponseWriter, r *http.Request) {
	path := bundlePath(r)
	if path == "" {
		badRequest(w, "path is required")
		return
	}
	d, err := h.svc.Reexport(r.Context(), path)
	if err != nil {
		writeError(w, "export course", path, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ArchiveCourse handles GET /api/archives/*.
//
//	@Summary		Download an exported course with its media as zip
//	@Tags			courses
//	@Produce		application/zip
//	@Param			path	path		string	true	"Bundle path"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/archives/{path} [get]
func (h *Handler) ArchiveCourse(w http.ResponseWriter, r *http.Request) {
	path := bundlePath(r)
	if path == "" {
		badRequest(w, "path is required")
		return
	}
	d, err := h.svc.GetCourse(r.Context(), path)
	if err != nil {
		writeError(w, "archive course", path, err)
		return
	}
	// Buffer so a failed download can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.svc.Archive(r.Context(), &buf, path); err != nil {
		slog.Error("archive course failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody(codeMediaDownload, "media download failed"))
		return
	}
	name := strings.TrimSuffix(media.MarkdownName(d.Title), ".md") + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// CreateBundle handles POST /api/library.
//
//	@Summary		Add a bundle to the library and export it
//	@Tags			library
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateBundleRequest	true	"Bundle to add"
//	@Success		201		{object}	CourseDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/library [post]
func (h *Handler) CreateBundle(w http.ResponseWriter, r *http.Request) {
	var req CreateBundleRequest
	if !readRequest(w, r, &req) {
		return
	}
	d, err := h.svc.CreateBundle(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeError(w, "create bundle", req.Path, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateBundle handles PUT /api/library/*.
//
//	@Summary		Replace a library bundle with optimistic concurrency
//	@Tags			library
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Bundle path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum of the stored bundle"
//	@Param			body		body	UpdateBundleRequest	true	"New content"
//	@Success		200		{object}	CourseDetail
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/library/{path} [put]
func (h *Handler) UpdateBundle(w http.ResponseWriter, r *http.Request) {
	path := bundlePath(r)
	if path == "" {
		badRequest(w, "path is required")
		return
	}
	var req UpdateBundleRequest
	if !readRequest(w, r, &req) {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	d, err := h.svc.UpdateBundle(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		writeError(w, "update bundle", path, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteBundle handles DELETE /api/library/*.
//
//	@Summary		Remove a bundle and its export
//	@Tags			library
//	@Param			path	path	string	true	"Bundle path"
//	@Success		204		"Bundle deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/library/{path} [delete]
func (h *Handler) DeleteBundle(w http.ResponseWriter, r *http.Request) {
	path := bundlePath(r)
	if path == "" {
		badRequest(w, "path is required")
		return
	}
	if err := h.svc.DeleteBundle(r.Context(), path); err != nil {
		writeError(w, "delete bundle", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveBundle handles POST /api/library/move.
//
//	@Summary		Rename a library bundle
//	@Tags			library
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveBundleRequest	true	"Old and new path"
//	@Success		200		{object}	CourseDetail
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/library/move [post]
func (h *Handler) MoveBundle(w http.ResponseWriter, r *http.Request) {
	var req MoveBundleRequest
	if !readRequest(w, r, &req) {
		return
	}
	d, err := h.svc.MoveBundle(r.Context(), req.From, req.To)
	if err != nil {
		writeError(w, "move bundle", req.From, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Convert handles POST /api/convert.
//
//	@Summary		Export a bundle without storing it
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConvertRequest	true	"Bundle and options"
//	@Success		200		{object}	ConvertResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if !readRequest(w, r, &req) {
		return
	}
	res, err := h.svc.Convert(r.Context(), []byte(req.Bundle), parser.Format(req.Format), req.Options)
	if err != nil {
		writeError(w, "convert", "", err)
		return
	}
	diags := res.Diagnostics()
	msgs := make([]string, len(diags))
	for i, d := range diags {
		msgs[i] = diag.Message(d)
	}
	writeJSON(w, http.StatusOK, ConvertResponse{Result: res, Incomplete: res.Incomplete(), Messages: msgs})
}

// ConvertMarkdown handles POST /api/convert/markdown.
//
//	@Summary		Convert a markdown fragment to LiaScript
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FragmentRequest	true	"Fragment"
//	@Success		200		{object}	exportservice.FragmentResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert/markdown [post]
func (h *Handler) ConvertMarkdown(w http.ResponseWriter, r *http.Request) {
	var req FragmentRequest
	if !readRequest(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ConvertMarkdown(r.Context(), req.Text))
}

// ConvertCloze handles POST /api/convert/cloze.
//
//	@Summary		Rewrite gap directives of a cloze text
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FragmentRequest	true	"Cloze text"
//	@Success		200		{object}	exportservice.ClozeResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert/cloze [post]
func (h *Handler) ConvertCloze(w http.ResponseWriter, r *http.Request) {
	var req FragmentRequest
	if !readRequest(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ConvertCloze(r.Context(), req.Text))
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across exported courses
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		badRequest(w, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(codeInternal, "internal error"))
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult(res)
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}
