package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/coursemark/internal/exportservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *exportservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Exports.
	r.Get("/courses", h.ListCourses)
	r.Get("/courses/*", h.GetCourse)
	r.Post("/courses/*", h.ExportCourse)
	r.Get("/archives/*", h.ArchiveCourse)

	// Library.
	r.Post("/library", h.CreateBundle)
	r.Post("/library/move", h.MoveBundle)
	r.Put("/library/*", h.UpdateBundle)
	r.Delete("/library/*", h.DeleteBundle)

	// Stateless conversion.
	r.Post("/convert", h.Convert)
	r.Post("/convert/markdown", h.ConvertMarkdown)
	r.Post("/convert/cloze", h.ConvertCloze)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
