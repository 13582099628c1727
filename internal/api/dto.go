package api

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/coursemark/internal/export"
	"github.com/starford/coursemark/internal/exportservice"
	"github.com/starford/coursemark/internal/parser"
)

// CreateBundleRequest is the request body for adding a bundle to the library.
type CreateBundleRequest struct {
	Path    string `json:"path" example:"java/course.json" validate:"required"`
	Content string `json:"content" example:"{\"course\": {...}}" validate:"required"`
}

// Validate validates the request.
func (r CreateBundleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

// UpdateBundleRequest is the request body for replacing a library bundle.
type UpdateBundleRequest struct {
	Content string `json:"content" validate:"required"`
}

// Validate validates the request.
func (r UpdateBundleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
	)
}

// MoveBundleRequest is the request body for renaming a library bundle.
type MoveBundleRequest struct {
	From string `json:"from" example:"draft.json" validate:"required"`
	To   string `json:"to" example:"java/course.json" validate:"required"`
}

// Validate validates the request.
func (r MoveBundleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.From, validation.Required),
		validation.Field(&r.To, validation.Required),
	)
}

// ConvertRequest is the request body of a stateless bundle conversion.
// Bundle holds the JSON or YAML text of the bundle; Format is detected when
// empty. Options override the configured export options.
type ConvertRequest struct {
	Bundle  string          `json:"bundle" validate:"required"`
	Format  string          `json:"format,omitempty" example:"yaml"`
	Options *export.Options `json:"options,omitempty"`
}

// Validate validates the request.
func (r ConvertRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Bundle, validation.Required),
		validation.Field(&r.Format, validation.In(string(parser.FormatJSON), string(parser.FormatYAML))),
	)
}

// FragmentRequest carries a markdown or cloze fragment.
type FragmentRequest struct {
	Text string `json:"text" example:"{T: [answer]}" validate:"required"`
}

// Validate validates the request.
func (r FragmentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required),
	)
}

// ConvertResponse is the result of a stateless conversion. Messages holds a
// human-readable line per diagnostic.
type ConvertResponse struct {
	*export.Result
	Incomplete bool     `json:"incomplete"`
	Messages   []string `json:"messages"`
}

// CourseDetail is the full export response type (aliased from the domain layer).
type CourseDetail = exportservice.CourseDetail

// CourseListItem is a lightweight item in a list response (aliased from the domain layer).
type CourseListItem = exportservice.CourseListItem

// CourseListResponse wraps course listings.
type CourseListResponse struct {
	Courses []CourseListItem `json:"courses" validate:"required"`
	Total   int              `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"java/course.json" validate:"required"`
	Title   string `json:"title" example:"Java Basics" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

func decodeJSON(data []byte, v interface{ Validate() error }) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	return v.Validate()
}
