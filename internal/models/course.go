// Package models defines the domain types for coursemark.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Bundle is one exportable unit: a course plus every lesson its chapters may
// reference.
type Bundle struct {
	Course  Course   `json:"course" yaml:"course"`
	Lessons []Lesson `json:"lessons" yaml:"lessons"`
}

// Validate checks the fields the exporter relies on.
func (b *Bundle) Validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Course),
		validation.Field(&b.Lessons),
	)
}

// LessonsByID indexes the bundle's lessons by id. Later duplicates win.
func (b *Bundle) LessonsByID() map[string]Lesson {
	out := make(map[string]Lesson, len(b.Lessons))
	for _, l := range b.Lessons {
		out[l.LessonID] = l
	}
	return out
}

// Course is the root of the content tree.
type Course struct {
	CourseID        string    `json:"courseId" yaml:"courseId"`
	Slug            string    `json:"slug" yaml:"slug"`
	Title           string    `json:"title" yaml:"title"`
	Subtitle        string    `json:"subtitle,omitempty" yaml:"subtitle"`
	Description     string    `json:"description,omitempty" yaml:"description"`
	ImgURL          string    `json:"imgUrl,omitempty" yaml:"imgUrl"`
	Authors         []Author  `json:"authors" yaml:"authors"`
	Subject         *Topic    `json:"subject,omitempty" yaml:"subject"`
	Specializations []Topic   `json:"specializations,omitempty" yaml:"specializations"`
	Content         []Chapter `json:"content" yaml:"content"`
}

// Validate checks the course header.
func (c Course) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.Slug, validation.Required),
	)
}

// Author of a course.
type Author struct {
	DisplayName string `json:"displayName" yaml:"displayName"`
	Email       string `json:"email,omitempty" yaml:"email"`
}

// Topic is a subject or specialization label.
type Topic struct {
	Title string `json:"title" yaml:"title"`
}

// Chapter groups lesson references.
type Chapter struct {
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description,omitempty" yaml:"description"`
	Content     []LessonRef `json:"content" yaml:"content"`
}

// LessonRef points at a lesson in the bundle.
type LessonRef struct {
	LessonID string `json:"lessonId" yaml:"lessonId"`
}

// Lesson is a single learning unit ("nano module").
type Lesson struct {
	LessonID              string         `json:"lessonId" yaml:"lessonId"`
	Slug                  string         `json:"slug" yaml:"slug"`
	Title                 string         `json:"title" yaml:"title"`
	Subtitle              string         `json:"subtitle,omitempty" yaml:"subtitle"`
	Description           string         `json:"description,omitempty" yaml:"description"`
	SelfRegulatedQuestion string         `json:"selfRegulatedQuestion,omitempty" yaml:"selfRegulatedQuestion"`
	Content               []ContentBlock `json:"content" yaml:"content"`
	Quiz                  *Quiz          `json:"quiz,omitempty" yaml:"quiz"`
}

// Validate checks the lesson identity.
func (l Lesson) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.LessonID, validation.Required),
		validation.Field(&l.Title, validation.Required),
	)
}

// FindContent returns the first content block of type t.
func (l Lesson) FindContent(t ContentType) (ContentBlock, bool) {
	for _, c := range l.Content {
		if c.Type == t {
			return c, true
		}
	}
	return ContentBlock{}, false
}

// ContentType tags a lesson content block.
type ContentType string

const (
	ContentVideo   ContentType = "video"
	ContentArticle ContentType = "article"
	ContentPDF     ContentType = "pdf"
	ContentIFrame  ContentType = "iframe"
)

// ContentBlock is a piece of lesson media. Videos and PDFs carry a URL,
// articles carry markdown content.
type ContentBlock struct {
	Type  ContentType  `json:"type" yaml:"type"`
	Value ContentValue `json:"value" yaml:"value"`
}

// ContentValue is the payload of a ContentBlock.
type ContentValue struct {
	URL     string `json:"url,omitempty" yaml:"url"`
	Content string `json:"content,omitempty" yaml:"content"`
}

// MediaFileReplacement records an absolute storage URL that was rewritten to
// a path relative to the exported document.
type MediaFileReplacement struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// BundleMetadata describes a bundle file in the course library.
type BundleMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
