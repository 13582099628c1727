// Package diag records content features that the LiaScript dialect cannot
// express faithfully. Records are append-only and are read by the caller once
// an export has finished.
package diag

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Causes reported by the transpiler.
const (
	CauseUnsupportedCodeStyle = "unsupportedCodeStyle"
	CauseUnsupportedLanguage  = "unsupportedLanguage"
	CauseHintsUnsupported     = "hintsUnsupported"
	CauseUnsupportedSolution  = "unsupportedSolution"
	CauseUnsupportedAnswer    = "unsupportedAnswerType"
	CauseUnterminatedGap      = "unterminatedGap"
	CauseEmptyGap             = "emptyGap"
)

// Kinds of diagnostics, as written to the "type" field in JSON.
const (
	KindArticle         = "article"
	KindProgramming     = "programming"
	KindProgrammingQuiz = "programmingUnspecific"
	KindClozeText       = "clozeText"
)

// Diagnostic is one unsupported-feature record. The set of implementations is
// closed; switch on the concrete type to handle each kind.
type Diagnostic interface {
	Kind() string
	diagnostic()
}

// Article reports markdown constructs that were dropped or degraded.
type Article struct {
	Causes []string `json:"cause"`
}

// Programming reports a problem with a single programming question.
type Programming struct {
	Index      int    `json:"index"`
	QuestionID string `json:"id"`
	Cause      string `json:"cause"`
	Language   string `json:"language,omitempty"`
}

// ProgrammingQuiz reports a programming feature once for a whole quiz.
type ProgrammingQuiz struct {
	Cause string `json:"cause"`
}

// ClozeText reports a gap that could not be exported as authored.
type ClozeText struct {
	Index      int    `json:"index"`
	QuestionID string `json:"id"`
	Cause      string `json:"cause"`
}

func (Article) Kind() string         { return KindArticle }
func (Programming) Kind() string     { return KindProgramming }
func (ProgrammingQuiz) Kind() string { return KindProgrammingQuiz }
func (ClozeText) Kind() string       { return KindClozeText }

func (Article) diagnostic()         {}
func (Programming) diagnostic()     {}
func (ProgrammingQuiz) diagnostic() {}
func (ClozeText) diagnostic()       {}

// MarshalJSON adds the "type" discriminator.
func (d Article) MarshalJSON() ([]byte, error) {
	type plain Article
	return tagged(d.Kind(), plain(d))
}

// MarshalJSON adds the "type" discriminator.
func (d Programming) MarshalJSON() ([]byte, error) {
	type plain Programming
	return tagged(d.Kind(), plain(d))
}

// MarshalJSON adds the "type" discriminator.
func (d ProgrammingQuiz) MarshalJSON() ([]byte, error) {
	type plain ProgrammingQuiz
	return tagged(d.Kind(), plain(d))
}

// MarshalJSON adds the "type" discriminator.
func (d ClozeText) MarshalJSON() ([]byte, error) {
	type plain ClozeText
	return tagged(d.Kind(), plain(d))
}

func tagged(kind string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(kind)
	return json.Marshal(fields)
}

// Message renders a human-readable explanation of d.
func Message(d Diagnostic) string {
	switch v := d.(type) {
	case Article:
		if len(v.Causes) == 1 {
			return "article could not be exported completely, unsupported element: " + v.Causes[0]
		}
		return "article could not be exported completely, unsupported elements: " + strings.Join(v.Causes, ", ")
	case Programming:
		if v.Cause == CauseUnsupportedLanguage {
			return fmt.Sprintf("programming task %d is not executable, no runtime for %q", v.Index+1, v.Language)
		}
		return fmt.Sprintf("programming task %d: %s", v.Index+1, v.Cause)
	case ProgrammingQuiz:
		switch v.Cause {
		case CauseHintsUnsupported:
			return "hints cannot be exported for programming tasks"
		case CauseUnsupportedSolution:
			return "automated solution checks cannot be exported for programming tasks"
		}
		return "programming tasks: " + v.Cause
	case ClozeText:
		switch v.Cause {
		case CauseUnsupportedAnswer:
			return fmt.Sprintf("cloze text %d: gaps with several accepted answers were reduced to their first answer", v.Index+1)
		case CauseUnterminatedGap:
			return fmt.Sprintf("cloze text %d: a gap is never closed and was kept as plain text", v.Index+1)
		case CauseEmptyGap:
			return fmt.Sprintf("cloze text %d: a gap has no answer and was kept as plain text", v.Index+1)
		}
		return fmt.Sprintf("cloze text %d: %s", v.Index+1, v.Cause)
	}
	return "unknown problem"
}

// Sink accepts diagnostics.
type Sink interface {
	Report(d Diagnostic)
}

// Collector is an append-only Sink. The zero value is ready to use.
// A Collector is not safe for concurrent use; each export owns its own.
type Collector struct {
	records []Diagnostic
}

// Report appends d.
func (c *Collector) Report(d Diagnostic) {
	c.records = append(c.records, d)
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int {
	return len(c.records)
}

// Records returns a copy of everything recorded so far, in order.
func (c *Collector) Records() []Diagnostic {
	out := make([]Diagnostic, len(c.records))
	copy(out, c.records)
	return out
}

// Discard drops every report.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}
