// Package quiz converts lesson quizzes into LiaScript quiz snippets.
package quiz

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/starford/coursemark/internal/cloze"
	"github.com/starford/coursemark/internal/diag"
	"github.com/starford/coursemark/internal/markdownify"
	"github.com/starford/coursemark/internal/models"
)

const (
	fence = "```"

	// freeTextScript accepts any non-blank input.
	freeTextScript = "\n<script>\nlet input = \"@input\".trim()\ninput != \"\"</script>\n"

	// runnableLanguage is the only language LiaScript can execute in the
	// browser without extra macros.
	runnableLanguage = "javascript"
)

// Markdownify prepares a snippet for the target document, typically
// markdownify.Convert bound to the lesson's options and diagnostics.
type Markdownify func(text string) string

// Option configures Convert.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
}

// WithLogger sets the logger that notes skipped questions.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// Convert returns one snippet per recognized question, in order. Unsupported
// features are reported to sink. Questions of an unknown type are skipped.
func Convert(q models.Quiz, md Markdownify, sink diag.Sink, opts ...Option) []string {
	cfg := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if md == nil {
		md = func(s string) string { return s }
	}
	if sink == nil {
		sink = diag.Discard
	}

	out := make([]string, 0, len(q.Questions))
	var withHints, withSolution bool

	for i, question := range q.Questions {
		switch v := question.(type) {
		case models.MultipleChoice:
			out = append(out, multipleChoice(v, md))
		case models.Exact:
			out = append(out, exact(v, md))
		case models.Text:
			out = append(out, text(v, md))
		case models.Cloze:
			out = append(out, clozeText(v, i, md, sink))
		case models.Programming:
			out = append(out, programming(v, i, md, sink))
			withHints = withHints || len(v.Hints) > 0
			withSolution = withSolution || v.SolutionTemplate != ""
		case models.Unrecognized:
			cfg.logger.Debug("quiz: skipping question",
				slog.Int("index", i),
				slog.String("id", v.ID),
				slog.String("type", v.Type))
		default:
			cfg.logger.Debug("quiz: skipping question",
				slog.Int("index", i),
				slog.String("id", question.Common().ID))
		}
	}

	if withHints {
		sink.Report(diag.ProgrammingQuiz{Cause: diag.CauseHintsUnsupported})
	}
	if withSolution {
		sink.Report(diag.ProgrammingQuiz{Cause: diag.CauseUnsupportedSolution})
	}
	return out
}

func multipleChoice(q models.MultipleChoice, md Markdownify) string {
	var b strings.Builder
	b.WriteString(q.Statement)
	b.WriteString("\n\n")
	for _, a := range q.Answers {
		if a.IsCorrect {
			b.WriteString("- [[x]] ")
		} else {
			b.WriteString("- [[ ]] ")
		}
		b.WriteString(a.Content)
		b.WriteString("\n")
	}
	b.WriteString(hints(q.Hints))
	return md(b.String())
}

func exact(q models.Exact, md Markdownify) string {
	first := ""
	if len(q.AcceptedAnswers) > 0 {
		first = q.AcceptedAnswers[0].Value
	}
	return md(q.Statement + "\n\n" +
		"- [[" + first + "]]\n" +
		hints(q.Hints) +
		acceptScript(q.AcceptedAnswers))
}

func text(q models.Text, md Markdownify) string {
	return md(q.Statement + "\n\n" +
		"- [[Freitext]]\n" +
		hints(q.Hints) +
		freeTextScript)
}

func clozeText(q models.Cloze, index int, md Markdownify, sink diag.Sink) string {
	body := cloze.Rewrite(q.ClozeText, func(cause string) {
		switch cause {
		case cloze.CauseMultipleAnswers:
			cause = diag.CauseUnsupportedAnswer
		case cloze.CauseUnterminated:
			cause = diag.CauseUnterminatedGap
		case cloze.CauseEmpty:
			cause = diag.CauseEmptyGap
		}
		sink.Report(diag.ClozeText{Index: index, QuestionID: q.ID, Cause: cause})
	})
	return md(q.Statement + "\n\n" + body)
}

func programming(q models.Programming, index int, md Markdownify, sink diag.Sink) string {
	var b strings.Builder
	b.WriteString(fence + q.Language + "\n")
	if q.Mode == models.ModeStandalone {
		b.WriteString("\n\n")
	} else {
		b.WriteString(q.SolutionTemplate)
	}
	b.WriteString("\n" + fence + "\n")

	if q.Language == runnableLanguage {
		b.WriteString("<script>@input</script>\n")
	} else {
		sink.Report(diag.Programming{
			Index:      index,
			QuestionID: q.ID,
			Cause:      diag.CauseUnsupportedLanguage,
			Language:   q.Language,
		})
	}
	return md(q.Statement + "\n\n" + b.String())
}

// hints renders one "[[?]]" line per hint.
func hints(hs []models.Hint) string {
	lines := make([]string, len(hs))
	for i, h := range hs {
		lines[i] = "[[?]] " + markdownify.ToPlainText(h.Content)
	}
	return strings.Join(lines, "\n")
}

// acceptScript builds a LiaScript check that accepts any of the answers.
func acceptScript(answers []models.AcceptedAnswer) string {
	var b strings.Builder
	b.WriteString("<script>\nlet input = \"@input\".trim()\n")
	if len(answers) == 0 {
		b.WriteString("false\n")
	}
	for i, a := range answers {
		b.WriteString("input == " + strconv.Quote(a.Value))
		if i == len(answers)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ||")
		}
	}
	b.WriteString("</script>\n")
	return b.String()
}
