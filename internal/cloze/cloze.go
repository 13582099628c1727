// Package cloze rewrites gap directives embedded in lesson text into
// LiaScript quiz gaps.
//
// A free-text gap is written {T: [answer, alternative]} and becomes
// [[ answer]]. A selection gap is written {C: [#right, wrong]} and becomes
// [[(right)| wrong]]. Directives may contain unrelated brace groups, for
// example LaTeX, and may appear inside them.
package cloze

import (
	"strings"
)

// Kind of a gap.
type Kind string

const (
	KindText   Kind = "text"
	KindChoice Kind = "choice"
)

// lookahead is how many bytes after '{' (brace included) may hold the
// directive token, e.g. "{ T :".
const lookahead = 5

// Causes passed to the report callback of Rewrite.
const (
	CauseMultipleAnswers = "unsupportedAnswerType"
	CauseUnterminated    = "unterminatedGap"
	CauseEmpty           = "emptyGap"
)

// Block is one gap directive located in a text. End is exclusive.
type Block struct {
	Start int
	End   int
	Kind  Kind
	Raw   string
}

// Option is one answer inside a gap. Only choice gaps have preferred options.
type Option struct {
	Literal   string
	Preferred bool

	lead, trail string
}

// String renders the option in LiaScript syntax. Preferred options are
// parenthesized and lose their leading whitespace.
func (o Option) String() string {
	if o.Preferred {
		return "(" + o.Literal + ")" + o.trail
	}
	return o.lead + o.Literal + o.trail
}

// Scan returns every complete gap directive in text, left to right. The
// second result is the offset of a directive that is never closed, or -1.
func Scan(text string) ([]Block, int) {
	var blocks []Block
	start, depth := -1, 0
	var kind Kind

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if start >= 0 {
				depth++
				continue
			}
			if k, ok := directiveAt(text, i); ok {
				start, depth, kind = i, 1, k
			}
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				blocks = append(blocks, Block{Start: start, End: i + 1, Kind: kind, Raw: text[start : i+1]})
				start = -1
			}
		}
	}
	return blocks, start
}

// directiveAt reports whether the '{' at text[i] opens a T: or C: directive.
func directiveAt(text string, i int) (Kind, bool) {
	end := min(i+lookahead, len(text))
	j := skipSpace(text, i+1, end)
	if j >= end {
		return "", false
	}
	var k Kind
	switch text[j] {
	case 'T':
		k = KindText
	case 'C':
		k = KindChoice
	default:
		return "", false
	}
	j = skipSpace(text, j+1, end)
	if j >= end || text[j] != ':' {
		return "", false
	}
	return k, true
}

func skipSpace(s string, i, end int) int {
	for i < end && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// Options splits a block into its answers.
func Options(b Block) []Option {
	lead, body := splitDirective(b.Raw)
	return parseOptions(b.Kind, lead, body)
}

// splitDirective drops the braces, the directive token and the list
// brackets. lead is the whitespace that surrounded the token.
func splitDirective(raw string) (lead, body string) {
	inner := raw[1 : len(raw)-1]
	colon := strings.IndexByte(inner, ':')
	for i := 0; i < colon; i++ {
		if isSpace(inner[i]) {
			lead += inner[i : i+1]
		}
	}
	return lead, stripListBrackets(inner[colon+1:])
}

func stripListBrackets(s string) string {
	if i := strings.IndexFunc(s, notSpace); i >= 0 && s[i] == '[' {
		s = s[:i] + s[i+1:]
	}
	if i := strings.LastIndexFunc(s, notSpace); i >= 0 && s[i] == ']' {
		s = s[:i] + s[i+1:]
	}
	return s
}

func notSpace(r rune) bool {
	return r > 0x7f || !isSpace(byte(r))
}

// parseOptions splits body on commas outside brace groups. A leading '#'
// marks the correct option of a choice gap; in text gaps it is a literal.
func parseOptions(kind Kind, lead, body string) []Option {
	var parts []string
	depth, from := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, body[from:i])
				from = i + 1
			}
		}
	}
	parts = append(parts, body[from:])
	parts[0] = lead + parts[0]

	out := make([]Option, 0, len(parts))
	for _, p := range parts {
		core := strings.TrimLeftFunc(p, func(r rune) bool { return !notSpace(r) })
		o := Option{lead: p[:len(p)-len(core)]}
		trimmed := strings.TrimRightFunc(core, func(r rune) bool { return !notSpace(r) })
		o.trail = core[len(trimmed):]
		if kind == KindChoice && strings.HasPrefix(trimmed, "#") {
			o.Preferred = true
			trimmed = strings.TrimSpace(trimmed[1:])
		}
		o.Literal = trimmed
		out = append(out, o)
	}
	return out
}

// RewriteBlock renders b as a LiaScript gap. cause is CauseMultipleAnswers
// when a text gap listed alternatives that had to be discarded, and
// CauseEmpty when the gap has no answer at all; an empty gap is returned
// verbatim since "[[ ]]" would read as a checkbox.
func RewriteBlock(b Block) (out, cause string) {
	opts := Options(b)
	if empty(b.Kind, opts) {
		return b.Raw, CauseEmpty
	}
	if b.Kind == KindText {
		if len(opts) > 1 {
			cause = CauseMultipleAnswers
		}
		return "[[" + opts[0].String() + "]]", cause
	}

	rendered := make([]string, 0, len(opts))
	for _, o := range opts {
		if o.Literal == "" && !o.Preferred {
			continue
		}
		rendered = append(rendered, o.String())
	}
	return "[[" + strings.Join(rendered, "|") + "]]", ""
}

// empty reports whether a gap has nothing to ask for. Text gaps only keep
// their first literal, so that one must be present.
func empty(kind Kind, opts []Option) bool {
	if kind == KindText {
		return opts[0].Literal == ""
	}
	for _, o := range opts {
		if o.Literal != "" {
			return false
		}
	}
	return true
}

// Rewrite replaces every gap directive in text. report, if non-nil, is
// called with the cause of every gap RewriteBlock could not render as
// authored, and with CauseUnterminated when a directive is never closed;
// the unterminated remainder is kept verbatim.
func Rewrite(text string, report func(cause string)) string {
	if report == nil {
		report = func(string) {}
	}
	blocks, open := Scan(text)

	// Each rewrite changes the length of the text; offset shifts the
	// recorded spans of later blocks accordingly.
	out, offset := text, 0
	for _, b := range blocks {
		rep, cause := RewriteBlock(b)
		if cause != "" {
			report(cause)
		}
		out = out[:b.Start+offset] + rep + out[b.End+offset:]
		offset += len(rep) - (b.End - b.Start)
	}

	if open >= 0 {
		report(CauseUnterminated)
	}
	return out
}
