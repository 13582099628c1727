package models

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Question type tags as they appear in bundles.
const (
	TypeMultipleChoice = "multiple-choice"
	TypeExact          = "exact"
	TypeText           = "text"
	TypeCloze          = "cloze"
	TypeProgramming    = "programming"
)

// ModeStandalone marks programming tasks that start from an empty editor.
const ModeStandalone = "standalone"

// Quiz is the ordered question list of a lesson.
type Quiz struct {
	Questions []Question `json:"questions" yaml:"questions"`
}

// Question is a closed sum type: MultipleChoice, Exact, Text, Cloze,
// Programming or Unrecognized.
type Question interface {
	Common() QuestionBase
	question()
}

// Hint is shown to learners on request.
type Hint struct {
	ID      string `json:"hintId" yaml:"hintId"`
	Content string `json:"content" yaml:"content"`
}

// QuestionBase holds the fields every question kind shares.
type QuestionBase struct {
	ID        string
	Statement string
	Hints     []Hint
}

// Common returns the shared fields.
func (b QuestionBase) Common() QuestionBase { return b }

func (QuestionBase) question() {}

// Answer is a multiple-choice option.
type Answer struct {
	ID        string `json:"answerId" yaml:"answerId"`
	Content   string `json:"content" yaml:"content"`
	IsCorrect bool   `json:"isCorrect" yaml:"isCorrect"`
}

// AcceptedAnswer is a literal accepted by an exact question.
type AcceptedAnswer struct {
	ID    string `json:"acceptedAnswerId" yaml:"acceptedAnswerId"`
	Value string `json:"value" yaml:"value"`
}

// MultipleChoice lets learners tick any number of answers.
type MultipleChoice struct {
	QuestionBase
	Answers []Answer
}

// Exact accepts one of a list of typed literals.
type Exact struct {
	QuestionBase
	CaseSensitive   bool
	AcceptedAnswers []AcceptedAnswer
}

// Text is a free-text answer that is not checked.
type Text struct {
	QuestionBase
}

// Cloze is a gap text with {T: ...} and {C: ...} directives.
type Cloze struct {
	QuestionBase
	ClozeText string
}

// Programming is a coding task in Language.
type Programming struct {
	QuestionBase
	Language         string
	Mode             string
	SolutionTemplate string
}

// Unrecognized keeps a question whose type tag is unknown to this version.
type Unrecognized struct {
	QuestionBase
	Type string
}

// questionDTO is the wire shape shared by every question kind.
type questionDTO struct {
	Type            string           `json:"type" yaml:"type"`
	QuestionID      string           `json:"questionId" yaml:"questionId"`
	Statement       string           `json:"statement" yaml:"statement"`
	Hints           []Hint           `json:"hints" yaml:"hints"`
	Answers         []Answer         `json:"answers" yaml:"answers"`
	CaseSensitive   bool             `json:"caseSensitive" yaml:"caseSensitive"`
	AcceptedAnswers []AcceptedAnswer `json:"acceptedAnswers" yaml:"acceptedAnswers"`
	ClozeText       string           `json:"clozeText" yaml:"clozeText"`
	Language        string           `json:"language" yaml:"language"`
	Custom          struct {
		Mode             string `json:"mode" yaml:"mode"`
		SolutionTemplate string `json:"solutionTemplate" yaml:"solutionTemplate"`
	} `json:"custom" yaml:"custom"`
}

func (d questionDTO) toQuestion() Question {
	base := QuestionBase{ID: d.QuestionID, Statement: d.Statement, Hints: d.Hints}
	switch d.Type {
	case TypeMultipleChoice:
		return MultipleChoice{QuestionBase: base, Answers: d.Answers}
	case TypeExact:
		return Exact{QuestionBase: base, CaseSensitive: d.CaseSensitive, AcceptedAnswers: d.AcceptedAnswers}
	case TypeText:
		return Text{QuestionBase: base}
	case TypeCloze:
		return Cloze{QuestionBase: base, ClozeText: d.ClozeText}
	case TypeProgramming:
		return Programming{
			QuestionBase:     base,
			Language:         d.Language,
			Mode:             d.Custom.Mode,
			SolutionTemplate: d.Custom.SolutionTemplate,
		}
	default:
		return Unrecognized{QuestionBase: base, Type: d.Type}
	}
}

func toQuestions(in []questionDTO) []Question {
	out := make([]Question, len(in))
	for i, d := range in {
		out[i] = d.toQuestion()
	}
	return out
}

// UnmarshalJSON decodes questions by their "type" tag.
func (q *Quiz) UnmarshalJSON(data []byte) error {
	var raw struct {
		Questions []questionDTO `json:"questions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.Questions = toQuestions(raw.Questions)
	return nil
}

// UnmarshalYAML decodes questions by their "type" tag.
func (q *Quiz) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Questions []questionDTO `yaml:"questions"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	q.Questions = toQuestions(raw.Questions)
	return nil
}
