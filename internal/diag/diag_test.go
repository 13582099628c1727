package diag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_AppendsInOrder(t *testing.T) {
	var c Collector
	c.Report(ClozeText{Index: 1, QuestionID: "q1", Cause: CauseUnsupportedAnswer})
	c.Report(ProgrammingQuiz{Cause: CauseHintsUnsupported})

	got := c.Records()
	require.Len(t, got, 2)
	assert.Equal(t, KindClozeText, got[0].Kind())
	assert.Equal(t, KindProgrammingQuiz, got[1].Kind())
	assert.Equal(t, 2, c.Len())
}

func TestCollector_RecordsIsACopy(t *testing.T) {
	var c Collector
	c.Report(Article{Causes: []string{"x"}})

	got := c.Records()
	got[0] = ProgrammingQuiz{Cause: "changed"}

	assert.Equal(t, KindArticle, c.Records()[0].Kind())
}

func TestMarshalJSON_AddsType(t *testing.T) {
	raw, err := json.Marshal(Programming{Index: 2, QuestionID: "p", Cause: CauseUnsupportedLanguage, Language: "java"})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "programming", got["type"])
	assert.Equal(t, "java", got["language"])
	assert.Equal(t, "p", got["id"])
	assert.EqualValues(t, 2, got["index"])
}

func TestMarshalJSON_InsideSlice(t *testing.T) {
	list := []Diagnostic{
		ProgrammingQuiz{Cause: CauseUnsupportedSolution},
		Article{Causes: []string{"a", "b"}},
	}
	raw, err := json.Marshal(list)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"programmingUnspecific","cause":"unsupportedSolution"},
		{"type":"article","cause":["a","b"]}
	]`, string(raw))
}

func TestMessage(t *testing.T) {
	assert.Contains(t, Message(Programming{Index: 0, Cause: CauseUnsupportedLanguage, Language: "java"}), `"java"`)
	assert.Contains(t, Message(ClozeText{Index: 3, Cause: CauseUnsupportedAnswer}), "cloze text 4")
	assert.Contains(t, Message(ClozeText{Index: 0, Cause: CauseEmptyGap}), "has no answer")
	assert.Contains(t, Message(Article{Causes: []string{"x", "y"}}), "x, y")
	assert.Equal(t, "hints cannot be exported for programming tasks", Message(ProgrammingQuiz{Cause: CauseHintsUnsupported}))
}
