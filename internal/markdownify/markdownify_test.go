package markdownify

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/coursemark/internal/diag"
	"github.com/starford/coursemark/internal/models"
)

func convert(t *testing.T, text string) (string, []diag.Diagnostic) {
	t.Helper()
	var c diag.Collector
	res := Convert(text, DefaultOptions(), &c)
	return res.Markdown, c.Records()
}

// assertBalanced checks that opens equal closes and that no prefix of out
// closes more sections than it opened.
func assertBalanced(t *testing.T, out string, tag Tag) {
	t.Helper()
	open, closing := "<"+string(tag)+">", "</"+string(tag)+">"
	depth := 0
	for _, line := range strings.Split(out, "\n") {
		switch line {
		case open:
			depth++
		case closing:
			depth--
		}
		require.GreaterOrEqual(t, depth, 0, "close before open in:\n%s", out)
	}
	assert.Equal(t, 0, depth, "unbalanced output:\n%s", out)
}

func TestConvert_SingleHeader(t *testing.T) {
	out, diags := convert(t, "# A\ntext")
	assert.Equal(t, "<section>\n\n# A\ntext\n</section>", out)
	assert.Empty(t, diags)
}

func TestConvert_Siblings(t *testing.T) {
	out, _ := convert(t, "## A\n## B")
	assert.Equal(t, "<section>\n\n## A\n</section>\n\n<section>\n\n## B\n</section>", out)
}

func TestConvert_DeeperThenShallower(t *testing.T) {
	out, _ := convert(t, "# A\n## B\n### C\n# D")
	want := "<section>\n\n# A\n" +
		"<section>\n\n## B\n" +
		"<section>\n\n### C\n" +
		"</section>\n\n</section>\n\n</section>\n\n" +
		"<section>\n\n# D\n</section>"
	assert.Equal(t, want, out)
	assertBalanced(t, out, TagSection)
}

func TestConvert_SkippedLevelsStayBalanced(t *testing.T) {
	out, _ := convert(t, "### deep\n# top\n### deep again\n## middle")
	assertBalanced(t, out, TagSection)
	assert.Equal(t, 4, strings.Count(out, "<section>"))
}

func TestConvert_CustomTag(t *testing.T) {
	opts := DefaultOptions()
	opts.Tag = TagArticle
	res := Convert("# A\n## B", opts, nil)
	assert.Equal(t, "<article>\n\n# A\n<article>\n\n## B\n</article>\n\n</article>", res.Markdown)
}

func TestConvert_PassthroughIsTrimmed(t *testing.T) {
	in := "\n  plain text\nmore text  \n\n"
	out, diags := convert(t, in)
	assert.Equal(t, "plain text\nmore text", out)
	assert.Empty(t, diags)

	again, _ := convert(t, out)
	assert.Equal(t, out, again)
}

func TestConvert_HeadersInsideFenceIgnored(t *testing.T) {
	in := "```python\n# a comment\nx = 1\n```"
	out, _ := convert(t, in)
	assert.Equal(t, in, out)
}

func TestConvert_LineHighlights(t *testing.T) {
	out, diags := convert(t, "```java showLineNumbers{2,4-5}\nint x;\n```")
	want := `<!-- data-marker="1 0 1 80 yellow fullLine" -->` + "\n" +
		`<!-- data-marker="3 0 4 80 yellow fullLine" -->` + "\n" +
		"```java\nint x;\n```"
	assert.Equal(t, want, out)
	assert.Empty(t, diags)
}

func TestConvert_LineNumbersWithoutRanges(t *testing.T) {
	out, diags := convert(t, "```ts showLineNumbers\nlet a\n```")
	assert.Equal(t, "```ts\nlet a\n```", out)
	assert.Empty(t, diags)
}

func TestConvert_SquareBracketRanges(t *testing.T) {
	out, _ := convert(t, "```go showLineNumbers [3]\n```")
	assert.True(t, strings.HasPrefix(out, `<!-- data-marker="2 0 2 80 yellow fullLine" -->`), out)
}

func TestConvert_UnsupportedFenceStyle(t *testing.T) {
	out, diags := convert(t, "```java {1-2}\ncode\n```\n\n```js title=\"x\"\n```")
	assert.Equal(t, "```java\ncode\n```\n\n```js\n```", out)
	require.Len(t, diags, 1)
	art, ok := diags[0].(diag.Article)
	require.True(t, ok)
	assert.Equal(t, []string{
		"unsupportedCodeStyle: {1-2}",
		`unsupportedCodeStyle: title="x"`,
	}, art.Causes)
}

func TestConvert_FenceWithoutFlagsUntouched(t *testing.T) {
	out, diags := convert(t, "```go\nfunc main() {}\n```")
	assert.Equal(t, "```go\nfunc main() {}\n```", out)
	assert.Empty(t, diags)
}

func TestConvert_FenceSanitizingDisabled(t *testing.T) {
	res := Convert("```java showLineNumbers{1}\n```", Options{Tag: TagSection}, nil)
	assert.Equal(t, "```java showLineNumbers{1}\n```", res.Markdown)
}

func TestConvert_StorageURLs(t *testing.T) {
	opts := DefaultOptions()
	opts.StorageURLs = []string{"https://storage.example.org/bucket"}
	opts.StorageDestination = "media/java/"

	res := Convert("See ![diagram](https://storage.example.org/bucket/uml-1.png) and ![x](https://other.org/y.png)", opts, nil)

	assert.Equal(t, "See ![diagram](media/java/uml-1.png) and ![x](https://other.org/y.png)", res.Markdown)
	assert.Equal(t, []models.MediaFileReplacement{{
		Source:      "https://storage.example.org/bucket/uml-1.png",
		Destination: "media/java/uml-1.png",
	}}, res.Resources)
}

func TestConvert_NoStorageURLsGivesEmptyResources(t *testing.T) {
	res := Convert("![a](https://storage.example.org/x.png)", DefaultOptions(), nil)
	assert.NotNil(t, res.Resources)
	assert.Empty(t, res.Resources)
}

func TestConvert_BalanceProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 300; trial++ {
		var lines []string
		for i := rng.Intn(20); i >= 0; i-- {
			switch rng.Intn(4) {
			case 0:
				lines = append(lines, "text "+strings.Repeat("x", rng.Intn(5)))
			case 1:
				lines = append(lines, "")
			default:
				lines = append(lines, strings.Repeat("#", rng.Intn(8)+1)+" header")
			}
		}
		in := strings.Join(lines, "\n")
		out, _ := convert(t, in)
		assertBalanced(t, out, TagSection)
		assert.Equal(t, strings.Count(in, "\n#")+boolInt(strings.HasPrefix(in, "#")), strings.Count(out, "<section>"), "one open per header in:\n%s", in)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestToPlainText(t *testing.T) {
	assert.Equal(t, "Lorem ipsum dolor: - Eins - Zwei", ToPlainText("# Lorem ipsum dolor \n- Eins\n- Zwei"))
	assert.Equal(t, "a b c", ToPlainText("a\r\n\r\nb\rc"))
}

func TestRelativize(t *testing.T) {
	rel, mf, ok := Relativize("https://cdn.example.org/videos/intro.mp4", []string{"https://cdn.example.org/videos"}, "media/c/")
	require.True(t, ok)
	assert.Equal(t, "media/c/intro.mp4", rel)
	assert.Equal(t, models.MediaFileReplacement{Source: "https://cdn.example.org/videos/intro.mp4", Destination: "media/c/intro.mp4"}, mf)

	rel, _, ok = Relativize("https://youtube.com/watch", []string{"https://cdn.example.org"}, "media/")
	assert.False(t, ok)
	assert.Equal(t, "https://youtube.com/watch", rel)
}
