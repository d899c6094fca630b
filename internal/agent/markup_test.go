package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateMarkup_Bold(t *testing.T) {
	assert.Equal(t, "<b>hello</b>", TranslateMarkup("**hello**"))
}

func TestTranslateMarkup_Italic(t *testing.T) {
	assert.Equal(t, "<i>hello</i>", TranslateMarkup("*hello*"))
}

func TestTranslateMarkup_ItalicDoesNotMatchInsideWord(t *testing.T) {
	out := TranslateMarkup("a*b*c")
	assert.NotContains(t, out, "<i>")
}

func TestTranslateMarkup_InlineCode(t *testing.T) {
	assert.Equal(t, "<code>x := 1</code>", TranslateMarkup("`x := 1`"))
}

func TestTranslateMarkup_FencedCodePreservesContentVerbatim(t *testing.T) {
	src := "```go\nfunc f() {\n  return \"<b>&\"\n}\n```"
	out := TranslateMarkup(src)
	assert.Contains(t, out, `<pre><code class="language-go">`)
	assert.Contains(t, out, "&lt;b&gt;&amp;")
	assert.NotContains(t, out, "<b>&") // raw angle bracket must be escaped within the block
}

func TestTranslateMarkup_Link(t *testing.T) {
	assert.Equal(t, `<a href="https://x.test">click</a>`, TranslateMarkup("[click](https://x.test)"))
}

func TestTranslateMarkup_EscapesPlainText(t *testing.T) {
	assert.Equal(t, "a &lt; b", TranslateMarkup("a < b"))
}

func TestTranslateMarkup_Empty(t *testing.T) {
	assert.Equal(t, "", TranslateMarkup(""))
}

func TestTranslateMarkup_MixedBoldAndCode(t *testing.T) {
	out := TranslateMarkup("**bold** and `code` and *italic*")
	assert.Equal(t, "<b>bold</b> and <code>code</code> and <i>italic</i>", out)
}

func TestSplitForDelivery_RespectsMaxLenOnLineBoundaries(t *testing.T) {
	text := strings.Repeat("a", 10) + "\n" + strings.Repeat("b", 10) + "\n" + strings.Repeat("c", 10)
	chunks := SplitForDelivery(text, 15)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 15)
	}
	assert.Equal(t, strings.Join(chunks, "\n"), text)
}
