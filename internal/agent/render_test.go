package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderToolCall_AskUserQuestionNotRendered(t *testing.T) {
	_, ok := RenderToolCall("AskUserQuestion", map[string]any{})
	assert.False(t, ok)
}

func TestRenderToolCall_Bash(t *testing.T) {
	text, ok := RenderToolCall("Bash", map[string]any{"command": "git status"})
	assert.True(t, ok)
	assert.Contains(t, text, "<code>git status</code>")
}

func TestRenderToolCall_BashMultiline(t *testing.T) {
	text, ok := RenderToolCall("Bash", map[string]any{"command": "echo a\necho b"})
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(text, `<pre><code class="language-bash">`))
}

func TestRenderToolCall_Generic(t *testing.T) {
	text, ok := RenderToolCall("SomeCustomTool", map[string]any{})
	assert.True(t, ok)
	assert.Contains(t, text, "SomeCustomTool")
}

func TestRenderToolResult_Empty(t *testing.T) {
	assert.Equal(t, "", RenderToolResult("   ", false))
}

func TestRenderToolResult_ShortSuccess(t *testing.T) {
	out := RenderToolResult("done", false)
	assert.Equal(t, "✅ done", out)
}

func TestRenderToolResult_ShortError(t *testing.T) {
	out := RenderToolResult("boom", true)
	assert.Equal(t, "❌ boom", out)
}

func TestRenderToolResult_LongGetsExpandableBlockquote(t *testing.T) {
	out := RenderToolResult(strings.Repeat("x", 300), false)
	assert.Contains(t, out, "<blockquote expandable>")
}

func TestRenderToolResult_Truncates(t *testing.T) {
	out := RenderToolResult(strings.Repeat("x", toolResultTruncateLen+500), false)
	assert.Contains(t, out, "...(truncated)")
}
