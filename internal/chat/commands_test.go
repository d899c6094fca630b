package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/sessionbridge/internal/frontend"
)

func TestParseCommand_NoArg(t *testing.T) {
	cmd, arg, ok := parseCommand("/status")
	require.True(t, ok)
	assert.Equal(t, "status", cmd)
	assert.Equal(t, "", arg)
}

func TestParseCommand_WithArg(t *testing.T) {
	cmd, arg, ok := parseCommand("/mode acceptEdits")
	require.True(t, ok)
	assert.Equal(t, "mode", cmd)
	assert.Equal(t, "acceptEdits", arg)
}

func TestParseCommand_StripsBotnameSuffix(t *testing.T) {
	cmd, _, ok := parseCommand("/status@my_bot")
	require.True(t, ok)
	assert.Equal(t, "status", cmd)
}

func TestParseCommand_NotACommand(t *testing.T) {
	_, _, ok := parseCommand("hello there")
	assert.False(t, ok)
}

func TestParseCommand_CaseInsensitive(t *testing.T) {
	cmd, _, ok := parseCommand("/STATUS")
	require.True(t, ok)
	assert.Equal(t, "status", cmd)
}

func TestDecodeToolHandle_RoundTrip(t *testing.T) {
	h := frontend.ToolCallHandle("42" + toolHandleSep + "<b>$</b> <code>ls</code>")
	id, original, ok := decodeToolHandle(h)
	require.True(t, ok)
	assert.Equal(t, 42, id)
	assert.Equal(t, "<b>$</b> <code>ls</code>", original)
}

func TestDecodeToolHandle_Empty(t *testing.T) {
	_, _, ok := decodeToolHandle("")
	assert.False(t, ok)
}

func TestDecodeToolHandle_Malformed(t *testing.T) {
	_, _, ok := decodeToolHandle(frontend.ToolCallHandle("no-separator-here"))
	assert.False(t, ok)
}

func TestContainsFold(t *testing.T) {
	assert.True(t, containsFold("claude-sonnet-4-5", "sonnet"))
	assert.True(t, containsFold("OPUS-MODEL", "opus"))
	assert.False(t, containsFold("haiku", "sonnet"))
	assert.True(t, containsFold("anything", ""))
}
