package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCommand_EndsWithNewline(t *testing.T) {
	data, err := encodeCommand(command{Type: "query", Text: "hello"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))
	assert.Contains(t, string(data), `"type":"query"`)
	assert.Contains(t, string(data), `"text":"hello"`)
}

func TestEncodeCommand_PermissionDecision(t *testing.T) {
	data, err := encodeCommand(command{Type: "permission_decision", RequestID: "abc", Action: "reject", Reason: "no"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"request_id":"abc"`)
	assert.Contains(t, string(data), `"action":"reject"`)
}
