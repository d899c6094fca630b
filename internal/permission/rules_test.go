package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRule(t *testing.T) {
	assert.Equal(t, "Edit(//main.go)", GenerateRule("Edit", map[string]any{"file_path": "main.go"}))
	assert.Equal(t, "Write(//out.txt)", GenerateRule("Write", map[string]any{"file_path": "out.txt"}))
	assert.Equal(t, "NotebookEdit(//nb.ipynb)", GenerateRule("NotebookEdit", map[string]any{"notebook_path": "nb.ipynb"}))
	assert.Equal(t, "Glob(*)", GenerateRule("Glob", map[string]any{"pattern": "**/*.go"}))
}

func TestMatchesAllowRule_NonBash(t *testing.T) {
	input := map[string]any{"file_path": "main.go"}
	assert.True(t, MatchesAllowRule("Edit(//main.go)", "Edit", input))
	assert.False(t, MatchesAllowRule("Edit(//other.go)", "Edit", input))
}

func TestMatchesAllowRule_BashGlobalWildcard(t *testing.T) {
	input := map[string]any{"command": "rm -rf /tmp/x"}
	assert.True(t, MatchesAllowRule("Bash(*)", "Bash", input))
}

func TestMatchesAllowRule_BashBasenamePattern(t *testing.T) {
	input := map[string]any{"command": "/usr/bin/git status"}
	assert.True(t, MatchesAllowRule("Bash(git:*)", "Bash", input))

	input2 := map[string]any{"command": "npm install"}
	assert.False(t, MatchesAllowRule("Bash(git:*)", "Bash", input2))
}

func TestMatchesAllowRule_BashTokenPattern(t *testing.T) {
	input := map[string]any{"command": "git commit -m 'msg'"}
	assert.True(t, MatchesAllowRule("Bash(git commit *)", "Bash", input))

	input2 := map[string]any{"command": "git push origin main"}
	assert.False(t, MatchesAllowRule("Bash(git commit *)", "Bash", input2))
}

func TestFallbackBashRule(t *testing.T) {
	assert.Equal(t, "Bash(git:*)", FallbackBashRule("git commit -m 'msg'"))
	assert.Equal(t, "Bash(*)", FallbackBashRule(""))
}
