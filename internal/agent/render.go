package agent

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// RenderToolCall renders a tool invocation for chat display, or returns
// ("", false) for AskUserQuestion — which is never rendered as a tool
// call; it becomes a QuestionEvent instead (§4.2).
func RenderToolCall(toolName string, input map[string]any) (string, bool) {
	switch toolName {
	case "Bash":
		cmd := fieldString(input, "command")
		escaped := html.EscapeString(cmd)
		if strings.Contains(cmd, "\n") {
			return fmt.Sprintf(`<pre><code class="language-bash">%s</code></pre>`, escaped), true
		}
		return fmt.Sprintf(`<b>$</b> <code>%s</code>`, escaped), true
	case "Read":
		return fmt.Sprintf("📖 <b>Reading</b> <code>%s</code>", html.EscapeString(fieldString(input, "file_path"))), true
	case "Write":
		return fmt.Sprintf("📝 <b>Writing</b> <code>%s</code>", html.EscapeString(fieldString(input, "file_path"))), true
	case "Edit":
		return fmt.Sprintf("✏️ <b>Editing</b> <code>%s</code>", html.EscapeString(fieldString(input, "file_path"))), true
	case "Glob":
		return fmt.Sprintf("🔍 <b>Finding</b> <code>%s</code>", html.EscapeString(fieldString(input, "pattern"))), true
	case "Grep":
		return fmt.Sprintf("🔎 <b>Searching</b> <code>%s</code>", html.EscapeString(fieldString(input, "pattern"))), true
	case "Task":
		return fmt.Sprintf("🤖 <b>Subagent:</b> %s", html.EscapeString(fieldString(input, "description"))), true
	case "WebFetch":
		return fmt.Sprintf("🌐 <b>Fetching</b> <code>%s</code>", html.EscapeString(fieldString(input, "url"))), true
	case "WebSearch":
		return fmt.Sprintf("🔍 <b>Web search:</b> %s", html.EscapeString(fieldString(input, "query"))), true
	case "TodoWrite":
		return "📋 <b>Updating todos</b>", true
	case "AskUserQuestion":
		return "", false
	default:
		return fmt.Sprintf("🔧 <b>%s</b>", html.EscapeString(toolName)), true
	}
}

const toolResultTruncateLen = 2000

// RenderToolResult renders a tool result for attachment to its call
// message. An empty result string means nothing should be sent.
func RenderToolResult(content string, isError bool) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if len(content) > toolResultTruncateLen {
		content = content[:toolResultTruncateLen] + "\n...(truncated)"
	}
	escaped := html.EscapeString(content)

	if strings.Contains(content, "\n") || len(content) > 200 {
		prefix := ""
		if isError {
			prefix = "❌ "
		}
		if len(content) > 200 {
			return fmt.Sprintf("%s<blockquote expandable>%s</blockquote>", prefix, escaped)
		}
		return fmt.Sprintf("%s<blockquote>%s</blockquote>", prefix, escaped)
	}

	icon := "✅"
	if isError {
		icon = "❌"
	}
	return fmt.Sprintf("%s %s", icon, escaped)
}

func fieldString(input map[string]any, key string) string {
	if v, ok := input[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func unmarshalInput(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}
