package permission

import (
	"fmt"
	"path/filepath"
	"strings"
)

// GenerateRule derives the simple, non-Bash permission rule from a
// tool invocation's input (§4.3 "Rule synthesis"). Bash has its own,
// smarter path in smart.go.
func GenerateRule(toolName string, input map[string]any) string {
	switch toolName {
	case "Edit":
		return fmt.Sprintf("Edit(//%s)", stringField(input, "file_path"))
	case "Write":
		return fmt.Sprintf("Write(//%s)", stringField(input, "file_path"))
	case "NotebookEdit":
		return fmt.Sprintf("NotebookEdit(//%s)", stringField(input, "notebook_path"))
	default:
		return fmt.Sprintf("%s(*)", toolName)
	}
}

func stringField(input map[string]any, key string) string {
	if v, ok := input[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// MatchesAllowRule reports whether one persisted rule string allows the
// given tool invocation: exact-match for non-Bash rules, or for Bash a
// "Bash(<body>)" rule whose body (treated as an ordered-token pattern
// ending in "*", or the literal basename-wildcard/global-wildcard
// shorthand) matches the parsed command.
func MatchesAllowRule(rule, toolName string, input map[string]any) bool {
	if toolName != "Bash" {
		return rule == GenerateRule(toolName, input)
	}

	body, ok := bashRuleBody(rule)
	if !ok {
		return false
	}
	command := stringField(input, "command")
	if command == "" {
		return false
	}
	cmds, err := ParseBashCommand(command)
	if err != nil || len(cmds) == 0 {
		return false
	}
	for _, cmd := range cmds {
		if body == "*" {
			continue
		}
		if name, isBasenamePattern := strings.CutSuffix(body, ":*"); isBasenamePattern {
			if filepath.Base(cmd.Name) != name {
				return false
			}
			continue
		}
		// Smart rules are validated as an ordered token subsequence
		// (patternMatchesCommand), so accept that form as well.
		if !MatchPattern(body, cmd) && !(strings.HasSuffix(body, "*") && patternMatchesCommand(body, cmd)) {
			return false
		}
	}
	return true
}

func bashRuleBody(rule string) (string, bool) {
	if !strings.HasPrefix(rule, "Bash(") || !strings.HasSuffix(rule, ")") {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(rule, "Bash("), ")"), true
}

// FallbackBashRule is the basename-wildcard rule used when smart-rule
// synthesis fails validation after its retries (§4.3).
func FallbackBashRule(command string) string {
	cmds, err := ParseBashCommand(command)
	if err != nil || len(cmds) == 0 {
		return "Bash(*)"
	}
	return fmt.Sprintf("Bash(%s:*)", filepath.Base(cmds[0].Name))
}
