package permission

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/opencode-ai/sessionbridge/internal/logging"
)

// smartRuleSystemPrompt instructs the rule-synthesis model to keep the
// command, subcommand, and flags while wildcarding values, always
// ending in a single trailing "*".
const smartRuleSystemPrompt = `You turn a single shell command into a permission pattern for future approvals.

Rules:
- Keep the command name, subcommand, and flags.
- Replace argument values (paths, messages, branch names, etc.) with nothing — just drop them.
- Always end the pattern with a single trailing "*".
- Output only the pattern, nothing else.

Examples:
Input: git commit -m "fix bug"
Output: git commit -m *

Input: git push origin main --tags
Output: git push --tags *

Input: npm install lodash
Output: npm install *

Input: rm -rf /tmp/build
Output: rm -rf *

Input: curl -s https://example.com/api
Output: curl -s *

Input: docker run --rm -it ubuntu bash
Output: docker run --rm -it *`

// maxSmartRuleRetries bounds the synthesis attempts before falling
// back to the basename rule (§4.3).
const maxSmartRuleRetries = 2

// RuleGenerator synthesizes smart Bash permission rules via a
// lightweight language-model call, separate from the agent subprocess.
type RuleGenerator struct {
	client anthropic.Client
	model  string
}

// NewRuleGenerator builds a generator against the Anthropic Messages
// API using apiKey and the given (small, cheap) model id. Returns nil
// when apiKey is empty — callers fall back to the basename rule.
func NewRuleGenerator(apiKey, model string) *RuleGenerator {
	if apiKey == "" {
		return nil
	}
	return &RuleGenerator{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// GenerateSmartBashRule implements §4.3's Bash rule synthesis: generate
// a candidate pattern, validate it actually matches the original
// command as an ordered-token subsequence terminated by "*" and is not
// the bare "*", retrying up to maxSmartRuleRetries times before falling
// back to Bash(<basename>:*).
func (g *RuleGenerator) GenerateSmartBashRule(ctx context.Context, command string) string {
	fallback := FallbackBashRule(command)
	if g == nil {
		return fallback
	}

	for attempt := 0; attempt <= maxSmartRuleRetries; attempt++ {
		pattern, err := g.generateOnce(ctx, command)
		if err != nil {
			logging.Warn().Err(err).Int("attempt", attempt).Msg("smart bash rule generation failed")
			continue
		}
		if pattern == "*" {
			continue
		}
		cmds, err := ParseBashCommand(command)
		if err != nil || len(cmds) == 0 {
			continue
		}
		if !patternMatchesCommand(pattern, cmds[0]) {
			continue
		}
		return fmt.Sprintf("Bash(%s)", pattern)
	}
	return fallback
}

func (g *RuleGenerator) generateOnce(ctx context.Context, command string) (string, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: 64,
		System: []anthropic.TextBlockParam{
			{Text: smartRuleSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(command)),
		},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	pattern := strings.TrimSpace(text.String())
	if pattern == "" {
		return "", fmt.Errorf("empty pattern from rule model")
	}
	if !strings.HasSuffix(pattern, "*") {
		pattern += " *"
	}
	return pattern, nil
}

// patternMatchesCommand validates that pattern, stripped of its
// trailing "*", is an ordered token subsequence of the command's
// tokens — grounding for testable property 3. This is deliberately not
// a contiguous prefix match: the spec's own canonical example,
// "git push origin main --tags" -> "git push --tags *", skips over
// "origin main" in the middle.
func patternMatchesCommand(pattern string, cmd BashCommand) bool {
	prefix := strings.TrimSpace(strings.TrimSuffix(pattern, "*"))
	if prefix == "" {
		return false
	}
	tokens := strings.Fields(prefix)
	commandTokens := append([]string{cmd.Name}, cmd.Args...)

	cursor := 0
	for _, tok := range tokens {
		found := false
		for cursor < len(commandTokens) {
			if commandTokens[cursor] == tok {
				found = true
				cursor++
				break
			}
			cursor++
		}
		if !found {
			return false
		}
	}
	return true
}
