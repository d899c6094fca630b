package agent

import (
	"regexp"
	"strconv"

	"github.com/opencode-ai/sessionbridge/internal/session"
)

// tokensLinePattern matches the context-usage line the agent interleaves
// into its text output, either plain or bold-wrapped:
//
//	Tokens: 24.4k / 200.0k (12%)
//	**Tokens:** 21.8k / 200.0k (11%)
var tokensLinePattern = regexp.MustCompile(`\*?\*?Tokens:\*?\*?\s*([\d.]+)k\s*/\s*([\d.]+)k\s*\((\d+)%\)`)

// parseContextUsage extracts a ContextUsage from agent text output. On
// parse failure ok is false and the caller must leave the session's
// recorded context unchanged (§4.2).
func parseContextUsage(text string) (session.ContextUsage, bool) {
	m := tokensLinePattern.FindStringSubmatch(text)
	if m == nil {
		return session.ContextUsage{}, false
	}

	used, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return session.ContextUsage{}, false
	}
	max, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return session.ContextUsage{}, false
	}
	pct, err := strconv.Atoi(m[3])
	if err != nil {
		return session.ContextUsage{}, false
	}

	return session.ContextUsage{
		TokensUsed:  int(used * 1000),
		TokensMax:   int(max * 1000),
		PercentUsed: pct,
	}, true
}
