// Package permission gates every agent tool invocation against a
// session's mode, a project-local allow-list, and — failing both — an
// interactive decision from the chat frontend.
//
// # Overview
//
// Coordinator.Check implements the six-step algorithm: bypass mode
// allows everything, accept-edits mode auto-allows edit tools, tools
// outside {Edit, Write, Bash, NotebookEdit} never need approval, the
// project's .claude/settings.local.json allow-list is consulted next,
// and only then does a PendingPermission get attached to the session
// and an approval prompt sent through the Frontend. The resulting
// decision either returns, persists a synthesized rule for "always",
// flips the session into accept-edits mode, or surfaces a
// *RejectedError.
//
//	coord := NewCoordinator(frontendImpl, ruleGenerator)
//	err := coord.Check(ctx, sess, "Bash", map[string]any{"command": "git status"})
//	if permission.IsRejectedError(err) {
//		// surface the rejection reason to the agent
//	}
//
// # Bash rule synthesis
//
// Non-Bash rules are a direct function of the tool input (GenerateRule).
// Bash rules go through RuleGenerator, a small language-model call
// (separate from the agent subprocess) that turns a command into an
// ordered-token pattern ending in "*", validated against the parsed
// command before being trusted; validation failures fall back to
// Bash(<basename>:*).
//
// # Doom loop detection
//
// DoomLoopDetector flags a tool call repeated identically three times
// in a row, so the coordinator can force a fresh confirmation even
// under a mode that would otherwise auto-allow it.
package permission
