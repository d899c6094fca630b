package permission

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/sessionbridge/internal/event"
	"github.com/opencode-ai/sessionbridge/internal/frontend"
	"github.com/opencode-ai/sessionbridge/internal/logging"
	"github.com/opencode-ai/sessionbridge/internal/session"
)

// permissionUISendTimeout bounds the chat-frontend send step of asking
// for a decision (§4.3 step 5, §7). There is deliberately no timeout on
// the subsequent wait for the user's decision.
const permissionUISendTimeout = 10 * time.Second

// Coordinator implements the six-step permission algorithm of §4.3. It
// holds no global mutable state beyond the doom-loop guard and the rule
// generator; approvals live on the session (mode) and the file-backed
// allow-list.
type Coordinator struct {
	ui        frontend.Frontend
	rules     *RuleGenerator
	doomLoop  *DoomLoopDetector
	allowlist func(cwd string) string // resolves the cwd used to locate the allow-list; nil = use session cwd
}

// NewCoordinator builds a Coordinator. ui is the chat frontend used to
// show approval prompts; rules may be nil, in which case Bash rule
// synthesis always falls back to the basename pattern.
func NewCoordinator(ui frontend.Frontend, rules *RuleGenerator) *Coordinator {
	return &Coordinator{
		ui:       ui,
		rules:    rules,
		doomLoop: NewDoomLoopDetector(),
	}
}

// Check runs the full algorithm for one tool invocation and blocks
// until resolved. A nil error means the call is allowed; a
// *RejectedError means the user denied it.
func (c *Coordinator) Check(ctx context.Context, s *session.Session, toolName string, input map[string]any) error {
	s.Lock()
	mode := s.Mode
	cwd := s.CWD
	s.Unlock()

	// Step 3 (checked first): read-only tools never need approval,
	// doom loop or not — the guard below only protects the
	// auto-allow paths a silent BYPASS/ACCEPT_EDITS session could
	// loop on forever, not tools that were never gated in the first
	// place.
	if !RequiresApproval(toolName) {
		return nil
	}

	// Doom-loop guard runs before the Step 1/2 mode short-circuits:
	// its entire purpose is to force a confirmation out of an
	// unattended BYPASS/ACCEPT_EDITS session that would otherwise
	// auto-allow the same tool+input forever (§4.3 expansion).
	if (mode == session.ModeBypass || mode == session.ModeAcceptEdits) && c.doomLoop.Check(s.ID, toolName, input) {
		logging.Warn().Str("session", s.ID).Str("tool", toolName).Msg("doom loop detected, forcing confirmation")
		resolvedCWD := cwd
		if c.allowlist != nil {
			resolvedCWD = c.allowlist(cwd)
		}
		return c.ask(ctx, s, resolvedCWD, toolName, input)
	}

	// Step 1: BYPASS allows everything.
	if mode == session.ModeBypass {
		return nil
	}

	// Step 2: ACCEPT_EDITS auto-allows edit tools.
	if mode == session.ModeAcceptEdits && IsEditTool(toolName) {
		return nil
	}

	// Step 4: project-local allow-list.
	resolvedCWD := cwd
	if c.allowlist != nil {
		resolvedCWD = c.allowlist(cwd)
	}
	for _, rule := range LoadAllowRules(resolvedCWD) {
		if MatchesAllowRule(rule, toolName, input) {
			return nil
		}
	}

	// Step 5: create a PendingPermission, ask the frontend, block on
	// the oneshot completion signal.
	return c.ask(ctx, s, resolvedCWD, toolName, input)
}

func (c *Coordinator) ask(ctx context.Context, s *session.Session, cwd, toolName string, input map[string]any) error {
	reqID := ulid.Make().String()
	signal := make(chan session.PermissionResolution, 1)

	s.Lock()
	s.PendingPermission = &session.PendingPermission{
		RequestID:        reqID,
		ToolName:         toolName,
		InputSnapshot:    input,
		CompletionSignal: signal,
	}
	chatID := s.ChatIdentity
	s.Unlock()

	defer func() {
		s.Lock()
		s.PendingPermission = nil
		s.Unlock()
	}()

	event.Publish(event.Event{
		Type: event.PermissionRequired,
		Data: event.PermissionRequiredData{RequestID: reqID, SessionID: s.ID, ToolName: toolName},
	})

	sendCtx, cancel := context.WithTimeout(ctx, permissionUISendTimeout)
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.ui.RequestPermission(sendCtx, chatID, frontend.PermissionPrompt{
			RequestID: reqID,
			ToolName:  toolName,
			Input:     input,
			EditOnly:  IsEditTool(toolName),
		})
	}()
	var err error
	select {
	case err = <-errCh:
	case <-sendCtx.Done():
		err = sendCtx.Err()
	}
	cancel()
	if err != nil {
		// Fail-open: a blocked chat delivery must not deadlock the agent.
		logging.Warn().Err(err).Str("session", s.ID).Msg("permission UI send failed or timed out, allowing")
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-signal:
		return c.resolve(s, cwd, toolName, input, res)
	}
}

func (c *Coordinator) resolve(s *session.Session, cwd, toolName string, input map[string]any, res session.PermissionResolution) error {
	event.Publish(event.Event{
		Type: event.PermissionResolved,
		Data: event.PermissionResolvedData{SessionID: s.ID, Granted: res.Decision != session.DecisionReject},
	})

	switch res.Decision {
	case session.DecisionAllowOnce:
		return nil
	case session.DecisionAllowAlways:
		rule := c.synthesizeRule(cwd, toolName, input)
		if err := AddAllowRule(cwd, rule); err != nil {
			logging.Warn().Err(err).Str("rule", rule).Msg("failed to persist allow rule")
		}
		return nil
	case session.DecisionAcceptEdits:
		s.Lock()
		s.Mode = session.ModeAcceptEdits
		s.Unlock()
		return nil
	case session.DecisionReject:
		return &RejectedError{ToolName: toolName, Reason: res.RejectReason}
	default:
		return nil
	}
}

func (c *Coordinator) synthesizeRule(cwd, toolName string, input map[string]any) string {
	if toolName != "Bash" {
		return GenerateRule(toolName, input)
	}
	command := stringField(input, "command")
	return c.rules.GenerateSmartBashRule(context.Background(), command)
}

// Respond resolves a session's pending permission (producer side of the
// oneshot rendezvous): called from the chat callback handler.
func Respond(s *session.Session, decision session.PermissionDecision, rejectReason string) {
	s.Lock()
	p := s.PendingPermission
	s.Unlock()
	if p == nil {
		return
	}
	select {
	case p.CompletionSignal <- session.PermissionResolution{Decision: decision, RejectReason: rejectReason}:
	default:
	}
}
