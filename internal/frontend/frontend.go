// Package frontend declares the capability a chat frontend must offer
// the rest of the orchestrator, per the Design Notes' "polymorphic
// frontends" guidance: a small interface, not an inheritance hierarchy.
// internal/chat provides the one shipping implementation (Telegram); a
// test double is the natural second.
package frontend

import "context"

// ToolCallHandle identifies a previously rendered tool-call message so
// its result can be attached by editing that same message.
type ToolCallHandle string

// PermissionPrompt is everything the frontend needs to render an
// approval UI for one pending tool invocation.
type PermissionPrompt struct {
	RequestID string
	ToolName  string
	Input     map[string]any
	// EditOnly reports that ToolName is an edit tool; for edit tools the
	// approval UI offers "Accept Edits" in place of "Always" (§4.3/§4.9).
	EditOnly bool
}

// QuestionPrompt is one step of a multi-step AskUserQuestion form.
type QuestionPrompt struct {
	ToolUseID string
	Index     int
	Total     int
	Question  string
	Options   []string
}

// StatusSnapshot is the content of the pinned per-session status
// message (§4.9): mode, model, context usage, cumulative cost.
type StatusSnapshot struct {
	Mode              string
	Model             string
	ContextPercentUse int
	TotalCostUSD      float64
	PendingTeleport   string // short id, empty if none
}

// Frontend is the capability set a chat SDK adapter must implement.
type Frontend interface {
	// SendText sends (and, if long, chunks) a block of agent text.
	// final marks the last TextEvent of a turn — the only chunk sent
	// with notification sound enabled.
	SendText(ctx context.Context, chatID, text string, final bool) error

	// SendToolCall renders a tool invocation as a single message and
	// returns a handle usable later to attach its result.
	SendToolCall(ctx context.Context, chatID, toolName string, input map[string]any) (ToolCallHandle, error)

	// SendToolResult attaches a result to a previously rendered tool
	// call by editing that message. An empty handle means no message
	// was recorded (e.g. after a reload) and a standalone message is
	// sent instead.
	SendToolResult(ctx context.Context, chatID string, handle ToolCallHandle, result string, isError bool) error

	// RequestPermission shows the approval UI for a pending permission.
	// The permission coordinator stops waiting for it after the 10s
	// send-step timeout described in §4.3.
	RequestPermission(ctx context.Context, chatID string, p PermissionPrompt) error

	// RequestQuestion shows one step of a question form.
	RequestQuestion(ctx context.Context, chatID string, q QuestionPrompt) error

	// UpdateStatus edits (or, on first call, sends and pins) the
	// per-session status message.
	UpdateStatus(ctx context.Context, chatID string, s StatusSnapshot) error

	// NotifyTeleport fires a teleport notice with a 10s send cap.
	NotifyTeleport(ctx context.Context, chatID, text string) error
}
