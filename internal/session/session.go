// Package session owns the mapping from chat identity to conversation
// state and the session data model shared by every other component.
package session

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/sessionbridge/internal/event"
)

// Mode is the tool-approval policy in effect for a session.
type Mode string

const (
	ModeDefault     Mode = "default"
	ModeAcceptEdits Mode = "acceptEdits"
	ModePlan        Mode = "plan"
	ModeBypass      Mode = "bypassPermissions"
)

// PendingQuestion tracks an in-flight multi-step AskUserQuestion form.
type PendingQuestion struct {
	ToolUseID string
	Questions []QuestionSpec
	Answers   map[string]string
	Cursor    int
}

// QuestionSpec is one question in a PendingQuestion's form, as handed
// down by the agent's AskUserQuestion tool input.
type QuestionSpec struct {
	Question string
	Options  []string
}

// PendingPermission tracks one outstanding tool-permission request.
// CompletionSignal is the oneshot rendezvous: the chat callback handler
// is the producer, the agent's synchronous permission callback is the
// consumer.
type PendingPermission struct {
	RequestID        string
	ToolName         string
	InputSnapshot    map[string]any
	CompletionSignal chan PermissionResolution
}

// PermissionDecision is the user's choice for a pending permission.
type PermissionDecision string

const (
	DecisionAllowOnce     PermissionDecision = "allow_once"
	DecisionAllowAlways   PermissionDecision = "allow_always"
	DecisionAcceptEdits   PermissionDecision = "accept_edits"
	DecisionReject        PermissionDecision = "reject"
)

// PermissionResolution is what the oneshot channel carries back to the
// agent's permission callback.
type PermissionResolution struct {
	Decision       PermissionDecision
	RejectReason   string
}

// ContextUsage is the last-parsed context-window usage for a session.
type ContextUsage struct {
	TokensUsed  int
	TokensMax   int
	PercentUsed int
}

// Usage tracks cumulative accounting for a session.
type Usage struct {
	TotalCostUSD       float64
	TotalInputTokens   int
	TotalOutputTokens  int
	NumTurns           int
	LastResponseCost   *float64
	LastResponseTokens map[string]int
}

// AgentHandle is the minimal surface the session needs from a live
// agent connection; the concrete type lives in internal/agent and is
// stored here as an interface to avoid an import cycle (session is a
// dependency of agent, not the reverse).
type AgentHandle interface {
	// Interrupt cancels the in-flight turn, if any.
	Interrupt()
	// Disconnect releases the subprocess. Implementations must be safe
	// to call from a goroutine that does not await completion — the
	// /cc path deliberately does not wait on this (see teleport).
	Disconnect()
}

// Session is the frontend-agnostic unit of conversation state (§3).
type Session struct {
	mu sync.Mutex

	ID              string // opaque internal id
	AgentSessionID  string // agent-issued conversation id, once known
	CWD             string
	TerminalID      string // most recent teleport source, for supersession
	ChatIdentity    string // authorized chat identity bound to this session
	Mode            Mode
	CurrentModel    string

	Handle              AgentHandle
	Processing          bool
	PendingQuestion     *PendingQuestion
	PendingPermission   *PendingPermission
	AwaitingRejection   bool // next text input is a rejection reason
	AwaitingQuestionAns bool // next text input answers the current question ("other")

	Usage   Usage
	Context ContextUsage

	Bus *event.SessionBus

	// ToolMessageHandles maps a tool invocation id to the chat message
	// handle that rendered the call, so the result can be attached by
	// editing that same message.
	ToolMessageHandles map[string]any
}

// newID mints an opaque session id. Grounded on the teacher's own id
// generation convention (ulid.Make().String()).
func newID() string {
	return ulid.Make().String()
}

// New creates a session bound to chatIdentity with default mode and the
// given initial working directory.
func New(chatIdentity, cwd string) *Session {
	return &Session{
		ID:                 newID(),
		CWD:                cwd,
		ChatIdentity:       chatIdentity,
		Mode:               ModeDefault,
		Bus:                event.NewSessionBus(),
		ToolMessageHandles: make(map[string]any),
	}
}

// Lock/Unlock expose the session's own mutex so the orchestrator's
// serialized event loop and the callback that resolves a pending
// permission can both safely mutate fields — no other synchronization
// is needed beyond what protects the session map itself (§9).
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Emit publishes an event onto the session's own bus.
func (s *Session) Emit(e event.SessionEvent) {
	e.SessionID = s.ID
	s.Bus.Publish(e)
}

// Disconnect releases the agent handle, if any, without waiting on it.
func (s *Session) Disconnect() {
	s.mu.Lock()
	h := s.Handle
	s.Handle = nil
	s.mu.Unlock()
	if h != nil {
		h.Disconnect()
	}
}
