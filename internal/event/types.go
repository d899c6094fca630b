package event

// EventType enumerates the cross-cutting notifications carried on the
// process-wide global bus (watermill-backed). These are for in-process
// observers — metrics, the chat status-message updater — that need
// fan-out but not the strict per-session FIFO a terminal SSE stream
// requires; that is the job of the per-session SessionBus in session_bus.go.
const (
	SessionCreated     EventType = "session.created"
	SessionDeleted     EventType = "session.deleted"
	PermissionRequired EventType = "permission.required"
	PermissionResolved EventType = "permission.resolved"
	TeleportReceived   EventType = "teleport.received"
)

// SessionCreatedData is the payload for session.created.
type SessionCreatedData struct {
	SessionID string `json:"sessionID"`
	ChatID    string `json:"chatID"`
}

// SessionDeletedData is the payload for session.deleted.
type SessionDeletedData struct {
	SessionID string `json:"sessionID"`
	ChatID    string `json:"chatID"`
}

// PermissionRequiredData is the payload for permission.required.
type PermissionRequiredData struct {
	RequestID string   `json:"requestID"`
	SessionID string   `json:"sessionID"`
	ToolName  string   `json:"toolName"`
	Pattern   []string `json:"pattern,omitempty"`
}

// PermissionResolvedData is the payload for permission.resolved.
type PermissionResolvedData struct {
	RequestID string `json:"requestID"`
	SessionID string `json:"sessionID"`
	Granted   bool   `json:"granted"`
}

// TeleportReceivedData is the payload for teleport.received.
type TeleportReceivedData struct {
	ChatID     string `json:"chatID"`
	SessionID  string `json:"sessionID"`
	TerminalID string `json:"terminalID"`
}
