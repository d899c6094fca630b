// Package permission gates every tool invocation against mode, cached
// rules, and an interactive user decision (§4.3).
package permission

// Mode mirrors session.Mode without importing the session package,
// since callers pass the mode value directly; kept identical to the
// string values session.Mode uses so conversions are free.
type Mode string

const (
	ModeDefault     Mode = "default"
	ModeAcceptEdits Mode = "acceptEdits"
	ModePlan        Mode = "plan"
	ModeBypass      Mode = "bypassPermissions"
)

// Decision is the user's resolution of a pending permission.
type Decision string

const (
	DecisionAllowOnce   Decision = "allow_once"
	DecisionAllowAlways Decision = "allow_always"
	DecisionAcceptEdits Decision = "accept_edits"
	DecisionReject      Decision = "reject"
)

// approvalRequiredTools is the tool set that needs approval at all;
// everything else auto-allows as read-only (§4.3 step 3).
var approvalRequiredTools = map[string]bool{
	"Edit":         true,
	"Write":        true,
	"Bash":         true,
	"NotebookEdit": true,
}

// editTools auto-allow under ACCEPT_EDITS mode and are the only tools
// offered the "Accept Edits" button.
var editTools = map[string]bool{
	"Edit":         true,
	"Write":        true,
	"NotebookEdit": true,
	"MultiEdit":    true,
}

// RequiresApproval reports whether a tool is ever gated (step 3).
func RequiresApproval(toolName string) bool {
	return approvalRequiredTools[toolName]
}

// IsEditTool reports whether a tool is an edit tool for ACCEPT_EDITS
// auto-allow and the "Accept Edits" button offer.
func IsEditTool(toolName string) bool {
	return editTools[toolName]
}

// RejectedError is returned when a permission resolves with a deny.
type RejectedError struct {
	ToolName string
	Reason   string
}

func (e *RejectedError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "permission rejected"
}

// IsRejectedError reports whether err is a permission rejection.
func IsRejectedError(err error) bool {
	_, ok := err.(*RejectedError)
	return ok
}
