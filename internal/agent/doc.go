// Package agent wraps the external AI coding agent subprocess (§4.2): a
// CLI coding agent launched via os/exec, speaking newline-delimited
// JSON on stdout and accepting single-line JSON commands on stdin.
//
// Adapter.Connect starts the subprocess for a session's working
// directory, passing --resume when resumeID is non-empty (it does not
// check that the conversation exists).
// The returned Handle implements session.AgentHandle and exposes Query,
// Interrupt, SetMode, SetModel, and Stream — the last consumed once per
// user turn and yielding TextEvent, ToolCallEvent, ToolResultEvent,
// QuestionEvent, ErrorEvent, and a terminal ResultEvent.
//
// Tool-call rendering (render.go) and markdown-to-chat-HTML translation
// (markup.go) are pure functions over tool names/inputs and text,
// independent of the subprocess plumbing, so they're directly testable
// without a live agent.
package agent
