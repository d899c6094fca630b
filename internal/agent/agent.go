// Package agent wraps the external AI coding agent subprocess: launching
// it, translating its NDJSON event stream into the internal event
// taxonomy, and feeding back commands (queries, interrupts, mode/model
// changes, permission decisions) on its stdin (§4.2).
package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/opencode-ai/sessionbridge/internal/logging"
	"github.com/opencode-ai/sessionbridge/internal/session"
)

// Event is the sealed set of values yielded by a Handle's Stream.
type Event interface{ isAgentEvent() }

// TextEvent carries one chunk of assistant text. Final marks the last
// TextEvent of a turn.
type TextEvent struct {
	Content string
	Final   bool
}

// ToolCallEvent announces a tool invocation.
type ToolCallEvent struct {
	ToolID   string
	ToolName string
	Input    map[string]any
}

// ToolResultEvent carries a tool's result content.
type ToolResultEvent struct {
	ToolID  string
	Content string
	IsError bool
}

// QuestionEvent carries an AskUserQuestion tool's question set.
type QuestionEvent struct {
	QuestionID string
	Questions  []session.QuestionSpec
}

// ErrorEvent carries a stream-terminating error, surfaced as a final
// error text event per §7.
type ErrorEvent struct {
	Message string
}

// ResultEvent is the terminal accounting marker for a turn.
type ResultEvent struct {
	AgentSessionID string
	Usage          session.Usage
}

func (TextEvent) isAgentEvent()        {}
func (ToolCallEvent) isAgentEvent()    {}
func (ToolResultEvent) isAgentEvent()  {}
func (QuestionEvent) isAgentEvent()    {}
func (ErrorEvent) isAgentEvent()       {}
func (ResultEvent) isAgentEvent()      {}

// PermissionCallback is invoked synchronously from the adapter's read
// loop for every tool use, per §4.2. A nil error allows the call.
type PermissionCallback func(ctx context.Context, toolName string, input map[string]any) error

// Adapter launches and supervises agent subprocesses. Binary is the
// executable name or path (configured, §6); it has no other state —
// each Connect call produces an independent Handle.
type Adapter struct {
	Binary string
}

// NewAdapter builds an Adapter that launches Binary for each session.
func NewAdapter(binary string) *Adapter {
	return &Adapter{Binary: binary}
}

// Handle is a live connection to one agent subprocess. It implements
// session.AgentHandle.
type Handle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	mu         sync.Mutex
	cancelTurn context.CancelFunc

	writeMu sync.Mutex
}

var _ session.AgentHandle = (*Handle)(nil)

// Connect launches the agent subprocess with cwd as its working
// directory. If resumeID is non-empty the agent is started with
// --resume resumeID; whether that conversation exists or has content is
// not checked here, and Connect only fails if the process cannot be
// started. Callers that get a connect error after requesting resume
// should retry once with resumeID empty (§4.2, §7).
func (a *Adapter) Connect(ctx context.Context, cwd string, resumeID string, mode session.Mode) (*Handle, error) {
	args := []string{"--output-format", "stream-json"}
	if resumeID != "" {
		args = append(args, "--resume", resumeID)
	}
	args = append(args, "--permission-mode", string(mode))

	cmd := exec.CommandContext(ctx, a.Binary, args...)
	cmd.Dir = cwd

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("agent stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("agent stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("agent start: %w", err)
	}

	return &Handle{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

// Query enqueues user input and returns immediately.
func (h *Handle) Query(text string) error {
	return h.send(command{Type: "query", Text: text})
}

// Interrupt cancels the in-flight turn, if any.
func (h *Handle) Interrupt() {
	_ = h.send(command{Type: "interrupt"})
	h.mu.Lock()
	cancel := h.cancelTurn
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SetMode changes the live permission mode.
func (h *Handle) SetMode(mode session.Mode) error {
	return h.send(command{Type: "set_mode", Mode: string(mode)})
}

// SetModel changes the live model selection.
func (h *Handle) SetModel(model string) error {
	return h.send(command{Type: "set_model", Model: model})
}

// RespondPermission sends a permission_decision command keyed by the
// tool's request id.
func (h *Handle) RespondPermission(requestID, action, reason string) error {
	return h.send(command{Type: "permission_decision", RequestID: requestID, Action: action, Reason: reason})
}

func (h *Handle) send(c command) error {
	data, err := encodeCommand(c)
	if err != nil {
		return err
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_, err = h.stdin.Write(data)
	return err
}

// Disconnect releases the subprocess. Safe to call without waiting for
// completion — the /cc teleport path relies on this (§4.6).
func (h *Handle) Disconnect() {
	_ = h.stdin.Close()
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	go h.cmd.Wait()
}

// Stream consumes the agent's NDJSON stdout for a single turn, invoking
// onPermission synchronously for each tool use after forwarding its
// ToolCallEvent, and returns a channel of events ending with a
// ResultEvent or ErrorEvent (or with a QuestionEvent when the agent asks
// the operator a question). Not restartable — callers must call Stream
// again for the next turn.
func (h *Handle) Stream(ctx context.Context, onPermission PermissionCallback) <-chan Event {
	out := make(chan Event, 16)
	turnCtx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancelTurn = cancel
	h.mu.Unlock()

	go func() {
		defer close(out)
		defer cancel()

		scanner := bufio.NewScanner(h.stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			select {
			case <-turnCtx.Done():
				out <- ErrorEvent{Message: "turn interrupted"}
				return
			default:
			}

			line := scanner.Bytes()
			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}

			var ol outputLine
			if err := json.Unmarshal(line, &ol); err != nil {
				logging.Warn().Err(err).Str("line", string(line)).Msg("discarding unparseable agent output line")
				continue
			}

			done := h.dispatch(turnCtx, ol, onPermission, out)
			if done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			out <- ErrorEvent{Message: err.Error()}
		} else {
			out <- ErrorEvent{Message: "agent output ended before the turn's result"}
		}
	}()

	return out
}

// dispatch handles one output line, returning true when the turn ends.
func (h *Handle) dispatch(ctx context.Context, ol outputLine, onPermission PermissionCallback, out chan<- Event) bool {
	switch ol.Type {
	case "text":
		out <- TextEvent{Content: ol.Content, Final: ol.Final}
		return false

	case "tool_use":
		input := unmarshalInput(ol.Input)
		if ol.ToolName == "AskUserQuestion" {
			specs := make([]session.QuestionSpec, 0, len(ol.Questions))
			for _, q := range ol.Questions {
				specs = append(specs, session.QuestionSpec{Question: q.Question, Options: q.Options})
			}
			out <- QuestionEvent{QuestionID: ol.ToolID, Questions: specs}
			// §4.4: set processing=false and return from the stream; the
			// stream resumes cleanly on the next query once the question
			// is answered, rather than leaving this Stream call's scanner
			// goroutine alive to race a second one started by the resume.
			return true
		}

		out <- ToolCallEvent{ToolID: ol.ToolID, ToolName: ol.ToolName, Input: input}

		var permErr error
		if onPermission != nil {
			permErr = onPermission(ctx, ol.ToolName, input)
		}
		action := "allow"
		reason := ""
		if permErr != nil {
			action = "reject"
			reason = permErr.Error()
		}
		if err := h.RespondPermission(ol.ToolID, action, reason); err != nil {
			logging.Warn().Err(err).Msg("failed to send permission decision to agent")
		}
		return false

	case "tool_result":
		out <- ToolResultEvent{ToolID: ol.ToolID, Content: ol.Content, IsError: ol.IsError}
		return false

	case "result":
		out <- ResultEvent{
			AgentSessionID: ol.SessionID,
			Usage: session.Usage{
				TotalCostUSD:      ol.CostUSD,
				TotalInputTokens:  ol.InputTokens,
				TotalOutputTokens: ol.OutputTokens,
				NumTurns:          ol.NumTurns,
			},
		}
		return true

	case "error":
		out <- ErrorEvent{Message: ol.Message}
		return true

	default:
		logging.Warn().Str("type", ol.Type).Msg("unrecognized agent output line type")
		return false
	}
}
