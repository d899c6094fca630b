package chat

import (
	"context"
	"strconv"

	"github.com/opencode-ai/sessionbridge/internal/agent"
	"github.com/opencode-ai/sessionbridge/internal/event"
	"github.com/opencode-ai/sessionbridge/internal/frontend"
	"github.com/opencode-ai/sessionbridge/internal/logging"
	"github.com/opencode-ai/sessionbridge/internal/session"
)

func sessionEndEvent() event.SessionEvent {
	return event.SessionEvent{Type: event.TagSessionEnd}
}

// liveHandle is the full surface *agent.Handle offers, beyond the
// minimal session.AgentHandle the session package depends on. Asserting
// to this once avoids repeating the same anonymous interface at every
// call site.
type liveHandle interface {
	session.AgentHandle
	Query(string) error
	SetMode(session.Mode) error
	SetModel(string) error
	Stream(context.Context, agent.PermissionCallback) <-chan agent.Event
}

// handlePlainText resolves free text per the priority order of §5:
// (a) rejection reason, (b) custom question answer, (c) normal query.
func (b *Bot) handlePlainText(ctx context.Context, chatIdent, text string) {
	s := b.manager.GetOrCreate(chatIdent, b.processCWD)

	s.Lock()
	awaitingRejection := s.AwaitingRejection
	awaitingAnswer := s.AwaitingQuestionAns
	s.Unlock()

	switch {
	case awaitingRejection:
		b.resolveRejection(s, text)
	case awaitingAnswer:
		b.resolveQuestionAnswer(ctx, s, text)
	default:
		b.runTurn(ctx, chatIdent, text)
	}
}

func (b *Bot) resolveRejection(s *session.Session, reason string) {
	s.Lock()
	s.AwaitingRejection = false
	s.Unlock()
	session.Respond(s, session.DecisionReject, reason)
}

func (b *Bot) resolveQuestionAnswer(ctx context.Context, s *session.Session, answer string) {
	s.Lock()
	pq := s.PendingQuestion
	if pq == nil {
		s.AwaitingQuestionAns = false
		s.Unlock()
		return
	}
	key := strconv.Itoa(pq.Cursor)
	pq.Answers[key] = answer
	pq.Cursor++
	s.AwaitingQuestionAns = false
	done := pq.Cursor >= len(pq.Questions)
	s.Unlock()

	b.advanceQuestion(ctx, s, pq, done)
}

// advanceQuestion shows the next step's keyboard, or — once every step
// is answered — forwards the concatenated replies to the agent as a
// single query and clears the pending form.
func (b *Bot) advanceQuestion(ctx context.Context, s *session.Session, pq *session.PendingQuestion, done bool) {
	if !done {
		next := pq.Questions[pq.Cursor]
		prompt := frontend.QuestionPrompt{
			ToolUseID: pq.ToolUseID,
			Index:     pq.Cursor,
			Total:     len(pq.Questions),
			Question:  next.Question,
			Options:   next.Options,
		}
		_ = b.RequestQuestion(ctx, s.ChatIdentity, prompt)
		return
	}

	s.Lock()
	s.PendingQuestion = nil
	s.Unlock()

	// The concatenated form is delivered as the next turn's query, the
	// same path a normal chat message takes (§3 PendingQuestion:
	// "submitted to the agent as one concatenated reply").
	b.runTurn(context.Background(), s.ChatIdentity, concatenateAnswers(pq))
}

func concatenateAnswers(pq *session.PendingQuestion) string {
	out := ""
	for i, q := range pq.Questions {
		key := strconv.Itoa(i)
		out += q.Question + ": " + pq.Answers[key] + "\n"
	}
	return out
}

// runTurn connects an agent handle if needed, sends text, and pumps the
// resulting event stream into both the chat frontend and the session's
// own bus, mirroring the data flow of §2: "user text from chat →
// Frontend Adapter → Session → Agent Adapter → agent process → event
// stream → Event Bus → (chat render) + (SSE to terminal)".
func (b *Bot) runTurn(ctx context.Context, chatIdent, text string) {
	s := b.manager.GetOrCreate(chatIdent, b.processCWD)

	if teleported, ok := b.teleport.Consume(chatIdent); ok {
		s.Lock()
		s.CWD = teleported.CWD
		s.TerminalID = teleported.TerminalID
		s.Mode = teleported.PermissionMode
		s.Unlock()
	}

	s.Lock()
	handle := s.Handle
	cwd := s.CWD
	resumeID := s.AgentSessionID
	mode := s.Mode
	s.Unlock()

	if handle == nil {
		h, err := b.adapter.Connect(ctx, cwd, resumeID, mode)
		if err != nil && resumeID != "" {
			h, err = b.adapter.Connect(ctx, cwd, "", mode)
		}
		if err != nil {
			_ = b.SendText(ctx, chatIdent, "Failed to start the agent: "+err.Error(), true)
			return
		}
		handle = h
		s.Lock()
		s.Handle = handle
		s.Unlock()
	}

	live := handle.(liveHandle)

	if err := live.Query(text); err != nil {
		_ = b.SendText(ctx, chatIdent, "Failed to send to the agent: "+err.Error(), true)
		return
	}

	s.Lock()
	s.Processing = true
	s.Unlock()
	s.Emit(event.SessionEvent{Type: event.TagUser, Content: text})

	onPermission := func(permCtx context.Context, toolName string, input map[string]any) error {
		return b.coordinator.Check(permCtx, s, toolName, input)
	}

	events := live.Stream(ctx, onPermission)

	for ev := range events {
		b.dispatchAgentEvent(ctx, s, ev)
	}

	s.Lock()
	s.Processing = false
	s.Unlock()
}

func (b *Bot) dispatchAgentEvent(ctx context.Context, s *session.Session, ev agent.Event) {
	switch e := ev.(type) {
	case agent.TextEvent:
		if err := b.SendText(ctx, s.ChatIdentity, e.Content, e.Final); err != nil {
			logging.Warn().Err(err).Str("session", s.ID).Msg("failed to send text to chat")
		}
		s.Emit(event.SessionEvent{Type: event.TagText, Content: e.Content})

	case agent.ToolCallEvent:
		handleID, err := b.SendToolCall(ctx, s.ChatIdentity, e.ToolName, e.Input)
		if err != nil {
			logging.Warn().Err(err).Str("session", s.ID).Msg("failed to render tool call")
		}
		s.Lock()
		if handleID != "" {
			s.ToolMessageHandles[e.ToolID] = handleID
		}
		s.Unlock()
		s.Emit(event.SessionEvent{Type: event.TagToolCall, Content: e.ToolName})

	case agent.ToolResultEvent:
		s.Lock()
		raw, ok := s.ToolMessageHandles[e.ToolID]
		delete(s.ToolMessageHandles, e.ToolID)
		s.Unlock()
		var handle frontend.ToolCallHandle
		if ok {
			if typed, ok := raw.(frontend.ToolCallHandle); ok {
				handle = typed
			}
		}
		if err := b.SendToolResult(ctx, s.ChatIdentity, handle, e.Content, e.IsError); err != nil {
			logging.Warn().Err(err).Str("session", s.ID).Msg("failed to render tool result")
		}
		s.Emit(event.SessionEvent{Type: event.TagToolResult, Content: e.Content})

	case agent.QuestionEvent:
		pq := &session.PendingQuestion{
			ToolUseID: e.QuestionID,
			Questions: e.Questions,
			Answers:   make(map[string]string),
		}
		s.Lock()
		s.PendingQuestion = pq
		s.Unlock()
		s.Emit(event.SessionEvent{Type: event.TagQuestion})
		b.advanceQuestion(ctx, s, pq, false)

	case agent.ErrorEvent:
		_ = b.SendText(ctx, s.ChatIdentity, "⚠️ "+e.Message, true)
		s.Emit(event.SessionEvent{Type: event.TagError, Content: e.Message})

	case agent.ResultEvent:
		s.Lock()
		s.AgentSessionID = e.AgentSessionID
		s.Usage.TotalCostUSD += e.Usage.TotalCostUSD
		s.Usage.TotalInputTokens += e.Usage.TotalInputTokens
		s.Usage.TotalOutputTokens += e.Usage.TotalOutputTokens
		s.Usage.NumTurns++
		snap := statusSnapshotOf(s)
		s.Unlock()
		_ = b.UpdateStatus(ctx, s.ChatIdentity, snap)
	}
}
