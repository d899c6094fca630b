// Package teleport implements the three-way handoff between a terminal,
// the HTTP server, and the chat frontend (§4.6).
package teleport

import (
	"context"
	"sync"
	"time"

	"github.com/opencode-ai/sessionbridge/internal/event"
	"github.com/opencode-ai/sessionbridge/internal/frontend"
	"github.com/opencode-ai/sessionbridge/internal/logging"
	"github.com/opencode-ai/sessionbridge/internal/session"
)

// notifyTimeout bounds the fire-and-forget chat notification step (§4.6
// step 3).
const notifyTimeout = 10 * time.Second

// Request is the handoff payload held until the next chat message from
// the matching identity claims it (§3 TeleportRequest).
type Request struct {
	AgentSessionID string
	CWD            string
	TerminalID     string
	PermissionMode session.Mode
}

// Controller owns the pending-teleport registry (one per chat identity,
// most-recent-wins) and the /cc inverse flow.
type Controller struct {
	mu      sync.Mutex
	pending map[string]Request // chat identity -> pending request

	manager  *session.Manager
	frontend frontend.Frontend
}

// NewController builds a Controller bound to a session manager and chat
// frontend.
func NewController(manager *session.Manager, fe frontend.Frontend) *Controller {
	return &Controller{
		pending:  make(map[string]Request),
		manager:  manager,
		frontend: fe,
	}
}

// Handle implements POST /teleport (§4.6). sessionID, cwd, terminalID,
// and mode come from the request payload; chatIdentity is always the
// single configured operator chat id (the request body carries no
// chat-identity field), so "authorized" here just means "is this the
// configured operator" — the caller has already checked that before
// calling Handle. The very first teleport to a freshly started server
// has no Session object yet, which GetOrCreate (not GetByIdentity)
// handles correctly (§8 scenario S1).
func (c *Controller) Handle(ctx context.Context, chatIdentity, cwd, terminalID string, mode session.Mode) error {
	s := c.manager.GetOrCreate(chatIdentity, cwd)

	c.mu.Lock()
	c.pending[chatIdentity] = Request{
		AgentSessionID: s.AgentSessionID,
		CWD:            cwd,
		TerminalID:     terminalID,
		PermissionMode: mode,
	}
	c.mu.Unlock()

	s.Lock()
	priorTerminal := s.TerminalID
	s.TerminalID = terminalID
	s.CWD = cwd
	s.Mode = mode
	chatID := s.ChatIdentity
	s.Unlock()

	if priorTerminal != "" && priorTerminal != terminalID {
		s.Bus.PublishTo(priorTerminal, event.SessionEvent{Type: event.TagSupersession})
	}

	event.Publish(event.Event{
		Type: event.TeleportReceived,
		Data: event.TeleportReceivedData{ChatID: chatIdentity, SessionID: s.ID, TerminalID: terminalID},
	})

	go func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := c.frontend.NotifyTeleport(notifyCtx, chatID, "📡 Teleport received — send a message to continue here."); err != nil {
			logging.Warn().Err(err).Str("chat", chatID).Msg("teleport notification failed")
		}
	}()

	return nil
}

// Consume pops the pending teleport for a chat identity, if any — called
// when the next chat message from that identity arrives.
func (c *Controller) Consume(chatIdentity string) (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.pending[chatIdentity]
	if ok {
		delete(c.pending, chatIdentity)
	}
	return req, ok
}

// ReturnToTerminal implements the /cc inverse flow (§4.6): enqueue a
// return_to_terminal event carrying the agent session id, release the
// handle without waiting on its disconnect, and report whether a
// reconnectable conversation existed.
func (c *Controller) ReturnToTerminal(s *session.Session) (agentSessionID string, ok bool) {
	s.Lock()
	agentSessionID = s.AgentSessionID
	h := s.Handle
	s.Handle = nil
	s.Unlock()

	if agentSessionID == "" {
		return "", false
	}

	s.Emit(event.SessionEvent{Type: event.TagReturnToTerminal, Content: agentSessionID})

	// Deliberately not awaited: calling Disconnect here could race with
	// concurrent callback handling (§4.6). Release the reference and
	// run Disconnect on its own goroutine so this path never waits on it.
	if h != nil {
		go h.Disconnect()
	}
	return agentSessionID, true
}
