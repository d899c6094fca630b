// Package reload implements the hot-reload quiesce/persist/restore cycle
// (§4.8): an external watcher drives the handshake through the HTTP
// endpoints; this package holds the state machine behind them.
package reload

import (
	"context"
	"sync"
	"time"

	"github.com/opencode-ai/sessionbridge/internal/frontend"
	"github.com/opencode-ai/sessionbridge/internal/logging"
	"github.com/opencode-ai/sessionbridge/internal/session"
)

// notifyTimeout bounds the restored-session reconnect notice.
const notifyTimeout = 10 * time.Second

// Status is the response shape for GET /api/can-reload.
type Status struct {
	CanReload   bool `json:"can_reload"`
	ForceReload bool `json:"force_reload"`
	Processing  int  `json:"processing"`
}

// Coordinator tracks the pending/force flags for one reload cycle. It
// holds no session state of its own beyond those flags — session
// processing status is read live from the Manager on every poll.
type Coordinator struct {
	manager *session.Manager

	mu      sync.Mutex
	pending bool
	forced  bool
}

// NewCoordinator builds a Coordinator bound to a session manager.
func NewCoordinator(manager *session.Manager) *Coordinator {
	return &Coordinator{manager: manager}
}

// RequestReload marks a reload cycle pending (POST /api/request-reload).
func (c *Coordinator) RequestReload() {
	c.mu.Lock()
	c.pending = true
	c.mu.Unlock()
}

// ForceReload makes the next CanReload call report true regardless of
// in-flight processing (POST /api/force-reload).
func (c *Coordinator) ForceReload() {
	c.mu.Lock()
	c.forced = true
	c.mu.Unlock()
}

// CanReload reports readiness for GET /api/can-reload: true once no
// session is mid-turn, or immediately if forced.
func (c *Coordinator) CanReload() Status {
	c.mu.Lock()
	forced := c.forced
	c.mu.Unlock()

	processing := 0
	for _, s := range c.manager.All() {
		s.Lock()
		if s.Processing {
			processing++
		}
		s.Unlock()
	}

	return Status{
		CanReload:   forced || processing == 0,
		ForceReload: forced,
		Processing:  processing,
	}
}

// PrepareReload implements POST /api/prepare-reload: disconnect every
// session's agent handle, persist a snapshot, and reset the cycle's
// flags. In-flight turns and pending interactions never block it — that
// transient state is discarded by design (§4.8, §7); the only error
// returned is SaveState's, if persisting the snapshot fails.
func (c *Coordinator) PrepareReload() error {
	for _, s := range c.manager.All() {
		s.Disconnect()
	}

	err := c.manager.SaveState()

	c.mu.Lock()
	c.pending = false
	c.forced = false
	c.mu.Unlock()

	return err
}

// NotifyRestored tells every session restored by LoadState that a
// message will reconnect them, per §4.8 step 5. Each send is capped
// independently so one unreachable chat can't block the others.
func NotifyRestored(ctx context.Context, manager *session.Manager, fe frontend.Frontend) {
	for _, s := range manager.All() {
		s.Lock()
		chatID := s.ChatIdentity
		s.Unlock()

		sendCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
		err := fe.SendText(sendCtx, chatID, "🔄 Reconnected after restart — send a message to continue.", true)
		cancel()
		if err != nil {
			logging.Warn().Err(err).Str("chat", chatID).Msg("restored-session notice failed")
		}
	}
}
