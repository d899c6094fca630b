package session

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/opencode-ai/sessionbridge/internal/event"
	"github.com/opencode-ai/sessionbridge/internal/logging"
)

// Manager owns the mapping from chat identity to session, and the
// lookup from session id to session (§4.1).
type Manager struct {
	mu           sync.RWMutex
	sessions     map[string]*Session // session id -> session
	byIdentity   map[string]string   // chat identity -> session id
	snapshotPath string
}

// NewManager creates an empty manager. snapshotPath is the well-known
// local path used by SaveState/LoadState.
func NewManager(snapshotPath string) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		byIdentity:   make(map[string]string),
		snapshotPath: snapshotPath,
	}
}

// GetOrCreate is idempotent: it returns the existing session bound to
// chatIdentity, or creates one with default mode and the orchestrator
// process's own working directory.
func (m *Manager) GetOrCreate(chatIdentity, processCWD string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byIdentity[chatIdentity]; ok {
		if s, ok := m.sessions[id]; ok {
			return s
		}
	}

	s := New(chatIdentity, processCWD)
	m.sessions[s.ID] = s
	m.byIdentity[chatIdentity] = s.ID

	event.Publish(event.Event{
		Type: event.SessionCreated,
		Data: event.SessionCreatedData{SessionID: s.ID, ChatID: chatIdentity},
	})
	return s
}

// Get looks up a session by internal id.
func (m *Manager) Get(sessionID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

// GetByIdentity looks up the session currently bound to a chat identity.
func (m *Manager) GetByIdentity(chatIdentity string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byIdentity[chatIdentity]
	if !ok {
		return nil
	}
	return m.sessions[id]
}

// Clear disconnects the agent (if any) and removes the binding for a
// chat identity. Any active event consumers receive no special event;
// they will either be superseded by a new session or idle out.
func (m *Manager) Clear(chatIdentity string) {
	m.mu.Lock()
	id, ok := m.byIdentity[chatIdentity]
	if !ok {
		m.mu.Unlock()
		return
	}
	s := m.sessions[id]
	delete(m.byIdentity, chatIdentity)
	delete(m.sessions, id)
	m.mu.Unlock()

	if s != nil {
		s.Disconnect()
		s.Bus.Close()
	}
	event.Publish(event.Event{
		Type: event.SessionDeleted,
		Data: event.SessionDeletedData{SessionID: id, ChatID: chatIdentity},
	})
}

// All returns every live session (used by reload quiescence polling and
// status aggregation).
func (m *Manager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// snapshotEntry is the persisted shape of one chat identity's session,
// per §6: live handles, pending interactions, and queued events are
// deliberately omitted.
type snapshotEntry struct {
	SessionID      string `json:"session_id"`
	AgentSessionID string `json:"claude_session_id"`
	TerminalID     string `json:"terminal_id"`
	CWD            string `json:"cwd"`
	IsProcessing   bool   `json:"is_processing"`
	PermissionMode string `json:"permission_mode"`
}

// SaveState writes a process-local snapshot of every session that has
// an agent-issued conversation id (sessions never connected to an
// agent have nothing useful to resume). An empty result deletes any
// existing snapshot file rather than writing an empty object.
func (m *Manager) SaveState() error {
	m.mu.RLock()
	state := make(map[string]snapshotEntry)
	for identity, id := range m.byIdentity {
		s, ok := m.sessions[id]
		if !ok || s.AgentSessionID == "" {
			continue
		}
		s.Lock()
		state[identity] = snapshotEntry{
			SessionID:      s.ID,
			AgentSessionID: s.AgentSessionID,
			TerminalID:     s.TerminalID,
			CWD:            s.CWD,
			IsProcessing:   s.Processing,
			PermissionMode: string(s.Mode),
		}
		s.Unlock()
	}
	m.mu.RUnlock()

	if len(state) == 0 {
		if _, err := os.Stat(m.snapshotPath); err == nil {
			return os.Remove(m.snapshotPath)
		}
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(m.snapshotPath, data, 0o600)
}

// LoadState reconstructs sessions from a prior SaveState. Pending
// interactions and the processing flag are not restored to a live
// value; only enough state to resume the conversation on the next
// message survives. Decode errors silently fall back to an empty
// state, per §4.1's failure policy.
func (m *Manager) LoadState() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		return
	}

	var state map[string]snapshotEntry
	if err := json.Unmarshal(data, &state); err != nil {
		logging.Warn().Err(err).Msg("discarding unreadable session snapshot")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for identity, entry := range state {
		s := &Session{
			ID:                 entry.SessionID,
			AgentSessionID:     entry.AgentSessionID,
			TerminalID:         entry.TerminalID,
			CWD:                entry.CWD,
			ChatIdentity:       identity,
			Mode:               Mode(entry.PermissionMode),
			Bus:                event.NewSessionBus(),
			ToolMessageHandles: make(map[string]any),
		}
		if s.Mode == "" {
			s.Mode = ModeDefault
		}
		m.sessions[s.ID] = s
		m.byIdentity[identity] = s.ID
	}
}

// ClearStateFile removes the snapshot file after a successful restore.
func (m *Manager) ClearStateFile() error {
	if _, err := os.Stat(m.snapshotPath); err != nil {
		return nil
	}
	return os.Remove(m.snapshotPath)
}
