package reload

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/sessionbridge/internal/frontend"
	"github.com/opencode-ai/sessionbridge/internal/session"
)

func TestCoordinator_CanReload_NoSessions(t *testing.T) {
	m := session.NewManager(filepath.Join(t.TempDir(), "state.json"))
	c := NewCoordinator(m)

	status := c.CanReload()
	assert.True(t, status.CanReload)
	assert.Equal(t, 0, status.Processing)
}

func TestCoordinator_CanReload_BlockedByProcessing(t *testing.T) {
	m := session.NewManager(filepath.Join(t.TempDir(), "state.json"))
	s := m.GetOrCreate("chat-1", "/work")
	s.Lock()
	s.Processing = true
	s.Unlock()

	c := NewCoordinator(m)
	status := c.CanReload()
	assert.False(t, status.CanReload)
	assert.Equal(t, 1, status.Processing)
}

func TestCoordinator_ForceReloadOverridesProcessing(t *testing.T) {
	m := session.NewManager(filepath.Join(t.TempDir(), "state.json"))
	s := m.GetOrCreate("chat-1", "/work")
	s.Lock()
	s.Processing = true
	s.Unlock()

	c := NewCoordinator(m)
	c.ForceReload()

	status := c.CanReload()
	assert.True(t, status.CanReload)
	assert.True(t, status.ForceReload)
}

func TestCoordinator_PrepareReloadDisconnectsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	m := session.NewManager(path)
	s := m.GetOrCreate("chat-1", "/work")
	s.AgentSessionID = "agent-1"
	h := &fakeHandle{}
	s.Handle = h

	c := NewCoordinator(m)
	require.NoError(t, c.PrepareReload())

	assert.Nil(t, s.Handle)
	assert.True(t, h.disconnected)
	assert.FileExists(t, path)
}

type fakeHandle struct {
	disconnected bool
}

func (f *fakeHandle) Interrupt()  {}
func (f *fakeHandle) Disconnect() { f.disconnected = true }

type fakeFrontend struct {
	sent []string
}

func (f *fakeFrontend) SendText(ctx context.Context, chatID, text string, final bool) error {
	f.sent = append(f.sent, chatID)
	return nil
}
func (f *fakeFrontend) SendToolCall(ctx context.Context, chatID, toolName string, input map[string]any) (frontend.ToolCallHandle, error) {
	return "", nil
}
func (f *fakeFrontend) SendToolResult(ctx context.Context, chatID string, handle frontend.ToolCallHandle, result string, isError bool) error {
	return nil
}
func (f *fakeFrontend) RequestPermission(ctx context.Context, chatID string, p frontend.PermissionPrompt) error {
	return nil
}
func (f *fakeFrontend) RequestQuestion(ctx context.Context, chatID string, q frontend.QuestionPrompt) error {
	return nil
}
func (f *fakeFrontend) UpdateStatus(ctx context.Context, chatID string, s frontend.StatusSnapshot) error {
	return nil
}
func (f *fakeFrontend) NotifyTeleport(ctx context.Context, chatID, text string) error { return nil }

func TestNotifyRestored(t *testing.T) {
	m := session.NewManager(filepath.Join(t.TempDir(), "state.json"))
	m.GetOrCreate("chat-1", "/work")
	m.GetOrCreate("chat-2", "/work")

	fe := &fakeFrontend{}
	NotifyRestored(context.Background(), m, fe)

	assert.ElementsMatch(t, []string{"chat-1", "chat-2"}, fe.sent)
}
