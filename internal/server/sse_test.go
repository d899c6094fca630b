package server

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/sessionbridge/internal/event"
	"github.com/opencode-ai/sessionbridge/internal/frontend"
	"github.com/opencode-ai/sessionbridge/internal/reload"
	"github.com/opencode-ai/sessionbridge/internal/session"
	"github.com/opencode-ai/sessionbridge/internal/sharing"
	"github.com/opencode-ai/sessionbridge/internal/teleport"
)

// noopFrontend satisfies frontend.Frontend for tests that exercise code
// paths which fire notifications but don't assert on their content.
type noopFrontend struct{}

func (noopFrontend) SendText(ctx context.Context, chatID, text string, final bool) error {
	return nil
}
func (noopFrontend) SendToolCall(ctx context.Context, chatID, toolName string, input map[string]any) (frontend.ToolCallHandle, error) {
	return "", nil
}
func (noopFrontend) SendToolResult(ctx context.Context, chatID string, handle frontend.ToolCallHandle, result string, isError bool) error {
	return nil
}
func (noopFrontend) RequestPermission(ctx context.Context, chatID string, p frontend.PermissionPrompt) error {
	return nil
}
func (noopFrontend) RequestQuestion(ctx context.Context, chatID string, q frontend.QuestionPrompt) error {
	return nil
}
func (noopFrontend) UpdateStatus(ctx context.Context, chatID string, s frontend.StatusSnapshot) error {
	return nil
}
func (noopFrontend) NotifyTeleport(ctx context.Context, chatID, text string) error {
	return nil
}

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	m := session.NewManager(filepath.Join(t.TempDir(), "state.json"))
	tc := teleport.NewController(m, noopFrontend{})
	rc := reload.NewCoordinator(m)
	setup := sharing.NewRegistry()

	cfg := DefaultConfig()
	cfg.OperatorChatID = "operator"
	return New(cfg, m, tc, rc, setup, noopFrontend{}), m
}

func TestHandleStream_MissingTerminalID(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	w := httptest.NewRecorder()
	s.handleStream(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStream_DeliversPublishedEvent(t *testing.T) {
	s, m := newTestServer(t)

	ts := httptest.NewServer(http.HandlerFunc(s.handleStream))
	defer ts.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest(http.MethodGet, ts.URL+"?terminal_id=t1", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	time.Sleep(50 * time.Millisecond)
	sess := m.GetOrCreate("operator", "")
	sess.Emit(event.SessionEvent{Type: event.TagText, Content: "hello"})

	scanner := bufio.NewScanner(resp.Body)
	found := false
	deadline := time.Now().Add(time.Second)
	for scanner.Scan() && time.Now().Before(deadline) {
		line := scanner.Text()
		if strings.Contains(line, "hello") {
			found = true
			break
		}
	}
	assert.True(t, found, "expected the published event to reach the stream")
}

func TestHandleStream_TracksConnectionCount(t *testing.T) {
	s, _ := newTestServer(t)

	ts := httptest.NewServer(http.HandlerFunc(s.handleStream))
	defer ts.Close()

	client := &http.Client{Timeout: 500 * time.Millisecond}
	req, err := http.NewRequest(http.MethodGet, ts.URL+"?terminal_id=t1", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	if err == nil {
		resp.Body.Close()
	}

	require.Eventually(t, func() bool {
		s.connMu.Lock()
		defer s.connMu.Unlock()
		return s.connCount == 0
	}, time.Second, 10*time.Millisecond)
}
