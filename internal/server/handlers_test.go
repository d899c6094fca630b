package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/sessionbridge/internal/session"
)

func withChiContext(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleTeleport_MissingFields(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/teleport", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	s.handleTeleport(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTeleport_FirstTeleportWithNoExistingSessionSucceeds(t *testing.T) {
	// §8 scenario S1: no active session yet; the first teleport to a
	// freshly started server creates one rather than being rejected.
	s, m := newTestServer(t)
	body, _ := json.Marshal(teleportRequest{CWD: "/work", TerminalID: "t1"})
	req := httptest.NewRequest(http.MethodPost, "/teleport", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.handleTeleport(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, m.GetByIdentity("operator"))
}

func TestHandleTeleport_Success(t *testing.T) {
	s, m := newTestServer(t)
	m.GetOrCreate("operator", "/old")

	body, _ := json.Marshal(teleportRequest{CWD: "/new", TerminalID: "t1", PermissionMode: session.ModeAcceptEdits})
	req := httptest.NewRequest(http.MethodPost, "/teleport", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.handleTeleport(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var result map[string]bool
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.True(t, result["ok"])
}

func TestHandleCanReload_NoSessions(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.handleCanReload(w, httptest.NewRequest(http.MethodGet, "/api/can-reload", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var result map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, true, result["can_reload"])
}

func TestHandleForceReload_OverridesCanReload(t *testing.T) {
	s, m := newTestServer(t)
	sess := m.GetOrCreate("operator", "/work")
	sess.Lock()
	sess.Processing = true
	sess.Unlock()

	w := httptest.NewRecorder()
	s.handleForceReload(w, httptest.NewRequest(http.MethodPost, "/api/force-reload", nil))

	var result map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, true, result["can_reload"])
	assert.Equal(t, true, result["force_reload"])
}

func TestHandlePrepareReload(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.handlePrepareReload(w, httptest.NewRequest(http.MethodPost, "/api/prepare-reload", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleSetupLinkRegisterAndWait(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.handleSetupLinkRegister(w, httptest.NewRequest(http.MethodPost, "/api/setup-link", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var reg map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&reg))
	require.NotEmpty(t, reg["token"])

	require.True(t, s.setup.Complete(reg["token"], "operator"))

	waitReq := httptest.NewRequest(http.MethodGet, "/api/setup-link/"+reg["token"], nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("token", reg["token"])
	waitReq = waitReq.WithContext(withChiContext(waitReq, rctx))

	w2 := httptest.NewRecorder()
	s.handleSetupLinkWait(w2, waitReq)

	assert.Equal(t, http.StatusOK, w2.Code)
	var result map[string]string
	require.NoError(t, json.NewDecoder(w2.Body).Decode(&result))
	assert.Equal(t, "operator", result["chat_identity"])
}

func TestHandleSetupLinkWait_MissingToken(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/setup-link/", nil)
	rctx := chi.NewRouteContext()
	req = req.WithContext(withChiContext(req, rctx))

	w := httptest.NewRecorder()
	s.handleSetupLinkWait(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
