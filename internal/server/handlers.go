package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opencode-ai/sessionbridge/internal/logging"
	"github.com/opencode-ai/sessionbridge/internal/session"
)

// notifyTimeout bounds the fire-and-forget chat notice sent on
// /api/request-reload (mirrors the teleport/reload packages' own cap).
const notifyTimeout = 10 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type teleportRequest struct {
	SessionID      string      `json:"session_id"`
	CWD            string      `json:"cwd"`
	TerminalID     string      `json:"terminal_id"`
	PermissionMode session.Mode `json:"permission_mode"`
}

func (s *Server) handleTeleport(w http.ResponseWriter, r *http.Request) {
	var req teleportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TerminalID == "" || req.CWD == "" {
		writeError(w, http.StatusBadRequest, "cwd and terminal_id are required")
		return
	}
	if req.PermissionMode == "" {
		req.PermissionMode = session.ModeDefault
	}

	err := s.teleport.Handle(r.Context(), s.cfg.OperatorChatID, req.CWD, req.TerminalID, req.PermissionMode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handlePrepareReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reload.PrepareReload(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCanReload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reload.CanReload())
}

func (s *Server) handleRequestReload(w http.ResponseWriter, r *http.Request) {
	s.reload.RequestReload()

	if s.frontend != nil && s.cfg.OperatorChatID != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := s.frontend.SendText(ctx, s.cfg.OperatorChatID, "🔄 Reload requested — will restart once idle.", false); err != nil {
				logging.Warn().Err(err).Msg("reload notice failed")
			}
		}()
	}

	writeJSON(w, http.StatusOK, s.reload.CanReload())
}

func (s *Server) handleForceReload(w http.ResponseWriter, r *http.Request) {
	s.reload.ForceReload()
	writeJSON(w, http.StatusOK, s.reload.CanReload())
}

func (s *Server) handleSetupLinkRegister(w http.ResponseWriter, r *http.Request) {
	token, err := s.setup.Register()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleSetupLinkWait(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	res, ok := s.setup.Wait(token)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]bool{"pending": true})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
