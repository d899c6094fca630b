package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opencode-ai/sessionbridge/internal/event"
)

// sseHeartbeatInterval bounds the idle gap between emissions on an SSE
// consumer (§8 property 8).
const sseHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for the SSE wire format (§6):
// `event: <name>` then `data: <json>` then a blank line, flushed per
// write.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) writeEvent(e event.SessionEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) writeHeartbeat() {
	fmt.Fprint(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// handleStream implements GET /stream?terminal_id=…: the authorized
// session's events, FIFO, with a keepalive heartbeat every 30s and
// lossy-notice injection handled transparently by Consumer.Next.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	terminalID := r.URL.Query().Get("terminal_id")
	if terminalID == "" {
		writeError(w, http.StatusBadRequest, "terminal_id is required")
		return
	}

	sess := s.manager.GetOrCreate(s.cfg.OperatorChatID, s.cfg.ProcessCWD)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	consumer, unsub := sess.Bus.SubscribeConsumer(terminalID)
	defer unsub()

	s.connOpened()
	defer s.connClosed()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-consumer.Next():
			if !ok {
				return
			}
			if err := sse.writeEvent(e); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}
