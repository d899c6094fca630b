// Package server implements the HTTP surface described in §4.7: the
// teleport ingress, the SSE stream a terminal consumes, the reload
// handshake, and the setup-link rendezvous. Everything that talks to an
// AI model or a chat SDK lives elsewhere — this package only moves bytes
// between HTTP and the components in internal/session, internal/teleport,
// internal/reload, and internal/sharing.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opencode-ai/sessionbridge/internal/frontend"
	"github.com/opencode-ai/sessionbridge/internal/reload"
	"github.com/opencode-ai/sessionbridge/internal/session"
	"github.com/opencode-ai/sessionbridge/internal/sharing"
	"github.com/opencode-ai/sessionbridge/internal/teleport"
)

// wrapperPIDEnv is the well-known variable the terminal launcher sets
// (§6); its presence is what gates the SSE-idle self-shutdown behavior.
const wrapperPIDEnv = "WRAPPER_PID"

// Config holds HTTP server configuration.
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	OperatorChatID string
	// ProcessCWD seeds a freshly created session's working directory
	// before any teleport has set one explicitly.
	ProcessCWD string
}

// DefaultConfig returns the HTTP server's own defaults; OperatorChatID
// must be filled in by the caller from the loaded operator config.
func DefaultConfig() Config {
	return Config{
		Port:         8787,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams never finish on their own
	}
}

// Server wires the HTTP endpoint table to the session manager and the
// teleport/reload/sharing coordinators.
type Server struct {
	cfg     Config
	router  *chi.Mux
	httpSrv *http.Server

	manager  *session.Manager
	teleport *teleport.Controller
	reload   *reload.Coordinator
	setup    *sharing.Registry
	frontend frontend.Frontend

	wrapperManaged bool

	connMu    sync.Mutex
	connCount int

	// OnIdleShutdown, if set, is invoked once when the last SSE consumer
	// disconnects, no session holds a live agent handle, and the process
	// was started in wrapper-managed mode (§4.7, §4.8).
	OnIdleShutdown func()
}

// New wires a Server to its collaborators and builds the router.
func New(cfg Config, manager *session.Manager, tc *teleport.Controller, rc *reload.Coordinator, setup *sharing.Registry, fe frontend.Frontend) *Server {
	s := &Server{
		cfg:            cfg,
		router:         chi.NewRouter(),
		manager:        manager,
		teleport:       tc,
		reload:         rc,
		setup:          setup,
		frontend:       fe,
		wrapperManaged: os.Getenv(wrapperPIDEnv) != "",
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router exposes the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// connOpened/connClosed track the SSE connection count for the
// wrapper-managed idle-shutdown heuristic (§4.7).
func (s *Server) connOpened() {
	s.connMu.Lock()
	s.connCount++
	s.connMu.Unlock()
}

func (s *Server) connClosed() {
	s.connMu.Lock()
	s.connCount--
	count := s.connCount
	s.connMu.Unlock()

	if count > 0 || !s.wrapperManaged || s.OnIdleShutdown == nil {
		return
	}
	if s.anySessionHasHandle() {
		return
	}
	s.OnIdleShutdown()
}

func (s *Server) anySessionHasHandle() bool {
	for _, sess := range s.manager.All() {
		sess.Lock()
		h := sess.Handle
		sess.Unlock()
		if h != nil {
			return true
		}
	}
	return false
}
