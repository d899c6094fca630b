package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes registers the endpoint table from §4.7.
func (s *Server) setupRoutes() {
	r := s.router

	r.Post("/teleport", s.handleTeleport)
	r.Get("/health", s.handleHealth)
	r.Get("/stream", s.handleStream)

	r.Route("/api", func(r chi.Router) {
		r.Post("/prepare-reload", s.handlePrepareReload)
		r.Get("/can-reload", s.handleCanReload)
		r.Post("/request-reload", s.handleRequestReload)
		r.Post("/force-reload", s.handleForceReload)
		r.Post("/setup-link", s.handleSetupLinkRegister)
		r.Get("/setup-link/{token}", s.handleSetupLinkWait)
	})

	r.Handle("/metrics", promhttp.Handler())
}
