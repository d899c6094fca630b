// Package server implements the HTTP endpoint table of §4.7: the
// teleport ingress (POST /teleport), the SSE stream a terminal consumes
// (GET /stream), the reload handshake (POST /api/prepare-reload, GET
// /api/can-reload, POST /api/request-reload, POST /api/force-reload),
// and the setup-link rendezvous (POST /api/setup-link, GET
// /api/setup-link/{token}), plus GET /health and GET /metrics.
//
// Router is chi with chi/middleware (RequestID, Logger, Recoverer,
// RealIP) and go-chi/cors. Every non-2xx response uses the
// `{"error":"<reason>"}` envelope.
//
// This package owns none of the domain logic — it is a thin adapter
// over internal/session, internal/teleport, internal/reload, and
// internal/sharing, following the teacher's own separation between the
// router/handler layer and the services it calls.
package server
