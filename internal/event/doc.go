// Package event provides two complementary pub/sub mechanisms.
//
// Bus is a process-wide, watermill-backed fan-out for cross-cutting
// notifications (session lifecycle, permission requests/resolutions)
// consumed by in-process observers that don't need strict per-consumer
// ordering — the chat status-message updater, metrics.
//
// SessionBus is a per-session bounded FIFO with one queue per SSE
// consumer: the orchestrator's event loop for a session is the sole
// producer, and each terminal's /stream connection is an independent
// consumer. A slow consumer never blocks the producer past the queue
// bound; on overflow the oldest undelivered event for that consumer is
// dropped and the consumer is marked lossy, surfacing a synthetic error
// event at its next read. A return_to_terminal or superseded event
// closes the consumer. This is the bus the HTTP server's SSE handler
// reads from; it is deliberately not the same structure as Bus, because
// spec-level ordering/backpressure guarantees are per-session, not
// global.
//
// # Thread safety
//
// Both are safe for concurrent publish/subscribe.
package event
