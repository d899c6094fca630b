// Package chat implements the Chat Frontend Adapter (§4.9): the
// Telegram-backed half of the bridge, covering authorization (a single
// permitted chat identity), command dispatch, inline-keyboard callback
// handling, and rendering of agent output into the chat SDK's HTML-like
// markup subset.
//
// Bot also owns the per-session turn loop: on an incoming query it
// resolves or creates the bound session, connects (or reuses) an agent
// handle, and pumps the handle's event stream into both this frontend
// and the session's own event bus, so the terminal's SSE stream and the
// chat surface always see the same sequence of events (§4.9 data flow).
package chat
