// Package session owns the Session data model and the Manager that
// maps chat identities to sessions.
//
// A Session carries everything the rest of the orchestrator needs:
// identity (internal id plus, once known, the agent-issued conversation
// id used for resumption), bindings (cwd, terminal id, chat identity),
// mode, runtime state (agent handle, processing flag, pending
// permission/question, the rejection-reason and custom-answer flags),
// accounting, a per-session event bus, and the tool-invocation-id to
// chat-message-handle scratch map used to edit a rendered tool call in
// place once its result arrives.
//
// Manager is deliberately thin: get-or-create, get, clear, and a
// snapshot pair (SaveState/LoadState) used by the reload coordinator.
// Mutation of a Session's own fields happens on the session's own
// mutex, not the Manager's — the Manager only protects its own maps.
package session
