package server

import (
	"encoding/json"
	"net/http"
)

// errorEnvelope is the one error shape every non-2xx response uses (§6).
type errorEnvelope struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes the `{"error":"<reason>"}` envelope.
func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, errorEnvelope{Error: reason})
}
