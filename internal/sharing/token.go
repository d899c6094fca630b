// Package sharing implements the setup-link rendezvous (§3 SetupLinkToken,
// §4.7 POST/GET /api/setup-link): a short-lived token that lets the
// out-of-scope setup wizard register itself, then long-poll for the chat
// pairing result a human completes elsewhere (e.g. by messaging the bot
// with a linking command).
package sharing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// tokenTTL bounds how long an unclaimed token stays registered before
// Cleanup reclaims it.
const tokenTTL = 5 * time.Minute

// longPollTimeout is the maximum duration GET /api/setup-link/{tok} may
// block waiting for a result (§4.7).
const longPollTimeout = 300 * time.Second

// Result is the pairing payload delivered to the waiting setup wizard
// once a chat identity completes the link.
type Result struct {
	ChatIdentity string `json:"chat_identity"`
}

// pendingLink is one registered token awaiting pairing.
type pendingLink struct {
	createdAt time.Time
	done      chan Result
	once      sync.Once
}

// Registry tracks outstanding setup-link tokens (§3 SetupLinkToken). Each
// token is single-use: the first Complete call delivers the result to the
// (at most one) blocked Wait caller; later Complete/Wait calls on the
// same token see it already gone.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*pendingLink
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]*pendingLink)}
}

// Register implements POST /api/setup-link: mint a token and hold it open
// for pairing. The caller embeds the token in whatever the wizard shows
// the user (a link, a code) to relay to the chat frontend.
func (r *Registry) Register() (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate setup-link token: %w", err)
	}

	r.mu.Lock()
	r.pending[token] = &pendingLink{
		createdAt: time.Now(),
		done:      make(chan Result, 1),
	}
	r.mu.Unlock()

	return token, nil
}

// Complete resolves a pending token with the chat identity that claimed
// it (e.g. via a chat `/link <token>` command). Returns false if the
// token is unknown or already resolved.
func (r *Registry) Complete(token, chatIdentity string) bool {
	r.mu.Lock()
	link, ok := r.pending[token]
	r.mu.Unlock()
	if !ok {
		return false
	}

	delivered := false
	link.once.Do(func() {
		link.done <- Result{ChatIdentity: chatIdentity}
		delivered = true
	})
	return delivered
}

// Wait implements GET /api/setup-link/{tok}: block up to 300s for the
// token to be claimed. Returns (Result, true) on success and (Result{},
// false) on unknown token or timeout — callers treat both the same way,
// as "not yet paired", rather than as an error.
func (r *Registry) Wait(token string) (Result, bool) {
	r.mu.Lock()
	link, ok := r.pending[token]
	r.mu.Unlock()
	if !ok {
		return Result{}, false
	}

	select {
	case res := <-link.done:
		r.mu.Lock()
		delete(r.pending, token)
		r.mu.Unlock()
		return res, true
	case <-time.After(longPollTimeout):
		return Result{}, false
	}
}

// Cleanup removes tokens older than tokenTTL that were never claimed.
// Intended to run periodically so an abandoned setup flow doesn't leak
// a channel forever.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	now := time.Now()
	for token, link := range r.pending {
		if now.Sub(link.createdAt) > tokenTTL {
			delete(r.pending, token)
			removed++
		}
	}
	return removed
}

// generateToken mints a URL-safe random token.
func generateToken() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
