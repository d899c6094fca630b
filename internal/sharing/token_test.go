package sharing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterProducesUniqueTokens(t *testing.T) {
	r := NewRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := r.Register()
		require.NoError(t, err)
		assert.False(t, seen[token], "duplicate token: %s", token)
		seen[token] = true
	}
}

func TestRegistry_CompleteThenWaitDelivers(t *testing.T) {
	r := NewRegistry()
	token, err := r.Register()
	require.NoError(t, err)

	ok := r.Complete(token, "chat-1")
	assert.True(t, ok)

	res, found := r.Wait(token)
	require.True(t, found)
	assert.Equal(t, "chat-1", res.ChatIdentity)
}

func TestRegistry_WaitBlocksUntilComplete(t *testing.T) {
	r := NewRegistry()
	token, err := r.Register()
	require.NoError(t, err)

	type outcome struct {
		res   Result
		found bool
	}
	done := make(chan outcome, 1)
	go func() {
		res, found := r.Wait(token)
		done <- outcome{res, found}
	}()

	time.Sleep(20 * time.Millisecond)
	require.True(t, r.Complete(token, "chat-2"))

	select {
	case o := <-done:
		assert.True(t, o.found)
		assert.Equal(t, "chat-2", o.res.ChatIdentity)
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after Complete")
	}
}

func TestRegistry_CompleteUnknownTokenReturnsFalse(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Complete("nonexistent", "chat-1"))
}

func TestRegistry_CompleteTwiceOnlyDeliversOnce(t *testing.T) {
	r := NewRegistry()
	token, err := r.Register()
	require.NoError(t, err)

	assert.True(t, r.Complete(token, "chat-1"))
	assert.False(t, r.Complete(token, "chat-2"), "second Complete on the same token should not deliver")

	res, found := r.Wait(token)
	require.True(t, found)
	assert.Equal(t, "chat-1", res.ChatIdentity)
}

func TestRegistry_WaitUnknownTokenReturnsFalseImmediately(t *testing.T) {
	r := NewRegistry()

	start := time.Now()
	_, found := r.Wait("nonexistent")
	assert.False(t, found)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRegistry_WaitConsumesToken(t *testing.T) {
	r := NewRegistry()
	token, err := r.Register()
	require.NoError(t, err)
	require.True(t, r.Complete(token, "chat-1"))

	_, found := r.Wait(token)
	require.True(t, found)

	_, found = r.Wait(token)
	assert.False(t, found, "token should be gone after being claimed once")
}

func TestRegistry_CleanupRemovesOldUnclaimedTokens(t *testing.T) {
	r := NewRegistry()
	token, err := r.Register()
	require.NoError(t, err)

	r.mu.Lock()
	r.pending[token].createdAt = time.Now().Add(-tokenTTL - time.Minute)
	r.mu.Unlock()

	removed := r.Cleanup()
	assert.Equal(t, 1, removed)

	_, found := r.Wait(token)
	assert.False(t, found)
}

func TestRegistry_CleanupKeepsFreshTokens(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register()
	require.NoError(t, err)

	removed := r.Cleanup()
	assert.Equal(t, 0, removed)
}
