package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBackend struct {
	*MemoryBackend
	loads int
}

func (c *countingBackend) Load(ctx context.Context, browserID, key string) (string, bool, error) {
	c.loads++
	return c.MemoryBackend.Load(ctx, browserID, key)
}

func TestCachedBackendServesRepeatedReads(t *testing.T) {
	inner := &countingBackend{MemoryBackend: NewMemoryBackend()}
	cb := NewCachedBackend(inner, 16, time.Minute)
	ctx := context.Background()

	require.NoError(t, cb.Save(ctx, "b1", KeyToken, "abc"))
	for i := 0; i < 3; i++ {
		v, ok, err := cb.Load(ctx, "b1", KeyToken)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "abc", v)
	}
	assert.Equal(t, 1, inner.loads)

	// absence is cached too
	_, ok, _ := cb.Load(ctx, "b1", KeyUser)
	_, ok2, _ := cb.Load(ctx, "b1", KeyUser)
	assert.False(t, ok || ok2)
	assert.Equal(t, 2, inner.loads)
}

func TestCachedBackendInvalidatesOnWrites(t *testing.T) {
	inner := &countingBackend{MemoryBackend: NewMemoryBackend()}
	cb := NewCachedBackend(inner, 16, time.Minute)
	ctx := context.Background()

	require.NoError(t, cb.Save(ctx, "b1", KeyToken, "abc"))
	_, _, _ = cb.Load(ctx, "b1", KeyToken)
	require.NoError(t, cb.Delete(ctx, "b1", KeyToken))
	_, ok, _ := cb.Load(ctx, "b1", KeyToken)
	assert.False(t, ok)
}

func TestExternalChangeBypassesStaleCache(t *testing.T) {
	inner := NewMemoryBackend()
	cb := NewCachedBackend(inner, 16, time.Minute)
	hub := NewHub(cb)
	c := hub.Open("b1")
	require.NoError(t, c.Set(KeyToken, "abc"))
	require.True(t, IsAuthenticated(c))

	// another instance deletes the token directly in the shared backend
	require.NoError(t, inner.Delete(context.Background(), "b1", KeyToken))
	assert.True(t, IsAuthenticated(c), "cache still holds the old value")

	hub.NotifyExternal("b1", KeyToken)
	assert.False(t, IsAuthenticated(c))
}

// gatedBackend pauses the first armed Load after it has read the inner value.
type gatedBackend struct {
	*MemoryBackend
	armed   chan struct{}
	read    chan struct{}
	release chan struct{}
}

func newGatedBackend() *gatedBackend {
	g := &gatedBackend{
		MemoryBackend: NewMemoryBackend(),
		armed:         make(chan struct{}, 1),
		read:          make(chan struct{}),
		release:       make(chan struct{}),
	}
	g.armed <- struct{}{}
	return g
}

func (g *gatedBackend) Load(ctx context.Context, browserID, key string) (string, bool, error) {
	v, ok, err := g.MemoryBackend.Load(ctx, browserID, key)
	select {
	case <-g.armed:
		close(g.read)
		<-g.release
	default:
	}
	return v, ok, err
}

func TestCachedBackendDropsFillRacingDelete(t *testing.T) {
	ctx := context.Background()
	inner := newGatedBackend()
	require.NoError(t, inner.MemoryBackend.Save(ctx, "b1", KeyToken, "abc"))
	cb := NewCachedBackend(inner, 16, time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		v, ok, err := cb.Load(ctx, "b1", KeyToken)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "abc", v)
	}()

	<-inner.read
	require.NoError(t, cb.Delete(ctx, "b1", KeyToken))
	close(inner.release)
	<-done

	_, ok, err := cb.Load(ctx, "b1", KeyToken)
	require.NoError(t, err)
	assert.False(t, ok, "a read in flight during logout must not repopulate the cache")
}

func TestCachedBackendDropsFillRacingInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := newGatedBackend()
	require.NoError(t, inner.MemoryBackend.Save(ctx, "b1", KeyToken, "abc"))
	cb := NewCachedBackend(inner, 16, time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = cb.Load(ctx, "b1", KeyToken)
	}()

	<-inner.read
	// another instance removes the token and reports it
	require.NoError(t, inner.MemoryBackend.Delete(ctx, "b1", KeyToken))
	cb.Invalidate("b1")
	close(inner.release)
	<-done

	_, ok, _ := cb.Load(ctx, "b1", KeyToken)
	assert.False(t, ok)
}
