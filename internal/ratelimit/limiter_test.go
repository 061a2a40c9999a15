package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/linkdive/linkdive/internal/domain"
	"github.com/linkdive/linkdive/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu    sync.Mutex
	state map[string]*domain.RateLimitState
}

func newMemoryStore() *memoryStore {
	return &memoryStore{state: make(map[string]*domain.RateLimitState)}
}

func (s *memoryStore) Load(_ context.Context, name string) (*domain.RateLimitState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state[name]; ok {
		copied := *st
		return &copied, nil
	}
	return nil, nil
}

func (s *memoryStore) Save(_ context.Context, state *domain.RateLimitState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	s.state[state.Name] = &copied
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "text"})
}

func TestLimiterExhaustsCapacity(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	l := NewLimiter("ahrefs", 30, 5, nil, testLogger())
	l.now = func() time.Time { return now }
	l.last = now

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(ctx), "call %d should be admitted", i+1)
	}
	assert.False(t, l.Allow(ctx), "call past capacity should be rejected")
}

func TestLimiterRefillsAtConfiguredRate(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	l := NewLimiter("ahrefs", 30, 3, nil, testLogger())
	l.now = func() time.Time { return now }
	l.last = now

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.True(t, l.Allow(ctx))
	}
	require.False(t, l.Allow(ctx))

	// 30 tokens/min refills one token every two seconds.
	now = now.Add(2 * time.Second)
	assert.True(t, l.Allow(ctx))
	assert.False(t, l.Allow(ctx))
}

func TestLimiterRefillCapsAtCapacity(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	l := NewLimiter("dataforseo", 30, 2, nil, testLogger())
	l.now = func() time.Time { return now }
	l.last = now

	ctx := context.Background()
	require.True(t, l.Allow(ctx))

	// A long idle period must not bank more than the bucket holds.
	now = now.Add(1 * time.Hour)
	require.True(t, l.Allow(ctx))
	require.True(t, l.Allow(ctx))
	assert.False(t, l.Allow(ctx))
}

func TestLimiterPersistsAndRestoresState(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	l := NewLimiter("ahrefs", 30, 4, store, testLogger())
	l.now = func() time.Time { return now }
	l.last = now

	ctx := context.Background()
	require.True(t, l.Allow(ctx))
	require.True(t, l.Allow(ctx))

	saved, err := store.Load(ctx, "ahrefs")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.InDelta(t, 2.0, saved.Tokens, 0.001)

	// A fresh limiter picks up where the old one left off.
	restored := NewLimiter("ahrefs", 30, 4, store, testLogger())
	restored.now = func() time.Time { return now }
	assert.InDelta(t, 2.0, restored.Tokens(), 0.001)
}

func TestLimiterDefaults(t *testing.T) {
	l := NewLimiter("ahrefs", 0, 0, nil, testLogger())
	assert.Equal(t, 30, l.rate)
	assert.Equal(t, 30, l.capacity)
	assert.InDelta(t, 30.0, l.Tokens(), 0.001)
}
