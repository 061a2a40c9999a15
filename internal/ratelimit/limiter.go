package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/linkdive/linkdive/internal/domain"
	"github.com/linkdive/linkdive/internal/logger"
)

// StateStore persists bucket state between process restarts.
// *repository.RateLimitRepository satisfies this.
type StateStore interface {
	Load(ctx context.Context, name string) (*domain.RateLimitState, error)
	Save(ctx context.Context, state *domain.RateLimitState) error
}

// Limiter is a token bucket guarding calls to one external provider.
// The bucket starts full, refills continuously at rate/60 tokens per
// second up to capacity, and each admitted call consumes one token.
// State is written back after every check; persistence failures are
// logged and never block an admission decision.
type Limiter struct {
	name     string
	capacity int
	rate     int // tokens per minute

	mu     sync.Mutex
	tokens float64
	last   time.Time

	store StateStore
	log   *logger.Logger
	now   func() time.Time
}

// NewLimiter creates a token bucket for the named provider, restoring
// persisted state when the store has any. A nil store keeps the bucket
// purely in memory.
func NewLimiter(name string, ratePerMinute, capacity int, store StateStore, log *logger.Logger) *Limiter {
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	if capacity <= 0 {
		capacity = ratePerMinute
	}

	l := &Limiter{
		name:     name,
		capacity: capacity,
		rate:     ratePerMinute,
		tokens:   float64(capacity),
		store:    store,
		log:      log,
		now:      time.Now,
	}
	l.last = l.now()

	if store != nil {
		if state, err := store.Load(context.Background(), name); err != nil {
			log.WithField(logger.FieldComponent, "ratelimit").WithError(err).
				Warnf("failed to restore rate limit state for %s", name)
		} else if state != nil {
			l.tokens = state.Tokens
			if !state.UpdatedAt.IsZero() {
				l.last = state.UpdatedAt
			}
		}
	}
	return l
}

// Allow reports whether one call may proceed, consuming a token if so.
// A false result means the caller should skip the call entirely rather
// than wait.
func (l *Limiter) Allow(ctx context.Context) bool {
	l.mu.Lock()

	now := l.now()
	elapsed := now.Sub(l.last).Seconds()
	if elapsed > 0 {
		l.tokens += float64(l.rate) / 60.0 * elapsed
		if l.tokens > float64(l.capacity) {
			l.tokens = float64(l.capacity)
		}
	}
	l.last = now

	allowed := l.tokens >= 1
	if allowed {
		l.tokens--
	}
	state := l.snapshotLocked(now)
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.Save(ctx, state); err != nil {
			l.log.WithField(logger.FieldComponent, "ratelimit").WithError(err).
				Warnf("failed to persist rate limit state for %s", l.name)
		}
	}
	return allowed
}

// Tokens returns the current token count without consuming anything.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens
}

func (l *Limiter) snapshotLocked(now time.Time) *domain.RateLimitState {
	return &domain.RateLimitState{
		Name:          l.name,
		Tokens:        l.tokens,
		Capacity:      l.capacity,
		RatePerMinute: l.rate,
		UpdatedAt:     now,
	}
}
