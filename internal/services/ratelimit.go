package services

import (
	"context"
	"sync"
	"time"
)

// RateLimiter gates advice requests per user. Implementations must be safe to
// share across worker instances; the redis-backed one in clients/redis is the
// deployment default because a purely local map would let multiple processes
// race past the one-hour limit.
type RateLimiter interface {
	// Allow atomically checks the minimum interval for the key and, when the
	// request is allowed, records it.
	Allow(ctx context.Context, key string) (bool, error)
	// Mark records a request unconditionally (forced requests bypass the
	// interval check but still reset the window).
	Mark(ctx context.Context, key string) error
}

// memoryRateLimiter is the single-process implementation, used in tests and
// local development.
type memoryRateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

func NewMemoryRateLimiter(interval time.Duration) RateLimiter {
	return &memoryRateLimiter{
		interval: interval,
		last:     map[string]time.Time{},
		now:      time.Now,
	}
}

func (l *memoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if last, ok := l.last[key]; ok && now.Sub(last) < l.interval {
		return false, nil
	}
	l.last[key] = now
	return true, nil
}

func (l *memoryRateLimiter) Mark(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[key] = l.now()
	return nil
}
