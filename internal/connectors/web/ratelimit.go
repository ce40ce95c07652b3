package web

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// GlobalKey is the limiter key used when callers pass an empty key.
const GlobalKey = "global"

// DefaultBackoff applies when a 429 response carries no usable Retry-After.
const DefaultBackoff = 60 * time.Second

// RateLimiter spaces requests per key (normally the target host).
// Each key gets its own token bucket with burst 1, so successive Acquire
// calls for a key return at least 1/rps apart. A non-positive rate
// disables throttling.
type RateLimiter struct {
	mu       sync.Mutex
	rps      float64
	limiters map[string]*rate.Limiter
	retryAt  map[string]time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second per key.
func NewRateLimiter(rps float64) *RateLimiter {
	return &RateLimiter{
		rps:      rps,
		limiters: make(map[string]*rate.Limiter),
		retryAt:  make(map[string]time.Time),
	}
}

// Acquire blocks until a request for key may proceed.
// The only error is cancellation of ctx.
func (r *RateLimiter) Acquire(ctx context.Context, key string) error {
	if key == "" {
		key = GlobalKey
	}

	r.mu.Lock()
	retryAt := r.retryAt[key]
	var limiter *rate.Limiter
	if r.rps > 0 {
		limiter = r.limiters[key]
		if limiter == nil {
			limiter = rate.NewLimiter(rate.Limit(r.rps), 1)
			r.limiters[key] = limiter
		}
	}
	r.mu.Unlock()

	// Honour backoff from an earlier 429 first
	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if limiter == nil {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

// RecordRateLimit delays further requests for key by retryAfter.
// Call this when an upstream answers 429.
func (r *RateLimiter) RecordRateLimit(key string, retryAfter time.Duration) {
	if key == "" {
		key = GlobalKey
	}
	if retryAfter <= 0 {
		retryAfter = DefaultBackoff
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt[key] = time.Now().Add(retryAfter)
}

// Reset forgets the state of the given keys, or of every key when none
// are given.
func (r *RateLimiter) Reset(keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(keys) == 0 {
		r.limiters = make(map[string]*rate.Limiter)
		r.retryAt = make(map[string]time.Time)
		return
	}
	for _, k := range keys {
		if k == "" {
			k = GlobalKey
		}
		delete(r.limiters, k)
		delete(r.retryAt, k)
	}
}
