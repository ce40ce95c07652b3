package web

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_SpacesCallsPerKey(t *testing.T) {
	r := NewRateLimiter(2)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, r.Acquire(ctx, "example.com"))
	require.NoError(t, r.Acquire(ctx, "example.com"))

	assert.GreaterOrEqual(t, time.Since(start), 450*time.Millisecond)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	r := NewRateLimiter(1)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, r.Acquire(ctx, "a.example"))
	require.NoError(t, r.Acquire(ctx, "b.example"))
	require.NoError(t, r.Acquire(ctx, ""))

	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRateLimiter_Disabled(t *testing.T) {
	for _, rps := range []float64{0, -1} {
		r := NewRateLimiter(rps)
		start := time.Now()
		for i := 0; i < 20; i++ {
			require.NoError(t, r.Acquire(context.Background(), "host"))
		}
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	}
}

func TestRateLimiter_ContextCancelled(t *testing.T) {
	r := NewRateLimiter(0.1)
	require.NoError(t, r.Acquire(context.Background(), "host"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Acquire(ctx, "host")
	assert.Error(t, err)
}

func TestRateLimiter_Reset(t *testing.T) {
	r := NewRateLimiter(0.5)
	ctx := context.Background()

	require.NoError(t, r.Acquire(ctx, "host"))
	r.Reset("host")

	start := time.Now()
	require.NoError(t, r.Acquire(ctx, "host"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	require.NoError(t, r.Acquire(ctx, "other"))
	r.Reset()
	start = time.Now()
	require.NoError(t, r.Acquire(ctx, "other"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiter_RecordRateLimit(t *testing.T) {
	r := NewRateLimiter(0)
	r.RecordRateLimit("host", 150*time.Millisecond)

	start := time.Now()
	require.NoError(t, r.Acquire(context.Background(), "host"))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	r.RecordRateLimit("", 0)
	r.mu.Lock()
	assert.WithinDuration(t, time.Now().Add(DefaultBackoff), r.retryAt[GlobalKey], time.Second)
	r.mu.Unlock()
}

func TestRateLimiter_Concurrent(t *testing.T) {
	r := NewRateLimiter(20)
	ctx := context.Background()

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Acquire(ctx, "shared"))
		}()
	}
	wg.Wait()

	// five calls at 20/s need at least four 50ms gaps
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}
