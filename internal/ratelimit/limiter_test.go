package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreQuota(t *testing.T) {
	limiter := New(NewMemoryStore(), "login", 10, 15*time.Minute)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		result, err := limiter.AllowAt(ctx, "ip:10.0.0.1", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.True(t, result.Allowed, "attempt %d should pass", i+1)
		require.Equal(t, 10-i-1, result.Remaining)
	}

	result, err := limiter.AllowAt(ctx, "ip:10.0.0.1", base.Add(10*time.Second))
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, 0, result.Remaining)
	require.Greater(t, result.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, result.RetryAfter, 15*time.Minute)
}

func TestMemoryStoreSlidingEviction(t *testing.T) {
	limiter := New(NewMemoryStore(), "api", 2, time.Minute)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := limiter.AllowAt(ctx, "k", base)
	require.NoError(t, err)
	require.True(t, first.Allowed)

	second, err := limiter.AllowAt(ctx, "k", base.Add(30*time.Second))
	require.NoError(t, err)
	require.True(t, second.Allowed)

	blocked, err := limiter.AllowAt(ctx, "k", base.Add(45*time.Second))
	require.NoError(t, err)
	require.False(t, blocked.Allowed)
	require.Equal(t, 15*time.Second, blocked.RetryAfter)

	// The window slides: once the oldest stamp ages out, room opens up.
	after, err := limiter.AllowAt(ctx, "k", base.Add(61*time.Second))
	require.NoError(t, err)
	require.True(t, after.Allowed)
}

func TestMemoryStoreRejectionDoesNotConsume(t *testing.T) {
	limiter := New(NewMemoryStore(), "api", 1, time.Minute)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := limiter.AllowAt(ctx, "k", base)
	require.NoError(t, err)

	// Rejected attempts never extend the window.
	for i := 1; i <= 5; i++ {
		result, err := limiter.AllowAt(ctx, "k", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.False(t, result.Allowed)
	}

	result, err := limiter.AllowAt(ctx, "k", base.Add(61*time.Second))
	require.NoError(t, err)
	require.True(t, result.Allowed)
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	limiter := New(NewMemoryStore(), "api", 1, time.Minute)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a, err := limiter.AllowAt(ctx, "principal:a", base)
	require.NoError(t, err)
	require.True(t, a.Allowed)

	b, err := limiter.AllowAt(ctx, "principal:b", base)
	require.NoError(t, err)
	require.True(t, b.Allowed)
}

func TestLimiterPrefixIsolation(t *testing.T) {
	store := NewMemoryStore()
	login := New(store, "login", 1, time.Minute)
	api := New(store, "api", 1, time.Minute)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := login.AllowAt(ctx, "k", base)
	require.NoError(t, err)
	require.True(t, first.Allowed)

	// Exhausting the login concern leaves the api concern untouched.
	other, err := api.AllowAt(ctx, "k", base)
	require.NoError(t, err)
	require.True(t, other.Allowed)
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()
	limiter := New(store, "api", 5, time.Minute)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := limiter.AllowAt(ctx, "quiet", base)
	require.NoError(t, err)

	store.Sweep(base.Add(2 * time.Minute))

	idx := shardIndex("api:quiet")
	store.shards[idx].mu.Lock()
	_, kept := store.shards[idx].windows["api:quiet"]
	store.shards[idx].mu.Unlock()
	require.False(t, kept, "aged-out window should be reclaimed")
}

func TestMemoryStoreConcurrentBurstHonorsQuota(t *testing.T) {
	limiter := New(NewMemoryStore(), "api", 10, time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	const attempts = 50
	var admitted atomic.Int64
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := limiter.AllowAt(context.Background(), "principal:burst", now)
			if err != nil {
				errs <- err
				return
			}
			if result.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 10, admitted.Load())
}

func TestMemoryStoreZeroQuotaRejectsWithoutPanic(t *testing.T) {
	limiter := New(NewMemoryStore(), "api", 0, time.Minute)

	result, err := limiter.AllowAt(context.Background(), "principal:none", time.Now())
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, time.Minute, result.RetryAfter)

	// Stays rejected on repeat; the empty log never admits.
	result, err = limiter.AllowAt(context.Background(), "principal:none", time.Now())
	require.NoError(t, err)
	require.False(t, result.Allowed)
}
