package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestRedisStoreQuota(t *testing.T) {
	store := newTestRedisStore(t)
	limiter := New(store, "login", 3, time.Minute)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		result, err := limiter.AllowAt(ctx, "ip:10.0.0.1", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.True(t, result.Allowed, "attempt %d should pass", i+1)
	}

	blocked, err := limiter.AllowAt(ctx, "ip:10.0.0.1", base.Add(5*time.Second))
	require.NoError(t, err)
	require.False(t, blocked.Allowed)
	require.Greater(t, blocked.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, blocked.RetryAfter, time.Minute)
}

func TestRedisStoreSlides(t *testing.T) {
	store := newTestRedisStore(t)
	limiter := New(store, "api", 1, time.Minute)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := limiter.AllowAt(ctx, "k", base)
	require.NoError(t, err)
	require.True(t, first.Allowed)

	blocked, err := limiter.AllowAt(ctx, "k", base.Add(30*time.Second))
	require.NoError(t, err)
	require.False(t, blocked.Allowed)
	require.Equal(t, 30*time.Second, blocked.RetryAfter)

	after, err := limiter.AllowAt(ctx, "k", base.Add(61*time.Second))
	require.NoError(t, err)
	require.True(t, after.Allowed)
}

func TestRedisStoreKeysAreIndependent(t *testing.T) {
	store := newTestRedisStore(t)
	limiter := New(store, "api", 1, time.Minute)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a, err := limiter.AllowAt(ctx, "principal:a", base)
	require.NoError(t, err)
	require.True(t, a.Allowed)

	b, err := limiter.AllowAt(ctx, "principal:b", base)
	require.NoError(t, err)
	require.True(t, b.Allowed)
}

func TestRedisStoreConcurrentBurstHonorsQuota(t *testing.T) {
	store := newTestRedisStore(t)
	limiter := New(store, "api", 5, time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	const attempts = 20
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
	require.EqualValues(t, 5, admitted.Load())
}

func TestRedisStoreZeroQuotaRejectsWithoutError(t *testing.T) {
	store := newTestRedisStore(t)
	limiter := New(store, "api", 0, time.Minute)

	result, err := limiter.AllowAt(context.Background(), "principal:none", time.Now())
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, time.Minute, result.RetryAfter)
}

func TestParseTakeReplyRejectsMalformedReplies(t *testing.T) {
	_, err := parseTakeReply("not-a-slice", 10, time.Minute)
	require.Error(t, err)

	_, err = parseTakeReply([]interface{}{int64(1), int64(1)}, 10, time.Minute)
	require.Error(t, err)

	_, err = parseTakeReply([]interface{}{int64(1), "one", int64(0), int64(0)}, 10, time.Minute)
	require.Error(t, err)

	result, err := parseTakeReply([]interface{}{int64(1), int64(3), int64(0), int64(1000)}, 10, time.Minute)
	require.NoError(t, err)
	require.True(t, result.Allowed)
	require.Equal(t, 7, result.Remaining)
}
