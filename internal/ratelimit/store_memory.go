package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 64

// MemoryStore keeps sliding windows in process memory. Keys are spread over
// a fixed set of shards, each with its own mutex, so concurrent requests for
// different identities never contend on a single lock while requests for the
// same identity serialize their evict-then-append sequence.
type MemoryStore struct {
	shards [shardCount]memoryShard
}

type memoryShard struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
}

type slidingWindow struct {
	stamps []time.Time
	ttl    time.Duration
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i].windows = make(map[string]*slidingWindow)
	}
	return s
}

// Take implements Store.
func (s *MemoryStore) Take(_ context.Context, key string, quota int, window time.Duration, now time.Time) (Result, error) {
	shard := &s.shards[shardIndex(key)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	sw := shard.windows[key]
	if sw == nil {
		sw = &slidingWindow{ttl: window}
		shard.windows[key] = sw
	}
	sw.evict(now, window)

	if len(sw.stamps) >= quota {
		// A non-positive quota leaves the log empty; the full window is the
		// only honest retry hint then.
		res := Result{
			Allowed:    false,
			Limit:      quota,
			Remaining:  0,
			RetryAfter: window,
			ResetAt:    now.Add(window),
		}
		if len(sw.stamps) > 0 {
			oldest := sw.stamps[0]
			res.RetryAfter = window - now.Sub(oldest)
			res.ResetAt = oldest.Add(window)
		}
		return res, nil
	}

	sw.stamps = append(sw.stamps, now)
	return Result{
		Allowed:   true,
		Limit:     quota,
		Remaining: quota - len(sw.stamps),
		ResetAt:   sw.stamps[0].Add(window),
	}, nil
}

// Sweep discards windows whose every entry has aged out. Call it
// periodically to reclaim memory from identities that went quiet.
func (s *MemoryStore) Sweep(now time.Time) {
	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.Lock()
		for key, sw := range shard.windows {
			sw.evict(now, sw.ttl)
			if len(sw.stamps) == 0 {
				delete(shard.windows, key)
			}
		}
		shard.mu.Unlock()
	}
}

// Janitor runs Sweep every interval until the context is cancelled.
func (s *MemoryStore) Janitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

func (sw *slidingWindow) evict(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.stamps); i++ {
		if sw.stamps[i].After(cutoff) {
			break
		}
	}
	sw.stamps = sw.stamps[i:]
}

func shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}

var _ Store = (*MemoryStore)(nil)
