// Package ratelimit bounds per-identity request rates with a
// sliding-window-log policy: at most quota admissions inside any trailing
// window of the configured duration, with no boundary bursts.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a single admission check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Store tracks admission timestamps per key. Take evicts entries older than
// now-window, then either records now and admits, or rejects. Recording
// happens before the request is served, so an abandoned request still counts.
type Store interface {
	Take(ctx context.Context, key string, quota int, window time.Duration, now time.Time) (Result, error)
}

// Limiter applies one rate-limiting concern (e.g. login attempts, general
// API traffic). Distinct concerns get distinct limiters; the key prefix keeps
// their per-identity state independent even on a shared store.
type Limiter struct {
	store  Store
	prefix string
	quota  int
	window time.Duration
}

// New constructs a Limiter for one concern.
func New(store Store, prefix string, quota int, window time.Duration) *Limiter {
	return &Limiter{store: store, prefix: prefix, quota: quota, window: window}
}

// Allow checks and records an admission for the identity key.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	return l.AllowAt(ctx, key, time.Now())
}

// AllowAt is Allow with an explicit evaluation time.
func (l *Limiter) AllowAt(ctx context.Context, key string, now time.Time) (Result, error) {
	return l.store.Take(ctx, l.prefix+":"+key, l.quota, l.window, now)
}

// Quota returns the configured maximum admissions per window.
func (l *Limiter) Quota() int { return l.quota }

// Window returns the configured window duration.
func (l *Limiter) Window() time.Duration { return l.window }
