// Package ratelimit throttles per-user request rates with token buckets.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter hands out one token bucket per key. Progress heartbeats
// and view reports arrive every few seconds per client, so each user gets an
// independent budget instead of sharing a global one.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

// New creates a limiter allowing rps sustained requests per key, with burst
// tokens available immediately.
func New(rps float64, burst int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether a request under the given key fits its budget,
// without blocking. A first-seen key gets a fresh bucket.
func (l *KeyedRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

// Stop releases all buckets. Entries are a few words each so they are only
// dropped at shutdown rather than swept during operation. A request racing
// shutdown just gets a fresh bucket.
func (l *KeyedRateLimiter) Stop() {
	l.mu.Lock()
	l.buckets = make(map[string]*rate.Limiter)
	l.mu.Unlock()
}
