package ratelimit

import (
	"sync"
	"time"
)

// Scans walk the full window and are O(n²) in expense count, so the
// scan endpoint is throttled per client with a token bucket.

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter keeps one token bucket per key (typically client IP +
// endpoint). Idle buckets are evicted once they are full again, so
// the map does not grow with every IP ever seen.
type Limiter struct {
	mu sync.Mutex
	m  map[string]*bucket
}

func New() *Limiter {
	return &Limiter{m: make(map[string]*bucket)}
}

// Allow consumes one token for key if available. The first call for a
// key starts the bucket full.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Sweep removes buckets that have fully refilled; safe to call from a
// background ticker.
func (l *Limiter) Sweep() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.m {
		refilled := b.tokens + now.Sub(b.last).Seconds()*b.refillRate
		if refilled >= b.capacity {
			delete(l.m, key)
		}
	}
}
