// Package ratelimit implements a per-client token bucket rate limiter.
// Tokens are refilled lazily on each Allow call; idle buckets are swept on
// the same path, so there is no background goroutine.
package ratelimit

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ErrRateLimited is returned when a client has exhausted its token bucket.
var ErrRateLimited = errors.New("rate limit exceeded")

// Config configures the token bucket rate limiter.
type Config struct {
	RequestsPerMinute int // Tokens added per minute. 0 = unlimited.
	BurstSize         int // Maximum tokens in a bucket. 0 = RequestsPerMinute.
}

// idleAfter is how long an untouched bucket is kept. After this long it has
// refilled completely anyway.
const idleAfter = 10 * time.Minute

// Limiter is a per-client token bucket rate limiter, keyed by client
// address. One client cannot exhaust another's quota.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*bucket
	rate      float64 // tokens per second
	burst     float64
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// NewLimiter creates a rate limiter. If RequestsPerMinute is 0, Allow always
// succeeds.
func NewLimiter(cfg Config) *Limiter {
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = cfg.RequestsPerMinute
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		clients: make(map[string]*bucket),
		rate:    float64(cfg.RequestsPerMinute) / 60.0,
		burst:   float64(burst),
		now:     time.Now,
	}
}

// Enabled reports whether the limiter restricts anything.
func (l *Limiter) Enabled() bool { return l != nil && l.rate > 0 }

// Allow consumes one token for client. It returns ErrRateLimited and the
// time until the next token when the bucket is empty.
func (l *Limiter) Allow(client string) (time.Duration, error) {
	if !l.Enabled() {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.clients[client]
	if !ok {
		b = &bucket{tokens: l.burst, lastFill: now}
		l.clients[client] = b
	}

	b.tokens = math.Min(l.burst, b.tokens+now.Sub(b.lastFill).Seconds()*l.rate)
	b.lastFill = now

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
		return wait, ErrRateLimited
	}
	b.tokens--
	return 0, nil
}

// Clients returns the number of tracked buckets.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleAfter {
		return
	}
	l.lastSweep = now
	for k, b := range l.clients {
		if now.Sub(b.lastFill) >= idleAfter {
			delete(l.clients, k)
		}
	}
}
