// Package ratelimit provides a token bucket limiter for outbound
// provider API calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket. New(10, time.Minute) allows 10 units of
// work per minute.
type Limiter struct {
	mu       sync.Mutex // protects lastTime and tokens
	lastTime time.Time
	tokens   int

	window time.Duration
	rate   int
}

// New creates a limiter allowing rate units of work per window. The
// bucket starts full.
func New(rate int, window time.Duration) *Limiter {
	return &Limiter{
		window:   window,
		rate:     rate,
		lastTime: time.Now(),
		tokens:   rate,
	}
}

// Acquire returns nil when work may proceed. If the bucket is empty it
// sleeps until a token accumulates, or until ctx is done, in which case
// it returns ctx.Err().
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		if l.tryAcquire() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.window / time.Duration(l.rate)):
			// The bucket was empty. Assuming an even spread of tokens
			// across the window, 1/Nth of the window is long enough for
			// at least one token to accumulate.
		}
	}
}

func (l *Limiter) tryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastTime)
	l.lastTime = now

	// Refill proportionally to the time since the last call.
	l.tokens += int(elapsed.Nanoseconds() * int64(l.rate) / l.window.Nanoseconds())
	l.tokens = min(l.tokens, l.rate)
	if l.tokens <= 0 {
		return false
	}

	l.tokens--
	return true
}
