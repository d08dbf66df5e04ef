// Package ratelimit provides per-key token bucket rate limiting for oracle
// pacing and the tool surfaces.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nvandessel/hivesight/internal/constants"
)

// Tool names guarded by NewToolLimiters.
const (
	ToolSimulate = "hivesight_simulate"
	ToolHistory  = "hivesight_history"
)

// Limiter implements a per-key token bucket rate limiter.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(rate float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// refill returns the bucket for key with tokens topped up to now.
// Caller must hold l.mu.
func (l *Limiter) refill(key string) *bucket {
	now := l.nowFunc()

	b, ok := l.buckets[key]
	if !ok {
		// First request for this key: start with full burst
		b = &bucket{
			tokens:    float64(l.burst),
			lastCheck: now,
		}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed > 0 {
		b.tokens += l.rate * elapsed
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.lastCheck = now
	}
	return b
}

// Allow checks if a request for the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	if b.tokens < 1.0 {
		return false
	}

	b.tokens--
	return true
}

// Reserve takes a token for key, going into debt if none is available, and
// returns how long the caller must wait before using it. A zero-rate limiter
// with an empty bucket cannot pay the debt back, so Reserve reports ok=false
// and takes nothing.
func (l *Limiter) Reserve(key string) (wait time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	if b.tokens >= 1.0 {
		b.tokens--
		return 0, true
	}
	if l.rate <= 0 {
		return 0, false
	}

	b.tokens--
	deficit := -b.tokens
	return time.Duration(deficit / l.rate * float64(time.Second)), true
}

// cancel returns a reserved token to the bucket.
func (l *Limiter) cancel(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		b.tokens++
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
	}
}

// Wait blocks until a token for key is available or ctx is done.
// A cancelled wait gives its token back.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wait, ok := l.Reserve(key)
	if !ok {
		return fmt.Errorf("rate limit for %s can never be satisfied (rate 0, bucket empty)", key)
	}
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		l.cancel(key)
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
// A simulation fans out to many oracle calls, so it is guarded far more tightly
// than the read-only history tool.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		ToolSimulate: NewLimiter(constants.SimulateToolRate, constants.SimulateToolBurst), // 6/minute, burst 2
		ToolHistory:  NewLimiter(constants.HistoryToolRate, constants.HistoryToolBurst),   // 60/minute, burst 10
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error if rate limited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil // No limiter configured = no limit
	}

	if !limiter.Allow(toolName) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}

	return nil
}
