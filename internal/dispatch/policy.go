package dispatch

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/nvandessel/hivesight/internal/constants"
)

// Policy is the per-unit retry policy.
type Policy struct {
	// MaxAttempts bounds the oracle calls one unit may spend while the oracle
	// keeps signalling rate limits, first call included.
	MaxAttempts int

	// InitialDelay is the backoff after the first rate-limit signal; it doubles
	// with each further consecutive signal.
	InitialDelay time.Duration

	// MaxDelay caps every backoff, jitter included.
	MaxDelay time.Duration

	// TransientRetries is how many times a non-rate-limit failure is retried.
	// Zero selects the default; NoTransientRetries disables the retry.
	TransientRetries int

	// TransientDelay is the fixed pause before such a retry. Zero selects the
	// default; a negative value retries immediately.
	TransientDelay time.Duration

	// Jitter returns the random addend for each rate-limit backoff. Nil means
	// uniform in [0, 1s).
	Jitter func() time.Duration

	// Sleep pauses for d or until ctx is done. Nil means a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NoTransientRetries disables retries of non-rate-limit failures.
const NoTransientRetries = -1

// DefaultPolicy returns the standard retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:      constants.DefaultMaxAttempts,
		InitialDelay:     constants.DefaultInitialDelay,
		MaxDelay:         constants.DefaultMaxDelay,
		TransientRetries: constants.DefaultTransientRetries,
		TransientDelay:   constants.DefaultTransientDelay,
	}
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = d.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	switch {
	case p.TransientRetries == 0:
		p.TransientRetries = d.TransientRetries
	case p.TransientRetries < 0:
		p.TransientRetries = 0
	}
	switch {
	case p.TransientDelay == 0:
		p.TransientDelay = d.TransientDelay
	case p.TransientDelay < 0:
		p.TransientDelay = 0
	}
	if p.Jitter == nil {
		p.Jitter = uniformJitter
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// Backoff returns the delay after the k-th consecutive rate-limit signal
// (k >= 1): min(InitialDelay*2^(k-1) + jitter, MaxDelay).
func (p Policy) Backoff(k int, jitter time.Duration) time.Duration {
	if k < 1 {
		k = 1
	}
	if jitter < 0 {
		jitter = 0
	}

	delay := p.InitialDelay
	for i := 1; i < k; i++ {
		if delay >= p.MaxDelay {
			break
		}
		delay *= 2
	}

	delay += jitter
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

func uniformJitter() time.Duration {
	return rand.N(constants.MaxJitter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
