// Package oracle defines the narrow capability the survey engine needs from a
// language model, plus adapters for hosted providers and a scripted mock.
//
// The dispatch layer only ever sees the Oracle interface; which provider sits
// behind it is decided once, at construction time, by New.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nvandessel/hivesight/internal/constants"
)

var (
	// ErrRateLimited marks a provider refusal that should be retried with backoff.
	ErrRateLimited = errors.New("oracle rate limited")

	// ErrUnavailable is returned when an oracle is not configured (e.g. no API key).
	ErrUnavailable = errors.New("oracle not available")
)

// Params are the per-call generation settings.
type Params struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultParams returns the generation settings the survey product uses.
func DefaultParams(model string) Params {
	return Params{
		Model:       model,
		Temperature: constants.DefaultTemperature,
		MaxTokens:   constants.DefaultMaxTokens,
	}
}

// Oracle answers one role-played prompt with plain text.
// Implementations must be safe for concurrent use.
type Oracle interface {
	// Invoke sends prompt and returns the model's text. Rate-limit refusals
	// must wrap ErrRateLimited so callers can tell them apart from other failures.
	Invoke(ctx context.Context, prompt string, params Params) (string, error)

	// Name identifies the provider in logs and history.
	Name() string
}

// Closer is an optional interface for oracles that hold resources requiring cleanup.
type Closer interface {
	Close() error
}

// RateLimitError carries the provider's retry hint, when it sent one.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited (retry after %v): %s", e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("%s: rate limited: %s", e.Provider, e.Message)
}

// Unwrap lets errors.Is match ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// IsRateLimited reports whether err is a rate-limit signal.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// statusError converts a non-200 HTTP response into an error, mapping 429 to
// a RateLimitError.
func statusError(provider string, resp *http.Response, body []byte) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Provider:   provider,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    truncate(string(body), 200),
		}
	}
	return fmt.Errorf("%s: API returned status %d: %s", provider, resp.StatusCode, truncate(string(body), 200))
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Checker is an optional interface for oracles that can report readiness
// before any call is made. Consumers should type-assert: if c, ok := o.(Checker); ok { ... }
type Checker interface {
	Available() bool
}
