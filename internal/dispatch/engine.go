// Package dispatch sends every prompt of a run to the oracle with bounded
// concurrency and per-unit retry, returning one outcome per prompt in prompt
// order.
//
// A unit's permanent failure is recorded in its own slot and never cancels
// sibling units. Cancelling the caller's context stops retries promptly; every
// slot is still filled, with a failure for units that did not finish.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/hivesight/internal/constants"
	"github.com/nvandessel/hivesight/internal/logging"
	"github.com/nvandessel/hivesight/internal/models"
	"github.com/nvandessel/hivesight/internal/oracle"
	"github.com/nvandessel/hivesight/internal/ratelimit"
	"github.com/nvandessel/hivesight/internal/tracing"
)

// Progress reports one finished unit.
type Progress struct {
	Index     int  `json:"index"`
	Completed int  `json:"completed"`
	Total     int  `json:"total"`
	Failed    bool `json:"failed"`
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// Concurrency bounds the number of units in flight.
	Concurrency int

	// Policy is the per-unit retry policy.
	Policy Policy

	// Limiter, when set, paces oracle calls client-side.
	Limiter *ratelimit.Limiter

	// Logger receives operational logs. Nil discards them.
	Logger *slog.Logger

	// Events receives one JSONL event per retry and per finished unit.
	Events *logging.EventLogger

	// Progress, when set, receives one value per finished unit. Sends give up
	// when the context is done, so the channel should be buffered or drained.
	Progress chan<- Progress

	// Tracer overrides the global tracer.
	Tracer trace.Tracer
}

// Engine dispatches prompts to an oracle.
type Engine struct {
	oracle oracle.Oracle
	opts   Options
}

// New creates an Engine for o.
func New(o oracle.Oracle, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = constants.DefaultConcurrency
	}
	opts.Policy = opts.Policy.withDefaults()
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Tracer == nil {
		opts.Tracer = tracing.Tracer()
	}
	return &Engine{oracle: o, opts: opts}
}

// DispatchAll invokes the oracle once per prompt (plus retries) and returns
// outcomes aligned index-for-index with prompts.
func (e *Engine) DispatchAll(ctx context.Context, prompts []string, params oracle.Params) []models.Outcome {
	outcomes := make([]models.Outcome, len(prompts))
	if len(prompts) == 0 {
		return outcomes
	}

	var completed atomic.Int64
	total := len(prompts)

	// Plain Group: a failed unit must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)

	for i, prompt := range prompts {
		g.Go(func() error {
			out := e.runUnit(ctx, i, prompt, params)
			outcomes[i] = out

			done := int(completed.Add(1))
			e.report(ctx, Progress{Index: i, Completed: done, Total: total, Failed: out.Failed()})
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// runUnit owns all retry state for one prompt.
func (e *Engine) runUnit(ctx context.Context, index int, prompt string, params oracle.Params) models.Outcome {
	ctx, span := e.opts.Tracer.Start(ctx, "oracle.invoke",
		trace.WithAttributes(
			attribute.Int("hivesight.unit", index),
			attribute.String("hivesight.oracle", e.oracle.Name()),
			attribute.String("hivesight.model", params.Model),
		))
	defer span.End()

	out := e.attempt(ctx, index, prompt, params)

	span.SetAttributes(attribute.Int("hivesight.attempts", out.Attempts))
	if out.Failed() {
		span.SetStatus(codes.Error, out.Failure)
	}

	e.opts.Events.Log(map[string]any{
		"event":    "unit_finished",
		"index":    index,
		"attempts": out.Attempts,
		"failed":   out.Failed(),
		"failure":  out.Failure,
	})
	return out
}

func (e *Engine) attempt(ctx context.Context, index int, prompt string, params oracle.Params) models.Outcome {
	p := e.opts.Policy
	log := e.opts.Logger.With("unit", index)

	var (
		attempts    int
		rateLimited int
		transient   int
		lastDelay   time.Duration
	)

	for {
		if err := ctx.Err(); err != nil {
			return cancelled(attempts, err)
		}
		if e.opts.Limiter != nil {
			if err := e.opts.Limiter.Wait(ctx, e.oracle.Name()); err != nil {
				if ctx.Err() != nil {
					return cancelled(attempts, ctx.Err())
				}
				return models.FailureOutcome(err.Error(), attempts)
			}
		}

		attempts++
		text, err := e.oracle.Invoke(ctx, prompt, params)
		if err == nil {
			log.Log(ctx, logging.LevelTrace, "oracle reply", "attempt", attempts, "prompt", prompt, "text", text)
			return models.TextOutcome(text, attempts)
		}
		if ctx.Err() != nil {
			return cancelled(attempts, ctx.Err())
		}

		var delay time.Duration
		if oracle.IsRateLimited(err) {
			rateLimited++
			if attempts >= p.MaxAttempts {
				log.Warn("giving up after rate limits", "attempts", attempts, "error", err)
				return models.FailureOutcome(fmt.Sprintf("rate limited after %d attempts: %v", attempts, err), attempts)
			}
			delay = p.Backoff(rateLimited, p.Jitter())
			if delay < lastDelay {
				delay = lastDelay
			}
			lastDelay = delay
		} else {
			transient++
			if transient > p.TransientRetries {
				log.Debug("oracle call failed", "attempts", attempts, "error", err)
				return models.FailureOutcome(err.Error(), attempts)
			}
			delay = p.TransientDelay
		}

		log.Debug("retrying oracle call", "attempt", attempts, "delay", delay, "rate_limited", oracle.IsRateLimited(err), "error", err)
		e.opts.Events.Log(map[string]any{
			"event":        "retry",
			"index":        index,
			"attempt":      attempts,
			"delay_ms":     delay.Milliseconds(),
			"rate_limited": oracle.IsRateLimited(err),
			"error":        err.Error(),
		})

		if err := p.Sleep(ctx, delay); err != nil {
			return cancelled(attempts, err)
		}
	}
}

func (e *Engine) report(ctx context.Context, p Progress) {
	if e.opts.Progress == nil {
		return
	}
	select {
	case e.opts.Progress <- p:
	case <-ctx.Done():
	}
}

func cancelled(attempts int, err error) models.Outcome {
	reason := "cancelled"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "deadline exceeded"
	}
	return models.FailureOutcome(reason, attempts)
}
