// Package survey runs one simulation end to end: sample personas, build
// prompts, dispatch them to the oracle, parse the replies and aggregate.
package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/hivesight/internal/aggregate"
	"github.com/nvandessel/hivesight/internal/dispatch"
	"github.com/nvandessel/hivesight/internal/logging"
	"github.com/nvandessel/hivesight/internal/models"
	"github.com/nvandessel/hivesight/internal/oracle"
	"github.com/nvandessel/hivesight/internal/persona"
	"github.com/nvandessel/hivesight/internal/prompt"
	"github.com/nvandessel/hivesight/internal/response"
)

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

// Deps are the long-lived collaborators shared by runs.
type Deps struct {
	Pool   *persona.Pool
	Oracle oracle.Oracle

	// Dispatch configures the engine built for each run.
	Dispatch dispatch.Options

	// Params resolves a request's model into generation settings.
	// Nil uses oracle.DefaultParams.
	Params func(model string) oracle.Params

	Logger *slog.Logger
	Events *logging.EventLogger

	// Now is injectable for tests.
	Now func() time.Time
}

// Respondent is one sampled persona with its raw and parsed reply.
type Respondent struct {
	Index    int            `json:"index"`
	Persona  models.Persona `json:"persona"`
	Raw      string         `json:"raw,omitempty"`
	Failure  string         `json:"failure,omitempty"`
	Attempts int            `json:"attempts"`
	Valid    bool           `json:"valid"`
	Answer   string         `json:"answer,omitempty"`
}

// Report is the full record of one run.
type Report struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Seed      uint64        `json:"seed"`

	Request Request       `json:"request"`
	Result  models.Result `json:"result"`

	// Cancelled is set when the context ended before every unit finished.
	Cancelled bool `json:"cancelled,omitempty"`

	Respondents []Respondent `json:"respondents"`
}

// RunSimulation executes req against deps.
//
// Invalid requests fail with ErrInvalidRequest and an empty population with
// persona.ErrEmptyPopulation, both before any oracle call. When no reply
// parses, the report is still returned together with
// aggregate.ErrNoValidResponses so callers can inspect the failures.
func RunSimulation(ctx context.Context, deps Deps, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if deps.Pool == nil || deps.Oracle == nil {
		return nil, fmt.Errorf("run simulation: pool and oracle are required")
	}
	if c, ok := deps.Oracle.(oracle.Checker); ok && !c.Available() {
		return nil, fmt.Errorf("%s: %w", deps.Oracle.Name(), oracle.ErrUnavailable)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	seed := rand.Uint64()
	if req.Seed != nil {
		seed = *req.Seed
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	sampled, err := persona.Sample(deps.Pool, req.SampleSize, req.Demographics.Filters(), rng)
	if err != nil {
		return nil, err
	}

	prompts, err := prompt.BuildAll(sampled, req.Question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	params := oracle.DefaultParams(req.Model)
	if deps.Params != nil {
		params = deps.Params(req.Model)
	}

	report := &Report{
		ID:        uuid.NewString(),
		CreatedAt: now().UTC(),
		Provider:  deps.Oracle.Name(),
		Model:     params.Model,
		Seed:      seed,
		Request:   req,
	}

	log := logger.With("run", report.ID)
	log.Info("simulation started", "kind", req.Question.Kind, "sample", len(sampled), "requested", req.SampleSize, "provider", report.Provider, "model", report.Model)
	deps.Events.Log(map[string]any{
		"event":     "run_started",
		"run":       report.ID,
		"kind":      string(req.Question.Kind),
		"sample":    len(sampled),
		"requested": req.SampleSize,
		"provider":  report.Provider,
		"model":     report.Model,
		"seed":      seed,
	})

	opts := deps.Dispatch
	if opts.Logger == nil {
		opts.Logger = log
	}
	if opts.Events == nil {
		opts.Events = deps.Events
	}

	start := now()
	outcomes := dispatch.New(deps.Oracle, opts).DispatchAll(ctx, prompts, params)
	report.Cancelled = ctx.Err() != nil

	answers := response.ParseAll(outcomes, req.Question)
	report.Respondents = respondents(sampled, outcomes, answers, req.Question)

	result, aggErr := aggregate.Aggregate(sampled, answers, req.Question, aggregate.Options{
		PivotField: req.PivotField,
		Target:     req.Target,
	})
	report.Result = result
	report.Duration = now().Sub(start)

	deps.Events.Log(map[string]any{
		"event":     "run_finished",
		"run":       report.ID,
		"valid":     result.ValidCount,
		"total":     result.TotalCount,
		"cancelled": report.Cancelled,
		"duration":  report.Duration.String(),
	})

	if aggErr != nil {
		if errors.Is(aggErr, aggregate.ErrNoValidResponses) {
			log.Warn("no valid responses", "total", result.TotalCount, "cancelled", report.Cancelled)
			return report, aggErr
		}
		return nil, aggErr
	}

	log.Info("simulation finished", "valid", result.ValidCount, "total", result.TotalCount, "estimate", result.PointEstimate, "duration", report.Duration)
	return report, nil
}

func respondents(sampled []models.SampledPersona, outcomes []models.Outcome, answers []models.Answer, q models.Question) []Respondent {
	labels := q.AnswerLabels()
	out := make([]Respondent, len(sampled))
	for i, sp := range sampled {
		r := Respondent{
			Index:    sp.Index,
			Persona:  sp.Persona,
			Raw:      outcomes[i].Text,
			Failure:  outcomes[i].Failure,
			Attempts: outcomes[i].Attempts,
		}
		if slot := q.Slot(answers[i]); slot >= 0 {
			r.Valid = true
			r.Answer = labels[slot]
		}
		out[i] = r
	}
	return out
}
