package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/hivesight/internal/aggregate"
	"github.com/nvandessel/hivesight/internal/models"
	"github.com/nvandessel/hivesight/internal/ratelimit"
	"github.com/nvandessel/hivesight/internal/sanitize"
	"github.com/nvandessel/hivesight/internal/store"
	"github.com/nvandessel/hivesight/internal/survey"
)

const recentRunsURI = "hivesight://runs/recent"

// registerTools registers the hivesight MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolSimulate,
		Description: "Survey a weighted sample of synthetic personas with a statement and return the estimate, 95% interval and answer distribution",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolHistory,
		Description: "List recorded simulation runs, or fetch one run by id",
	}, s.handleHistory)
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         recentRunsURI,
		Name:        "hivesight-recent-runs",
		Description: "The most recent simulation runs with their estimates.",
		MIMEType:    "text/markdown",
	}, s.handleRecentRunsResource)
}

func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ RunOutput, retErr error) {
	start := time.Now()
	var runID string
	defer func() {
		s.auditTool(ratelimit.ToolSimulate, start, retErr, runID, sanitizeToolParams(map[string]any{
			"statement": args.Statement, "kind": args.Kind, "options": args.Options,
			"sample_size": args.SampleSize, "age_min": args.AgeMin, "age_max": args.AgeMax,
			"income_min": args.IncomeMin, "income_max": args.IncomeMax, "regions": args.Regions,
			"model": args.Model, "pivot": args.Pivot, "target": args.Target, "seed": args.Seed,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolSimulate); err != nil {
		return nil, RunOutput{}, err
	}

	simReq, err := args.request()
	if err != nil {
		return nil, RunOutput{}, err
	}

	report, err := survey.RunSimulation(ctx, s.deps, simReq)
	if report != nil {
		runID = report.ID
		if saveErr := s.store.SaveRun(context.WithoutCancel(ctx), report); saveErr != nil {
			s.logger.Warn("failed to record run", "run", report.ID, "error", saveErr)
		}
	}
	if err != nil {
		if errors.Is(err, aggregate.ErrNoValidResponses) && report != nil {
			return nil, RunOutput{}, fmt.Errorf("run %s: %w (%s)", report.ID, err, firstFailure(report))
		}
		return nil, RunOutput{}, err
	}

	return nil, toRunOutput(report), nil
}

func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args HistoryInput) (_ *sdk.CallToolResult, _ HistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolHistory, start, retErr, args.ID, sanitizeToolParams(map[string]any{
			"id": args.ID, "limit": args.Limit, "kind": args.Kind,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolHistory); err != nil {
		return nil, HistoryOutput{}, err
	}

	if args.ID != "" {
		report, err := s.store.GetRun(ctx, args.ID)
		if err != nil {
			return nil, HistoryOutput{}, err
		}
		out := toRunOutput(report)
		return nil, HistoryOutput{Run: &out, Count: 1}, nil
	}

	opts := store.ListOptions{Limit: args.Limit}
	if args.Kind != "" {
		kind, err := models.ParseQuestionKind(args.Kind)
		if err != nil {
			return nil, HistoryOutput{}, err
		}
		opts.Kind = kind
	}

	runs, err := s.store.ListRuns(ctx, opts)
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}
	items := make([]HistoryItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, toHistoryItem(r))
	}
	return nil, HistoryOutput{Runs: items, Count: len(items)}, nil
}

// handleRecentRunsResource renders the latest runs as markdown.
func (s *Server) handleRecentRunsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	runs, err := s.store.ListRuns(ctx, store.ListOptions{Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Recent Simulations\n\n")
	if len(runs) == 0 {
		sb.WriteString("No simulations recorded yet. Run one with `hivesight_simulate`.\n")
	}
	for _, r := range runs {
		fmt.Fprintf(&sb, "- `%s` %s: %q (%s, %d/%d valid) %s\n",
			shortID(r.ID), r.CreatedAt.Format(time.DateTime), r.Statement, r.Kind,
			r.ValidCount, r.TotalCount, formatEstimate(r.Kind, r.Target, r.PointEstimate, r.Interval))
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      recentRunsURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// request converts tool input into a simulation request.
func (in SimulateInput) request() (survey.Request, error) {
	kind, err := models.ParseQuestionKind(in.Kind)
	if err != nil {
		return survey.Request{}, fmt.Errorf("%w: %w", survey.ErrInvalidRequest, err)
	}
	req := survey.Request{
		Question: sanitize.Question(models.Question{
			Statement: in.Statement,
			Kind:      kind,
			Options:   in.Options,
		}),
		SampleSize: in.SampleSize,
		Demographics: survey.Demographics{
			AgeMin:    in.AgeMin,
			AgeMax:    in.AgeMax,
			IncomeMin: in.IncomeMin,
			IncomeMax: in.IncomeMax,
			Regions:   in.Regions,
		},
		Model:      in.Model,
		PivotField: in.Pivot,
		Seed:       in.Seed,
	}
	if in.Target > 0 {
		req.Target = in.Target - 1
	} else if in.Target < 0 {
		return survey.Request{}, fmt.Errorf("%w: target must be 1 or greater", survey.ErrInvalidRequest)
	}
	return req, nil
}

func summaryMessage(res models.Result) string {
	return fmt.Sprintf("%s from %d/%d valid answers",
		formatEstimate(res.Kind, res.Target, res.PointEstimate, res.ConfidenceInterval), res.ValidCount, res.TotalCount)
}

func formatEstimate(kind models.QuestionKind, target string, estimate float64, ci models.Interval) string {
	if kind == models.KindLikert {
		if !ci.Defined() {
			return fmt.Sprintf("mean %.2f", estimate)
		}
		return fmt.Sprintf("mean %.2f (95%% CI %.2f-%.2f)", estimate, *ci.Low, *ci.High)
	}
	if !ci.Defined() {
		return fmt.Sprintf("%s %.1f%%", target, estimate*100)
	}
	return fmt.Sprintf("%s %.1f%% (95%% CI %.1f%%-%.1f%%)", target, estimate*100, *ci.Low*100, *ci.High*100)
}

func firstFailure(r *survey.Report) string {
	for _, resp := range r.Respondents {
		if resp.Failure != "" {
			return "first failure: " + resp.Failure
		}
	}
	for _, resp := range r.Respondents {
		if resp.Raw != "" {
			return fmt.Sprintf("first unparsable reply: %q", resp.Raw)
		}
	}
	return "no replies"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
