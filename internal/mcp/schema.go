package mcp

import (
	"time"

	"github.com/nvandessel/hivesight/internal/models"
	"github.com/nvandessel/hivesight/internal/store"
	"github.com/nvandessel/hivesight/internal/survey"
)

// SimulateInput defines the input for the hivesight_simulate tool.
type SimulateInput struct {
	Statement  string   `json:"statement" jsonschema:"the statement or question put to every persona"`
	Kind       string   `json:"kind,omitempty" jsonschema:"answer format: likert (default), multiple_choice or yes_no"`
	Options    []string `json:"options,omitempty" jsonschema:"ordered options for multiple_choice questions"`
	SampleSize int      `json:"sample_size" jsonschema:"number of personas to survey"`
	AgeMin     *float64 `json:"age_min,omitempty" jsonschema:"inclusive minimum age"`
	AgeMax     *float64 `json:"age_max,omitempty" jsonschema:"inclusive maximum age"`
	IncomeMin  *float64 `json:"income_min,omitempty" jsonschema:"inclusive minimum annual income"`
	IncomeMax  *float64 `json:"income_max,omitempty" jsonschema:"inclusive maximum annual income"`
	Regions    []string `json:"regions,omitempty" jsonschema:"restrict sampling to these regions"`
	Model      string   `json:"model,omitempty" jsonschema:"model identifier or configured alias"`
	Pivot      string   `json:"pivot,omitempty" jsonschema:"break results down by age, income or region"`
	Target     int      `json:"target,omitempty" jsonschema:"1-based multiple_choice option whose share is estimated (default 1)"`
	Seed       *uint64  `json:"seed,omitempty" jsonschema:"seed for reproducible persona sampling"`
}

// RunOutput is the tool-facing view of a simulation report.
type RunOutput struct {
	RunID         string             `json:"run_id" jsonschema:"id of the recorded run"`
	CreatedAt     string             `json:"created_at" jsonschema:"RFC 3339 start time"`
	Statement     string             `json:"statement"`
	Kind          string             `json:"kind"`
	Provider      string             `json:"provider"`
	Model         string             `json:"model"`
	PointEstimate float64            `json:"point_estimate" jsonschema:"mean score for likert, target proportion (0-1) otherwise"`
	Low           *float64           `json:"ci_low,omitempty" jsonschema:"lower bound of the 95% interval"`
	High          *float64           `json:"ci_high,omitempty" jsonschema:"upper bound of the 95% interval"`
	Target        string             `json:"target,omitempty" jsonschema:"category whose proportion is estimated"`
	ValidCount    int                `json:"valid_count"`
	TotalCount    int                `json:"total_count"`
	Median        float64            `json:"median,omitempty"`
	StdDev        float64            `json:"std_dev,omitempty"`
	Distribution  map[string]float64 `json:"distribution" jsonschema:"share of valid answers per label"`
	Pivot         *models.Pivot      `json:"pivot,omitempty"`
	Cancelled     bool               `json:"cancelled,omitempty"`
	Message       string             `json:"message" jsonschema:"human-readable summary"`
}

// HistoryInput defines the input for the hivesight_history tool.
type HistoryInput struct {
	ID    string `json:"id,omitempty" jsonschema:"run id or unique prefix; when set the full run is returned"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum runs to list (default 20)"`
	Kind  string `json:"kind,omitempty" jsonschema:"only list runs of this question kind"`
}

// HistoryItem is one row of a history listing.
type HistoryItem struct {
	RunID         string   `json:"run_id"`
	CreatedAt     string   `json:"created_at"`
	Statement     string   `json:"statement"`
	Kind          string   `json:"kind"`
	Model         string   `json:"model"`
	PointEstimate float64  `json:"point_estimate"`
	Low           *float64 `json:"ci_low,omitempty"`
	High          *float64 `json:"ci_high,omitempty"`
	ValidCount    int      `json:"valid_count"`
	TotalCount    int      `json:"total_count"`
}

// HistoryOutput defines the output for the hivesight_history tool.
type HistoryOutput struct {
	Runs  []HistoryItem `json:"runs,omitempty" jsonschema:"recorded runs, newest first"`
	Run   *RunOutput    `json:"run,omitempty" jsonschema:"the requested run"`
	Count int           `json:"count"`
}

func toRunOutput(r *survey.Report) RunOutput {
	res := r.Result
	return RunOutput{
		RunID:         r.ID,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		Statement:     r.Request.Question.Statement,
		Kind:          string(res.Kind),
		Provider:      r.Provider,
		Model:         r.Model,
		PointEstimate: res.PointEstimate,
		Low:           res.ConfidenceInterval.Low,
		High:          res.ConfidenceInterval.High,
		Target:        res.Target,
		ValidCount:    res.ValidCount,
		TotalCount:    res.TotalCount,
		Median:        res.Median,
		StdDev:        res.StdDev,
		Distribution:  res.Distribution,
		Pivot:         res.Pivot,
		Cancelled:     r.Cancelled,
		Message:       summaryMessage(res),
	}
}

func toHistoryItem(s store.RunSummary) HistoryItem {
	return HistoryItem{
		RunID:         s.ID,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
		Statement:     s.Statement,
		Kind:          string(s.Kind),
		Model:         s.Model,
		PointEstimate: s.PointEstimate,
		Low:           s.Interval.Low,
		High:          s.Interval.High,
		ValidCount:    s.ValidCount,
		TotalCount:    s.TotalCount,
	}
}
