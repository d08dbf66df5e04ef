// Package store persists simulation reports so past runs can be listed and reopened.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/hivesight/internal/models"
	"github.com/nvandessel/hivesight/internal/survey"
)

// ErrNotFound is returned when no run matches the requested ID.
var ErrNotFound = errors.New("run not found")

// ErrAmbiguousID is returned when a short ID prefix matches more than one run.
var ErrAmbiguousID = errors.New("ambiguous run id")

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

// RunSummary is the listing row for one stored run.
type RunSummary struct {
	ID            string              `json:"id"`
	CreatedAt     time.Time           `json:"created_at"`
	Statement     string              `json:"statement"`
	Kind          models.QuestionKind `json:"kind"`
	Provider      string              `json:"provider"`
	Model         string              `json:"model"`
	TotalCount    int                 `json:"total_count"`
	ValidCount    int                 `json:"valid_count"`
	PointEstimate float64             `json:"point_estimate"`
	Interval      models.Interval     `json:"confidence_interval"`
	Target        string              `json:"target,omitempty"`
	Cancelled     bool                `json:"cancelled,omitempty"`
}

// ListOptions filters a run listing.
type ListOptions struct {
	// Limit caps the number of rows; zero or negative uses DefaultListLimit.
	Limit int

	// Kind keeps only runs of this question kind when non-empty.
	Kind models.QuestionKind
}

// RunStore records simulation reports.
type RunStore interface {
	// SaveRun stores a report, replacing any earlier report with the same ID.
	SaveRun(ctx context.Context, report *survey.Report) error

	// GetRun returns the report whose ID equals id or uniquely starts with it.
	GetRun(ctx context.Context, id string) (*survey.Report, error)

	// ListRuns returns summaries newest first.
	ListRuns(ctx context.Context, opts ListOptions) ([]RunSummary, error)

	// DeleteRun removes a run by full ID.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}

// Summarize builds the listing row for a report.
func Summarize(r *survey.Report) RunSummary {
	return RunSummary{
		ID:            r.ID,
		CreatedAt:     r.CreatedAt,
		Statement:     r.Request.Question.Statement,
		Kind:          r.Request.Question.Kind,
		Provider:      r.Provider,
		Model:         r.Model,
		TotalCount:    r.Result.TotalCount,
		ValidCount:    r.Result.ValidCount,
		PointEstimate: r.Result.PointEstimate,
		Interval:      r.Result.ConfidenceInterval,
		Target:        r.Result.Target,
		Cancelled:     r.Cancelled,
	}
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}
