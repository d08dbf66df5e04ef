// Package aggregate reduces parsed answers to the statistics reported for a
// run: a point estimate with a 95% interval, the answer distribution, and an
// optional demographic pivot.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/nvandessel/hivesight/internal/models"
)

// ErrNoValidResponses is returned when not a single answer survived parsing.
var ErrNoValidResponses = errors.New("no valid responses")

// Options selects the optional parts of the aggregate.
type Options struct {
	// PivotField is "age", "income", "region" or "" for no pivot.
	PivotField string

	// Target is the zero-based option whose proportion is estimated for
	// multiple choice questions. Yes/no questions always target "Yes".
	Target int
}

// Aggregate computes the run result. personas and answers are aligned
// index-for-index; invalid answers count toward TotalCount only.
func Aggregate(personas []models.SampledPersona, answers []models.Answer, q models.Question, opts Options) (models.Result, error) {
	if len(personas) != len(answers) {
		return models.Result{}, fmt.Errorf("aggregate: %d personas but %d answers", len(personas), len(answers))
	}
	if !ValidPivotField(opts.PivotField) {
		return models.Result{}, fmt.Errorf("aggregate: cannot pivot on %q", opts.PivotField)
	}

	labels := q.AnswerLabels()
	result := models.Result{
		Kind:       q.Kind,
		TotalCount: len(answers),
	}

	counts := make([]int, len(labels))
	var scores []float64
	for _, a := range answers {
		slot := q.Slot(a)
		if slot < 0 {
			continue
		}
		counts[slot]++
		result.ValidCount++
		if q.Kind == models.KindLikert {
			scores = append(scores, float64(a.Value))
		}
	}

	if result.ValidCount == 0 {
		return result, ErrNoValidResponses
	}

	result.Distribution = make(map[string]float64, len(labels))
	for i, label := range labels {
		result.Distribution[label] = float64(counts[i]) / float64(result.ValidCount)
	}

	switch q.Kind {
	case models.KindLikert:
		result.PointEstimate, result.ConfidenceInterval = MeanInterval(scores)
		result.Median = Median(scores)
		result.StdDev = StdDev(scores)

	default:
		target := 0
		if q.Kind == models.KindMultipleChoice {
			target = opts.Target
		}
		if target < 0 || target >= len(labels) {
			return result, fmt.Errorf("aggregate: target option %d out of range [0, %d)", target, len(labels))
		}
		successes := counts[target]
		failures := result.ValidCount - successes
		result.Target = labels[target]
		result.PointEstimate = float64(successes) / float64(result.ValidCount)
		result.ConfidenceInterval = BetaInterval(successes, failures)
	}

	if opts.PivotField != "" {
		pivot, err := buildPivot(opts.PivotField, personas, answers, q)
		if err != nil {
			return result, err
		}
		result.Pivot = pivot
	}

	return result, nil
}
