package survey

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nvandessel/hivesight/internal/aggregate"
	"github.com/nvandessel/hivesight/internal/constants"
	"github.com/nvandessel/hivesight/internal/models"
	"github.com/nvandessel/hivesight/internal/persona"
	"github.com/nvandessel/hivesight/internal/prompt"
)

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid simulation request")

// Demographics restricts the population a run samples from. Nil bounds are open.
type Demographics struct {
	AgeMin    *float64 `json:"age_min,omitempty"`
	AgeMax    *float64 `json:"age_max,omitempty"`
	IncomeMin *float64 `json:"income_min,omitempty"`
	IncomeMax *float64 `json:"income_max,omitempty"`
	Regions   []string `json:"regions,omitempty"`
}

// Filters converts the restrictions into persona filters.
func (d Demographics) Filters() []persona.Filter {
	var filters []persona.Filter
	if f, ok := rangeFilter(models.FieldAge, d.AgeMin, d.AgeMax); ok {
		filters = append(filters, f)
	}
	if f, ok := rangeFilter(models.FieldIncome, d.IncomeMin, d.IncomeMax); ok {
		filters = append(filters, f)
	}

	var regions []string
	for _, r := range d.Regions {
		if r = strings.TrimSpace(r); r != "" {
			regions = append(regions, r)
		}
	}
	if len(regions) > 0 {
		filters = append(filters, persona.RegionFilter{Regions: regions})
	}
	return filters
}

func rangeFilter(field string, lo, hi *float64) (persona.RangeFilter, bool) {
	if lo == nil && hi == nil {
		return persona.RangeFilter{}, false
	}
	f := persona.Between(field, negInf, posInf)
	if lo != nil {
		f.Min = *lo
	}
	if hi != nil {
		f.Max = *hi
	}
	return f, true
}

// Request is one simulation run.
type Request struct {
	Question   models.Question `json:"question"`
	SampleSize int             `json:"sample_size"`

	Demographics Demographics `json:"demographics"`

	// Model is a model identifier or configured alias; empty selects the default.
	Model string `json:"model,omitempty"`

	// PivotField is "age", "income", "region" or empty.
	PivotField string `json:"pivot,omitempty"`

	// Target is the zero-based multiple choice option whose share is estimated.
	Target int `json:"target,omitempty"`

	// Seed makes persona sampling reproducible; nil draws a fresh seed.
	Seed *uint64 `json:"seed,omitempty"`
}

// Validate checks the request without touching the pool or the oracle.
func (r Request) Validate() error {
	if r.SampleSize < 1 || r.SampleSize > constants.MaxSampleSize {
		return fmt.Errorf("%w: sample size must be between 1 and %d, got %d", ErrInvalidRequest, constants.MaxSampleSize, r.SampleSize)
	}
	if err := prompt.Validate(r.Question); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := persona.ValidateFilters(r.Demographics.Filters()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if !aggregate.ValidPivotField(r.PivotField) {
		return fmt.Errorf("%w: cannot pivot on %q (valid: %s)", ErrInvalidRequest, r.PivotField, strings.Join(aggregate.PivotFields, ", "))
	}
	if r.Question.Kind == models.KindMultipleChoice && (r.Target < 0 || r.Target >= len(r.Question.Options)) {
		return fmt.Errorf("%w: target option %d out of range (1-%d)", ErrInvalidRequest, r.Target+1, len(r.Question.Options))
	}
	return nil
}
