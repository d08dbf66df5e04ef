// Package models defines the value types that flow through a survey simulation run.
package models

import "fmt"

// Persona is a synthetic respondent profile drawn from the demographic dataset.
type Persona struct {
	Age    int     `json:"age" yaml:"age"`
	Region string  `json:"region" yaml:"region"`
	Income float64 `json:"income" yaml:"income"`

	// Weight is a relative sampling mass, not a probability.
	Weight float64 `json:"weight" yaml:"weight"`
}

// Describe renders the persona the way it is introduced to the oracle.
func (p Persona) Describe() string {
	return fmt.Sprintf("%d-year-old from %s with annual income of $%s", p.Age, p.Region, formatIncome(p.Income))
}

// Field returns the numeric value of a named persona field.
// Supported names are "age", "income" and "weight".
func (p Persona) Field(name string) (float64, bool) {
	switch name {
	case FieldAge:
		return float64(p.Age), true
	case FieldIncome:
		return p.Income, true
	case FieldWeight:
		return p.Weight, true
	}
	return 0, false
}

// Persona field names used by filters and pivots.
const (
	FieldAge    = "age"
	FieldRegion = "region"
	FieldIncome = "income"
	FieldWeight = "weight"
)

// SampledPersona is a persona selected for a run. Index is its position in the
// sampled sequence and links it to the prompt and outcome at the same index.
type SampledPersona struct {
	Index int `json:"index"`
	Persona
}

// formatIncome drops the fractional part for whole-dollar incomes.
func formatIncome(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
