// Package persona holds the demographic persona pool and draws weighted
// samples of respondents from it.
package persona

import (
	"errors"
	"sort"

	"github.com/nvandessel/hivesight/internal/models"
)

var (
	// ErrEmptyPopulation is returned when the filters match no persona.
	ErrEmptyPopulation = errors.New("filters matched no personas")

	// ErrNoWeight is returned when every matching persona has zero weight.
	ErrNoWeight = errors.New("matching personas carry no sampling weight")
)

// Pool is an ordered, read-only collection of personas. It is loaded once and
// shared by every run; nothing in this package mutates it after construction.
type Pool struct {
	personas []models.Persona
}

// NewPool creates a pool holding a copy of personas.
func NewPool(personas []models.Persona) *Pool {
	cp := make([]models.Persona, len(personas))
	copy(cp, personas)
	return &Pool{personas: cp}
}

// Len returns the number of personas in the pool.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.personas)
}

// At returns the persona at position i.
func (p *Pool) At(i int) models.Persona {
	return p.personas[i]
}

// Filter returns the personas matching every filter (logical AND), in pool order.
// The pool itself is left untouched.
func (p *Pool) Filter(filters ...Filter) []models.Persona {
	if p == nil {
		return nil
	}
	out := make([]models.Persona, 0, len(p.personas))
	for _, persona := range p.personas {
		if matchAll(persona, filters) {
			out = append(out, persona)
		}
	}
	return out
}

// Summary describes the pool, or a filtered slice of it.
type Summary struct {
	Count          int      `json:"count"`
	TotalWeight    float64  `json:"total_weight"`
	WeightedAge    float64  `json:"weighted_mean_age"`
	WeightedIncome float64  `json:"weighted_mean_income"`
	Regions        []string `json:"regions"`
}

// Summarize computes weighted means over personas.
func Summarize(personas []models.Persona) Summary {
	s := Summary{Count: len(personas)}
	seen := make(map[string]bool)
	var ageSum, incomeSum float64
	for _, p := range personas {
		s.TotalWeight += p.Weight
		ageSum += float64(p.Age) * p.Weight
		incomeSum += p.Income * p.Weight
		if p.Region != "" && !seen[p.Region] {
			seen[p.Region] = true
			s.Regions = append(s.Regions, p.Region)
		}
	}
	if s.TotalWeight > 0 {
		s.WeightedAge = ageSum / s.TotalWeight
		s.WeightedIncome = incomeSum / s.TotalWeight
	}
	sort.Strings(s.Regions)
	return s
}
