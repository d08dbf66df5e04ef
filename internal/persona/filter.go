package persona

import (
	"fmt"
	"strings"

	"github.com/nvandessel/hivesight/internal/models"
)

// Filter is a predicate over personas.
type Filter interface {
	Match(p models.Persona) bool
	Validate() error
	String() string
}

// RangeFilter keeps personas whose numeric field lies in [Min, Max], both ends inclusive.
type RangeFilter struct {
	Field string  `json:"field"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Between builds an inclusive range filter.
func Between(field string, min, max float64) RangeFilter {
	return RangeFilter{Field: field, Min: min, Max: max}
}

// Match implements Filter.
func (f RangeFilter) Match(p models.Persona) bool {
	v, ok := p.Field(f.Field)
	if !ok {
		return false
	}
	return v >= f.Min && v <= f.Max
}

// Validate implements Filter.
func (f RangeFilter) Validate() error {
	if _, ok := (models.Persona{}).Field(f.Field); !ok {
		return fmt.Errorf("range filter: unsupported field %q (valid: age, income, weight)", f.Field)
	}
	if f.Min > f.Max {
		return fmt.Errorf("range filter on %s: min %g exceeds max %g", f.Field, f.Min, f.Max)
	}
	return nil
}

func (f RangeFilter) String() string {
	return fmt.Sprintf("%s in [%g, %g]", f.Field, f.Min, f.Max)
}

// RegionFilter keeps personas whose region is one of Regions (case-insensitive).
type RegionFilter struct {
	Regions []string `json:"regions"`
}

// Match implements Filter.
func (f RegionFilter) Match(p models.Persona) bool {
	for _, r := range f.Regions {
		if strings.EqualFold(strings.TrimSpace(r), p.Region) {
			return true
		}
	}
	return false
}

// Validate implements Filter.
func (f RegionFilter) Validate() error {
	if len(f.Regions) == 0 {
		return fmt.Errorf("region filter: no regions given")
	}
	return nil
}

func (f RegionFilter) String() string {
	return fmt.Sprintf("region in {%s}", strings.Join(f.Regions, ", "))
}

func matchAll(p models.Persona, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(p) {
			return false
		}
	}
	return true
}

// ValidateFilters checks every filter and returns the first problem found.
func ValidateFilters(filters []Filter) error {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}
