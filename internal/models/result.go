package models

// Interval is a two-sided confidence interval. A nil bound means the interval
// is undefined for the data at hand.
type Interval struct {
	Low  *float64 `json:"low"`
	High *float64 `json:"high"`
}

// Defined reports whether both bounds are present.
func (i Interval) Defined() bool {
	return i.Low != nil && i.High != nil
}

// HalfWidth returns half the interval width, or 0 when undefined.
func (i Interval) HalfWidth() float64 {
	if !i.Defined() {
		return 0
	}
	return (*i.High - *i.Low) / 2
}

// NewInterval builds a defined interval.
func NewInterval(low, high float64) Interval {
	return Interval{Low: &low, High: &high}
}

// Pivot is the answer distribution broken down by a demographic field.
// Buckets and Answers preserve display order; Shares is keyed by bucket then answer label.
type Pivot struct {
	Field   string                        `json:"field"`
	Buckets []string                      `json:"buckets"`
	Answers []string                      `json:"answers"`
	Shares  map[string]map[string]float64 `json:"shares"`
	Counts  map[string]int                `json:"counts"`
}

// Result is the aggregate of one simulation run.
type Result struct {
	Kind QuestionKind `json:"kind"`

	// PointEstimate is the mean score for Likert questions and the target
	// proportion (0..1) for choice questions.
	PointEstimate      float64  `json:"point_estimate"`
	ConfidenceInterval Interval `json:"confidence_interval"`

	// Target names the category whose proportion is estimated; empty for Likert.
	Target string `json:"target,omitempty"`

	ValidCount int `json:"valid_count"`
	TotalCount int `json:"total_count"`

	Median float64 `json:"median,omitempty"`
	StdDev float64 `json:"std_dev,omitempty"`

	// Distribution is the share of valid answers per answer label.
	Distribution map[string]float64 `json:"distribution"`

	Pivot *Pivot `json:"pivot,omitempty"`
}

// YieldRate is the fraction of dispatched units that produced a valid answer.
func (r Result) YieldRate() float64 {
	if r.TotalCount == 0 {
		return 0
	}
	return float64(r.ValidCount) / float64(r.TotalCount)
}
