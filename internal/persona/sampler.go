package persona

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/nvandessel/hivesight/internal/models"
)

// Sample filters the pool and draws min(n, matches) personas without
// replacement, each draw choosing among the remaining personas with
// probability proportional to weight.
//
// Draws use exponential keys (log(u)/w, largest first), which is distributed
// identically to drawing one persona at a time from the remaining weight.
// Zero-weight personas are never drawn, so the sample is further truncated to
// the number of positive-weight matches. rng is supplied by the caller so runs
// can be reproduced.
func Sample(pool *Pool, n int, filters []Filter, rng *rand.Rand) ([]models.SampledPersona, error) {
	if n < 1 {
		return nil, fmt.Errorf("sample size must be at least 1, got %d", n)
	}
	if rng == nil {
		return nil, fmt.Errorf("sample: nil random source")
	}
	if err := ValidateFilters(filters); err != nil {
		return nil, err
	}

	matched := pool.Filter(filters...)
	if len(matched) == 0 {
		return nil, ErrEmptyPopulation
	}

	type keyed struct {
		persona models.Persona
		key     float64
	}
	candidates := make([]keyed, 0, len(matched))
	for _, p := range matched {
		// Every matched persona consumes one draw so the stream of random
		// numbers only depends on the filtered set.
		u := 1 - rng.Float64()
		if p.Weight <= 0 || math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0) {
			continue
		}
		candidates = append(candidates, keyed{persona: p, key: math.Log(u) / p.Weight})
	}
	if len(candidates) == 0 {
		return nil, ErrNoWeight
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].key > candidates[j].key
	})

	k := min(n, len(candidates))
	out := make([]models.SampledPersona, k)
	for i := 0; i < k; i++ {
		out[i] = models.SampledPersona{Index: i, Persona: candidates[i].persona}
	}
	return out, nil
}
