package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/nvandessel/hivesight/internal/constants"
	"github.com/nvandessel/hivesight/internal/models"
)

// tailProbability is the mass outside the interval on each side.
const tailProbability = (1 - constants.ConfidenceLevel) / 2

// MeanInterval returns the sample mean and its two-sided Student-t interval
// with len(xs)-1 degrees of freedom. The interval is undefined below two
// observations.
func MeanInterval(xs []float64) (float64, models.Interval) {
	if len(xs) == 0 {
		return 0, models.Interval{}
	}
	mean := stat.Mean(xs, nil)
	if len(xs) < 2 {
		return mean, models.Interval{}
	}

	n := float64(len(xs))
	se := stat.StdDev(xs, nil) / math.Sqrt(n)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}.Quantile(1 - tailProbability)
	return mean, models.NewInterval(mean-t*se, mean+t*se)
}

// BetaInterval returns the equal-tailed interval of Beta(successes+1, failures+1).
// It stays defined when every or no observation is a success.
func BetaInterval(successes, failures int) models.Interval {
	if successes < 0 || failures < 0 {
		return models.Interval{}
	}
	b := distuv.Beta{Alpha: float64(successes) + 1, Beta: float64(failures) + 1}
	return models.NewInterval(b.Quantile(tailProbability), b.Quantile(1-tailProbability))
}

// Median returns the middle value, averaging the two middle values of an even
// sample. xs is not modified.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// StdDev is the sample standard deviation, 0 below two observations.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
