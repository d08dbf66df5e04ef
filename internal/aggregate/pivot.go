package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nvandessel/hivesight/internal/constants"
	"github.com/nvandessel/hivesight/internal/models"
)

// PivotFields lists the demographic fields a pivot can break down by.
var PivotFields = []string{models.FieldAge, models.FieldIncome, models.FieldRegion}

// ValidPivotField reports whether name can be pivoted on. The empty string
// means no pivot.
func ValidPivotField(name string) bool {
	if name == "" {
		return true
	}
	for _, f := range PivotFields {
		if f == name {
			return true
		}
	}
	return false
}

// binning assigns personas to labelled buckets.
type binning struct {
	labels []string
	bucket func(models.Persona) (int, bool)
}

func binningFor(field string, personas []models.SampledPersona) (binning, error) {
	switch field {
	case models.FieldAge:
		return numericBinning(constants.AgeBins, ageLabel, func(p models.Persona) float64 { return float64(p.Age) }), nil
	case models.FieldIncome:
		return numericBinning(constants.IncomeBins, incomeLabel, func(p models.Persona) float64 { return p.Income }), nil
	case models.FieldRegion:
		return regionBinning(personas), nil
	}
	return binning{}, fmt.Errorf("cannot pivot on %q (valid: %s)", field, strings.Join(PivotFields, ", "))
}

// numericBinning buckets values into [edges[i], edges[i+1]).
func numericBinning(edges []float64, label func(lo, hi float64) string, value func(models.Persona) float64) binning {
	labels := make([]string, len(edges)-1)
	for i := range labels {
		labels[i] = label(edges[i], edges[i+1])
	}
	return binning{
		labels: labels,
		bucket: func(p models.Persona) (int, bool) {
			v := value(p)
			for i := 0; i < len(edges)-1; i++ {
				if v >= edges[i] && v < edges[i+1] {
					return i, true
				}
			}
			return 0, false
		},
	}
}

func regionBinning(personas []models.SampledPersona) binning {
	seen := map[string]bool{}
	var labels []string
	for _, p := range personas {
		if !seen[p.Region] {
			seen[p.Region] = true
			labels = append(labels, p.Region)
		}
	}
	sort.Strings(labels)

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	return binning{
		labels: labels,
		bucket: func(p models.Persona) (int, bool) {
			i, ok := index[p.Region]
			return i, ok
		},
	}
}

func ageLabel(lo, hi float64) string {
	if math.IsInf(hi, 1) {
		return fmt.Sprintf("%d+", int(lo))
	}
	return fmt.Sprintf("%d-%d", int(lo), int(hi)-1)
}

var numberPrinter = message.NewPrinter(language.English)

func incomeLabel(lo, hi float64) string {
	if math.IsInf(hi, 1) {
		return numberPrinter.Sprintf("%d+", int64(lo))
	}
	return numberPrinter.Sprintf("%d-%d", int64(lo), int64(hi)-1)
}

// buildPivot distributes valid answers over the field's buckets. Buckets with
// no valid answers are reported with all-zero shares.
func buildPivot(field string, personas []models.SampledPersona, answers []models.Answer, q models.Question) (*models.Pivot, error) {
	b, err := binningFor(field, personas)
	if err != nil {
		return nil, err
	}

	answerLabels := q.AnswerLabels()
	counts := make([][]int, len(b.labels))
	for i := range counts {
		counts[i] = make([]int, len(answerLabels))
	}

	for i, p := range personas {
		slot := q.Slot(answers[i])
		if slot < 0 {
			continue
		}
		bucket, ok := b.bucket(p.Persona)
		if !ok {
			continue
		}
		counts[bucket][slot]++
	}

	pivot := &models.Pivot{
		Field:   field,
		Buckets: b.labels,
		Answers: answerLabels,
		Shares:  make(map[string]map[string]float64, len(b.labels)),
		Counts:  make(map[string]int, len(b.labels)),
	}
	for i, bucket := range b.labels {
		total := 0
		for _, c := range counts[i] {
			total += c
		}
		shares := make(map[string]float64, len(answerLabels))
		for j, label := range answerLabels {
			if total > 0 {
				shares[label] = float64(counts[i][j]) / float64(total)
			} else {
				shares[label] = 0
			}
		}
		pivot.Shares[bucket] = shares
		pivot.Counts[bucket] = total
	}
	return pivot, nil
}
