package persona

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/nvandessel/hivesight/internal/models"
)

// columnAliases maps accepted header names to persona fields. The dataset
// export has used both "state"/"region" and "wages"/"income" over time.
var columnAliases = map[string]string{
	"age":    models.FieldAge,
	"region": models.FieldRegion,
	"state":  models.FieldRegion,
	"income": models.FieldIncome,
	"wages":  models.FieldIncome,
	"weight": models.FieldWeight,
}

// LoadFile reads a persona CSV file into a pool.
func LoadFile(path string) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening persona dataset: %w", err)
	}
	defer f.Close()

	pool, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return pool, nil
}

// ReadCSV parses a header-led CSV with at least the age, region, income and
// weight columns (any order, extra columns ignored).
func ReadCSV(r io.Reader) (*Pool, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty persona dataset")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if field, ok := columnAliases[key]; ok {
			if _, dup := cols[field]; !dup {
				cols[field] = i
			}
		}
	}
	for _, field := range []string{models.FieldAge, models.FieldRegion, models.FieldIncome, models.FieldWeight} {
		if _, ok := cols[field]; !ok {
			return nil, fmt.Errorf("missing %q column", field)
		}
	}

	var personas []models.Persona
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		p, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		personas = append(personas, p)
	}

	return NewPool(personas), nil
}

func parseRecord(record []string, cols map[string]int) (models.Persona, error) {
	get := func(field string) (string, error) {
		i := cols[field]
		if i >= len(record) {
			return "", fmt.Errorf("missing %s value", field)
		}
		return strings.TrimSpace(record[i]), nil
	}

	var p models.Persona

	raw, err := get(models.FieldAge)
	if err != nil {
		return p, err
	}
	age, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(age) || age < 0 {
		return p, fmt.Errorf("invalid age %q", raw)
	}
	p.Age = int(math.Round(age))

	if p.Region, err = get(models.FieldRegion); err != nil {
		return p, err
	}

	raw, err = get(models.FieldIncome)
	if err != nil {
		return p, err
	}
	if p.Income, err = strconv.ParseFloat(raw, 64); err != nil || math.IsNaN(p.Income) {
		return p, fmt.Errorf("invalid income %q", raw)
	}

	raw, err = get(models.FieldWeight)
	if err != nil {
		return p, err
	}
	p.Weight, err = strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0) || p.Weight < 0 {
		return p, fmt.Errorf("invalid weight %q", raw)
	}

	return p, nil
}
