package survey

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"index", "age", "region", "income", "weight", "raw", "answer", "valid", "attempts", "failure"}

// WriteCSV writes one row per respondent.
func WriteCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, r := range report.Respondents {
		row := []string{
			strconv.Itoa(r.Index),
			strconv.Itoa(r.Persona.Age),
			r.Persona.Region,
			strconv.FormatFloat(r.Persona.Income, 'f', -1, 64),
			strconv.FormatFloat(r.Persona.Weight, 'f', -1, 64),
			r.Raw,
			r.Answer,
			strconv.FormatBool(r.Valid),
			strconv.Itoa(r.Attempts),
			r.Failure,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %d: %w", r.Index, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
