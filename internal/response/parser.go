// Package response turns raw oracle text into validated answers.
//
// Parsing is pure: the same text and question always yield the same answer.
// Anything that is not exactly an admissible answer is discarded, never
// coerced.
package response

import (
	"strconv"
	"strings"

	"github.com/nvandessel/hivesight/internal/constants"
	"github.com/nvandessel/hivesight/internal/models"
)

// quoteChars are stripped from both ends of a reply.
const quoteChars = "\"'`“”‘’"

// Parse validates one dispatch outcome against q. Failed outcomes are invalid.
func Parse(outcome models.Outcome, q models.Question) models.Answer {
	if outcome.Failed() {
		return models.NoAnswer
	}
	return ParseText(outcome.Text, q.Kind, q.OptionCount())
}

// ParseAll parses outcomes in order; the result is aligned with outcomes.
func ParseAll(outcomes []models.Outcome, q models.Question) []models.Answer {
	answers := make([]models.Answer, len(outcomes))
	for i, o := range outcomes {
		answers[i] = Parse(o, q)
	}
	return answers
}

// ParseText validates raw text for a question of the given kind.
//
//   - Likert: an integer in [1, 5], stored as the score.
//   - Multiple choice: an integer in [1, optionCount], stored zero-based.
//   - Yes/no: "yes" or "no" in any case, stored as 0 and 1.
//
// optionCount is ignored for the other kinds.
func ParseText(raw string, kind models.QuestionKind, optionCount int) models.Answer {
	text := clean(raw)

	switch kind {
	case models.KindLikert:
		n, ok := parseInt(text)
		if !ok || n < 1 || n > constants.LikertPoints {
			return models.NoAnswer
		}
		return models.Answer{Value: n, Valid: true}

	case models.KindMultipleChoice:
		n, ok := parseInt(text)
		if !ok || n < 1 || n > optionCount {
			return models.NoAnswer
		}
		return models.Answer{Value: n - 1, Valid: true}

	case models.KindYesNo:
		switch strings.ToLower(strings.TrimRight(text, ".!")) {
		case "yes":
			return models.Answer{Value: 0, Valid: true}
		case "no":
			return models.Answer{Value: 1, Valid: true}
		}
	}

	return models.NoAnswer
}

// clean strips surrounding whitespace and quotes.
func clean(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		t := strings.TrimSpace(strings.Trim(s, quoteChars))
		if t == s {
			return s
		}
		s = t
	}
}

// parseInt accepts ASCII digits only: no sign, no decimal point.
func parseInt(s string) (int, bool) {
	if s == "" || len(s) > 9 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
