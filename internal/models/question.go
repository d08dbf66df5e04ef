package models

import (
	"fmt"
	"strings"

	"github.com/nvandessel/hivesight/internal/constants"
)

// QuestionKind selects the answer format requested from the oracle.
type QuestionKind string

const (
	// KindLikert asks for agreement on a 1-5 scale.
	KindLikert QuestionKind = "likert"

	// KindMultipleChoice asks the oracle to pick one numbered option.
	KindMultipleChoice QuestionKind = "multiple_choice"

	// KindYesNo asks for a bare "Yes" or "No".
	KindYesNo QuestionKind = "yes_no"
)

// Valid returns true if the kind is a recognized value.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindLikert, KindMultipleChoice, KindYesNo:
		return true
	}
	return false
}

// String returns the string representation of the kind.
func (k QuestionKind) String() string {
	return string(k)
}

// ParseQuestionKind accepts the canonical names plus a few spellings used by forms.
func ParseQuestionKind(s string) (QuestionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "likert", "":
		return KindLikert, nil
	case "multiple_choice", "multiple-choice", "mc", "choice":
		return KindMultipleChoice, nil
	case "yes_no", "yes-no", "yesno", "binary":
		return KindYesNo, nil
	}
	return "", fmt.Errorf("unknown question kind %q (valid: likert, multiple_choice, yes_no)", s)
}

// Question is the statement or question put to every sampled persona.
type Question struct {
	Statement string       `json:"statement"`
	Kind      QuestionKind `json:"kind"`

	// Options is the ordered option list for multiple choice questions.
	Options []string `json:"options,omitempty"`
}

// OptionCount returns how many distinct answers the question admits.
func (q Question) OptionCount() int {
	switch q.Kind {
	case KindLikert:
		return constants.LikertPoints
	case KindYesNo:
		return 2
	default:
		return len(q.Options)
	}
}

// AnswerLabels returns the display label of every admissible answer, in
// answer order: the agreement scale for Likert, Yes/No, or the option texts.
func (q Question) AnswerLabels() []string {
	switch q.Kind {
	case KindLikert:
		return append([]string(nil), constants.LikertLabels...)
	case KindYesNo:
		return []string{constants.YesLabel, constants.NoLabel}
	default:
		return append([]string(nil), q.Options...)
	}
}

// Slot maps a valid answer to its position in AnswerLabels, or -1.
func (q Question) Slot(a Answer) int {
	if !a.Valid {
		return -1
	}
	i := a.Value
	if q.Kind == KindLikert {
		i = a.Value - 1
	}
	if i < 0 || i >= q.OptionCount() {
		return -1
	}
	return i
}
