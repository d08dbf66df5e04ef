package models

// Outcome is the result of the full attempt sequence for one prompt: either the
// oracle's text or the reason the unit gave up.
type Outcome struct {
	Text     string `json:"text,omitempty"`
	Failure  string `json:"failure,omitempty"`
	Attempts int    `json:"attempts"`
}

// Failed reports whether the unit ended without oracle text.
func (o Outcome) Failed() bool {
	return o.Failure != ""
}

// TextOutcome builds a successful outcome.
func TextOutcome(text string, attempts int) Outcome {
	return Outcome{Text: text, Attempts: attempts}
}

// FailureOutcome builds a failed outcome. An empty reason is replaced so the
// outcome still reports as failed.
func FailureOutcome(reason string, attempts int) Outcome {
	if reason == "" {
		reason = "unknown failure"
	}
	return Outcome{Failure: reason, Attempts: attempts}
}

// Answer is a parsed, validated oracle answer.
// For Likert questions Value is the score 1..5. For multiple choice and yes/no
// questions Value is the zero-based choice index (Yes is 0, No is 1).
type Answer struct {
	Value int  `json:"value"`
	Valid bool `json:"valid"`
}

// NoAnswer is the zero Answer, used for failed or discarded outcomes.
var NoAnswer = Answer{}
