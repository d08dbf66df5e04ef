// Package prompt renders the role-play query sent to the oracle for one persona.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nvandessel/hivesight/internal/constants"
	"github.com/nvandessel/hivesight/internal/models"
)

// ErrTooFewOptions is returned for a multiple choice question with fewer than two options.
var ErrTooFewOptions = errors.New("multiple choice questions need at least two options")

const generalInstructions = "Respond to the following question based on this persona's likely perspective, beliefs, and experiences."

// likertScale is rendered once: "1 = Strongly Disagree, 2 = Disagree, ...".
var likertScale = func() string {
	parts := make([]string, len(constants.LikertLabels))
	for i, label := range constants.LikertLabels {
		parts[i] = fmt.Sprintf("%d = %s", i+1, label)
	}
	return strings.Join(parts, ", ")
}()

// Build renders the prompt for persona and question. The output depends only
// on its inputs.
func Build(persona models.Persona, q models.Question) (string, error) {
	if err := Validate(q); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are roleplaying as a %s.\n", persona.Describe())
	b.WriteString(generalInstructions)
	b.WriteString("\n")

	switch q.Kind {
	case models.KindLikert:
		fmt.Fprintf(&b, "Use a 5-point scale where %s.\n", likertScale)
		fmt.Fprintf(&b, "Statement: \"%s\"\n", q.Statement)
		b.WriteString("How much do you agree with the statement?\n")
		b.WriteString("Respond with ONLY a single number from 1 to 5, no additional explanation.")

	case models.KindMultipleChoice:
		fmt.Fprintf(&b, "Question: \"%s\"\n", q.Statement)
		b.WriteString("Choose from the following options:\n")
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
		}
		b.WriteString("Respond with ONLY the single number of your chosen option (1, 2, 3, etc.), nothing else. Do not include the choice text or any explanation.")

	case models.KindYesNo:
		fmt.Fprintf(&b, "Question: \"%s\"\n", q.Statement)
		b.WriteString("Respond with ONLY \"Yes\" or \"No\", no additional explanation.")
	}

	return b.String(), nil
}

// BuildAll renders one prompt per sampled persona, index for index.
func BuildAll(personas []models.SampledPersona, q models.Question) ([]string, error) {
	if err := Validate(q); err != nil {
		return nil, err
	}
	prompts := make([]string, len(personas))
	for i, sp := range personas {
		p, err := Build(sp.Persona, q)
		if err != nil {
			return nil, err
		}
		prompts[i] = p
	}
	return prompts, nil
}

// Validate checks that a question can be rendered.
func Validate(q models.Question) error {
	if strings.TrimSpace(q.Statement) == "" {
		return fmt.Errorf("question statement is empty")
	}
	if !q.Kind.Valid() {
		return fmt.Errorf("unknown question kind %q", q.Kind)
	}
	if q.Kind == models.KindMultipleChoice {
		if len(q.Options) < constants.MinChoiceOptions {
			return ErrTooFewOptions
		}
		for i, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("option %d is empty", i+1)
			}
		}
	}
	return nil
}
