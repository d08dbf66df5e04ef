package response

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/hivesight/internal/models"
)

func TestParseText_Likert(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Answer
	}{
		{"4", models.Answer{Value: 4, Valid: true}},
		{" 1\n", models.Answer{Value: 1, Valid: true}},
		{`"5"`, models.Answer{Value: 5, Valid: true}},
		{`' 3 '`, models.Answer{Value: 3, Valid: true}},
		{"7", models.NoAnswer},
		{"0", models.NoAnswer},
		{"-2", models.NoAnswer},
		{"+3", models.NoAnswer},
		{"4.0", models.NoAnswer},
		{"4 - Agree", models.NoAnswer},
		{"Agree", models.NoAnswer},
		{"", models.NoAnswer},
		{"99999999999999999999", models.NoAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseText(tt.raw, models.KindLikert, 5); got != tt.want {
				t.Errorf("ParseText(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseText_LikertIgnoresOptionCount(t *testing.T) {
	for _, count := range []int{0, 3, 10} {
		if got := ParseText("7", models.KindLikert, count); got.Valid {
			t.Errorf("ParseText(\"7\", likert, %d) = %+v, want invalid", count, got)
		}
		if got := ParseText("5", models.KindLikert, count); !got.Valid || got.Value != 5 {
			t.Errorf("ParseText(\"5\", likert, %d) = %+v, want 5", count, got)
		}
	}
}

func TestParseText_MultipleChoice(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Answer
	}{
		{"1", models.Answer{Value: 0, Valid: true}},
		{"3", models.Answer{Value: 2, Valid: true}},
		{"4", models.NoAnswer},
		{"0", models.NoAnswer},
		{"2. Blue", models.NoAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseText(tt.raw, models.KindMultipleChoice, 3); got != tt.want {
				t.Errorf("ParseText(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseText_YesNo(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Answer
	}{
		{"Yes", models.Answer{Value: 0, Valid: true}},
		{"yes.", models.Answer{Value: 0, Valid: true}},
		{`"NO"`, models.Answer{Value: 1, Valid: true}},
		{"No!", models.Answer{Value: 1, Valid: true}},
		{"Yes, because", models.NoAnswer},
		{"maybe", models.NoAnswer},
		{"1", models.NoAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseText(tt.raw, models.KindYesNo, 2); got != tt.want {
				t.Errorf("ParseText(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseText_UnknownKind(t *testing.T) {
	if got := ParseText("1", models.QuestionKind("ranking"), 3); got.Valid {
		t.Errorf("unknown kind parsed as %+v", got)
	}
}

func TestParse_FailureIsInvalid(t *testing.T) {
	q := models.Question{Kind: models.KindLikert}
	if got := Parse(models.FailureOutcome("rate limited", 5), q); got.Valid {
		t.Errorf("Parse(failure) = %+v, want invalid", got)
	}
}

func TestParseAll_MixedOutcomes(t *testing.T) {
	q := models.Question{Kind: models.KindLikert}
	outcomes := []models.Outcome{
		models.TextOutcome("4", 1),
		models.TextOutcome("7", 1),
		models.FailureOutcome("cancelled", 0),
		models.TextOutcome("2", 2),
	}

	got := ParseAll(outcomes, q)
	want := []models.Answer{
		{Value: 4, Valid: true},
		models.NoAnswer,
		models.NoAnswer,
		{Value: 2, Valid: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseAll mismatch (-want +got):\n%s", diff)
	}
}

func TestParseText_Idempotent(t *testing.T) {
	inputs := []string{"4", "7", `"yes"`, "  3 ", "abc", ""}
	kinds := []models.QuestionKind{models.KindLikert, models.KindMultipleChoice, models.KindYesNo}

	for _, raw := range inputs {
		for _, kind := range kinds {
			first := ParseText(raw, kind, 5)
			for i := 0; i < 3; i++ {
				if again := ParseText(raw, kind, 5); again != first {
					t.Errorf("ParseText(%q, %s) changed: %+v then %+v", raw, kind, first, again)
				}
			}
		}
	}
}
