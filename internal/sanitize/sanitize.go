// Package sanitize cleans question text received from remote callers before
// it is placed into prompts. It strips control characters, XML/HTML tags and
// code fences, and flattens the text onto a single line so a statement cannot
// smuggle extra instructions past the answer-format line of the prompt.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/nvandessel/hivesight/internal/models"
)

// MaxStatementLength is the maximum length, in runes, of a statement.
const MaxStatementLength = 2000

// MaxOptionLength is the maximum length, in runes, of a multiple choice option.
const MaxOptionLength = 200

// Pre-compiled regular expressions for performance.
var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reTripleBacktick matches triple (or more) backtick sequences used in code fences.
	reTripleBacktick = regexp.MustCompile("```+")

	// reWhitespace matches runs of whitespace, newlines included.
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Statement sanitizes a survey statement.
//
// The pipeline runs in this order:
//  1. Replace line breaks and tabs with spaces, drop other control characters
//  2. Strip XML/HTML tags
//  3. Collapse triple backticks to a single backtick
//  4. Collapse whitespace runs to one space and trim
//  5. Truncate to MaxStatementLength runes
func Statement(input string) string {
	return clean(input, MaxStatementLength)
}

// Option sanitizes one multiple choice option, truncating to MaxOptionLength runes.
func Option(input string) string {
	return clean(input, MaxOptionLength)
}

// Question returns a copy of q with its statement and options sanitized.
func Question(q models.Question) models.Question {
	q.Statement = Statement(q.Statement)
	if q.Options != nil {
		options := make([]string, len(q.Options))
		for i, o := range q.Options {
			options[i] = Option(o)
		}
		q.Options = options
	}
	return q
}

func clean(input string, maxRunes int) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))

	if r := []rune(s); len(r) > maxRunes {
		s = strings.TrimSpace(string(r[:maxRunes]))
	}
	return s
}

// stripControlChars turns \n, \r and \t into spaces and removes every other
// ASCII control character, DEL included.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
