// Package tokenizer turns values into index terms. How a value is normalized depends only on
// the physical field it is written to or searched in.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gcbaptista/go-corpus-engine/index"
)

// nonWordRegex matches sequences of characters that are neither letters nor digits.
var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Transform normalizes one value
type Transform func(string) string

// Tokenize splits free text into words, keeping their original form.
func Tokenize(text string) []string {
	split := nonWordRegex.Split(text, -1)

	tokens := make([]string, 0) // Initialize as empty slice, not nil
	for _, s := range split {
		if s != "" { // Filter out empty strings
			tokens = append(tokens, s)
		}
	}
	return tokens
}

// Lowercase folds the case of s
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// StripAccents removes combining marks: "café" -> "cafe".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// For returns the transform for a sensitivity variant. Case folding runs before accent stripping.
func For(m index.MatchSensitivity) Transform {
	caseSensitive := m.CaseSensitive()
	diacriticsSensitive := m.DiacriticsSensitive()
	return func(s string) string {
		if !caseSensitive {
			s = Lowercase(s)
		}
		if !diacriticsSensitive {
			s = StripAccents(s)
		}
		return s
	}
}

// TransformFor returns the transform for a physical field, judged from its name alone.
func TransformFor(fieldName string) Transform {
	return For(index.SensitivityFor(index.IsCaseSensitive(fieldName), index.IsDiacriticsSensitive(fieldName)))
}
