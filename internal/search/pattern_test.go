package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
)

func TestTranslate(t *testing.T) {
	idx := newTestIndex(t)
	insensitive := NewExecutionContext(idx.Metadata(), "", index.Insensitive)

	tests := []struct {
		name    string
		pattern TextPattern
		ec      ExecutionContext
		want    index.SpanQuery
	}{
		{
			name:    "main annotation, value desensitized",
			pattern: &Term{Value: "CAFÉ"},
			ec:      insensitive,
			want:    &index.SpanTerm{Field: "contents%word@i", Term: "cafe"},
		},
		{
			name:    "sensitive keeps the value",
			pattern: &Term{Annotation: "word", Value: "Café"},
			ec:      insensitive.WithSensitivity(index.Sensitive),
			want:    &index.SpanTerm{Field: "contents%word", Term: "Café"},
		},
		{
			name:    "sensitivity wrapper",
			pattern: &Sensitivity{Sensitivity: index.Sensitive, Clause: &Prefix{Annotation: "lemma", Value: "Ca"}},
			ec:      insensitive,
			want:    &index.SpanPrefix{Field: "contents%lemma", Prefix: "Ca"},
		},
		{
			name:    "single clause sequence collapses",
			pattern: &Sequence{Clauses: []TextPattern{&Term{Value: "a"}}},
			ec:      insensitive,
			want:    &index.SpanTerm{Field: "contents%word@i", Term: "a"},
		},
		{
			name: "and with exclusion",
			pattern: &And{Clauses: []TextPattern{
				&Term{Annotation: "pos", Value: "NOU"},
				&Not{Clause: &Term{Annotation: "lemma", Value: "cat"}},
			}},
			ec: insensitive,
			want: &index.SpanAnd{
				Include: []index.SpanQuery{&index.SpanTerm{Field: "contents%pos@i", Term: "nou"}},
				Exclude: []index.SpanQuery{&index.SpanTerm{Field: "contents%lemma@i", Term: "cat"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Translate(tt.pattern, tt.ec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslate_Regex(t *testing.T) {
	idx := newTestIndex(t)
	q, err := Translate(&Regex{Annotation: "lemma", Pattern: "CAF."}, NewExecutionContext(idx.Metadata(), "", index.Insensitive))
	require.NoError(t, err)
	re, ok := q.(*index.SpanRegex)
	require.True(t, ok)
	assert.Equal(t, "contents%lemma@i", re.Field)
	assert.True(t, re.Pattern.MatchString("cafe"))
	assert.False(t, re.Pattern.MatchString("cafes"), "regex is anchored")
}

func TestTranslate_Invalid(t *testing.T) {
	idx := newTestIndex(t)
	ec := NewExecutionContext(idx.Metadata(), "", index.Insensitive)

	tests := []struct {
		name    string
		pattern TextPattern
		ec      ExecutionContext
	}{
		{"nil pattern", nil, ec},
		{"empty term", &Term{Value: ""}, ec},
		{"unknown annotation", &Term{Annotation: "gloss", Value: "x"}, ec},
		{"unknown field", &Term{Value: "x"}, NewExecutionContext(idx.Metadata(), "translation", index.Insensitive)},
		{"sensitivity not indexed", &Term{Annotation: "pos", Value: "NOU"}, ec.WithSensitivity(index.Sensitive)},
		{"case insensitive only is not indexed", &Term{Value: "x"}, ec.WithSensitivity(index.CaseInsensitive)},
		{"empty sequence", &Sequence{}, ec},
		{"empty or", &Or{}, ec},
		{"empty and", &And{}, ec},
		{"bare not", &Not{Clause: &Term{Value: "x"}}, ec},
		{"not inside or", &Or{Clauses: []TextPattern{&Term{Value: "x"}, &Not{Clause: &Term{Value: "y"}}}}, ec},
		{"all negative and", &And{Clauses: []TextPattern{&Not{Clause: &Term{Value: "x"}}}}, ec},
		{"invalid regex", &Regex{Pattern: "("}, ec},
		{"no metadata", &Term{Value: "x"}, ExecutionContext{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Translate(tt.pattern, tt.ec)
			assert.ErrorIs(t, err, errors.ErrInvalidQuery)
		})
	}
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"term": {"value": "cat"}}`, `term(,"cat")`},
		{`{"prefix": {"annotation": "lemma", "value": "ca"}}`, `prefix(lemma,"ca")`},
		{`{"regex": {"annotation": "pos", "pattern": "N.*"}}`, `regex(pos,"N.*")`},
		{
			`{"seq": [{"term": {"value": "the"}}, {"or": [{"term": {"value": "cat"}}, {"term": {"value": "dog"}}]}]}`,
			`seq(term(,"the"), or(term(,"cat"), term(,"dog")))`,
		},
		{
			`{"and": [{"term": {"annotation": "pos", "value": "NOU"}}, {"not": {"term": {"value": "cat"}}}]}`,
			`and(term(pos,"NOU"), not(term(,"cat")))`,
		},
		{`{"sensitivity": {"value": "s", "clause": {"term": {"value": "Cat"}}}}`, `sensitivity(sensitive,term(,"Cat"))`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p, err := ParsePattern([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
		})
	}
}

func TestParsePattern_Invalid(t *testing.T) {
	inputs := map[string]string{
		"empty object":     `{}`,
		"two members":      `{"term": {"value": "a"}, "prefix": {"value": "b"}}`,
		"unknown member":   `{"phrase": "a b"}`,
		"not json":         `term(a)`,
		"bad sensitivity":  `{"sensitivity": {"value": "loud", "clause": {"term": {"value": "a"}}}}`,
		"bad nested value": `{"seq": [{}]}`,
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePattern([]byte(input))
			assert.ErrorIs(t, err, errors.ErrInvalidQuery)
		})
	}
}

func TestSimplePattern(t *testing.T) {
	assert.Equal(t, `term(,"cat")`, SimplePattern("cat").String())
	assert.Equal(t, `seq(term(,"the"), prefix(,"ca"))`, SimplePattern(" the  ca* ").String())
	assert.Equal(t, `term(,"*")`, SimplePattern("*").String())
}
