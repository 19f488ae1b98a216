package search

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/internal/tokenizer"
)

// TextPattern is an abstract token pattern. The set of implementations is closed:
// Term, Prefix, Regex, Sequence, Or, And, Not and Sensitivity.
// String returns a canonical form that is equal for equal patterns.
type TextPattern interface {
	fmt.Stringer
	translate(ec ExecutionContext) (index.SpanQuery, error)
}

// Translate turns a pattern into an executable query for the field and sensitivity of ec.
func Translate(p TextPattern, ec ExecutionContext) (index.SpanQuery, error) {
	if p == nil {
		return nil, errors.NewInvalidQueryError("", "empty pattern")
	}
	return p.translate(ec)
}

// Term matches tokens whose annotation value equals Value.
// An empty Annotation means the main annotation of the searched field.
type Term struct {
	Annotation string
	Value      string
}

func (t *Term) String() string { return fmt.Sprintf("term(%s,%q)", t.Annotation, t.Value) }

func (t *Term) translate(ec ExecutionContext) (index.SpanQuery, error) {
	physical, transform, err := ec.resolve(t.Annotation, t)
	if err != nil {
		return nil, err
	}
	term := transform(t.Value)
	if term == "" {
		return nil, errors.NewInvalidQueryError(t.String(), "term value is empty")
	}
	return &index.SpanTerm{Field: physical, Term: term}, nil
}

// Prefix matches tokens whose annotation value starts with Value.
type Prefix struct {
	Annotation string
	Value      string
}

func (p *Prefix) String() string { return fmt.Sprintf("prefix(%s,%q)", p.Annotation, p.Value) }

func (p *Prefix) translate(ec ExecutionContext) (index.SpanQuery, error) {
	physical, transform, err := ec.resolve(p.Annotation, p)
	if err != nil {
		return nil, err
	}
	prefix := transform(p.Value)
	if prefix == "" {
		return nil, errors.NewInvalidQueryError(p.String(), "prefix is empty")
	}
	return &index.SpanPrefix{Field: physical, Prefix: prefix}, nil
}

// Regex matches tokens whose whole annotation value matches Pattern.
type Regex struct {
	Annotation string
	Pattern    string
}

func (r *Regex) String() string { return fmt.Sprintf("regex(%s,%q)", r.Annotation, r.Pattern) }

func (r *Regex) translate(ec ExecutionContext) (index.SpanQuery, error) {
	physical, _, err := ec.resolve(r.Annotation, r)
	if err != nil {
		return nil, err
	}
	pattern := r.Pattern
	if !ec.Sensitivity.DiacriticsSensitive() {
		pattern = tokenizer.StripAccents(pattern)
	}
	if !ec.Sensitivity.CaseSensitive() {
		pattern = "(?i)" + pattern
	}
	q, err := index.NewSpanRegex(physical, pattern)
	if err != nil {
		return nil, errors.NewInvalidQueryError(r.String(), err.Error())
	}
	return q, nil
}

// Sequence matches its clauses on consecutive tokens.
type Sequence struct {
	Clauses []TextPattern
}

func (s *Sequence) String() string { return "seq(" + joinPatterns(s.Clauses) + ")" }

func (s *Sequence) translate(ec ExecutionContext) (index.SpanQuery, error) {
	clauses, err := translateAll(s, s.Clauses, ec)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return &index.SpanSequence{Clauses: clauses}, nil
}

// Or matches any of its clauses.
type Or struct {
	Clauses []TextPattern
}

func (o *Or) String() string { return "or(" + joinPatterns(o.Clauses) + ")" }

func (o *Or) translate(ec ExecutionContext) (index.SpanQuery, error) {
	clauses, err := translateAll(o, o.Clauses, ec)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return &index.SpanOr{Clauses: clauses}, nil
}

// And matches spans matched by all of its positive clauses. Not clauses exclude spans.
type And struct {
	Clauses []TextPattern
}

func (a *And) String() string { return "and(" + joinPatterns(a.Clauses) + ")" }

func (a *And) translate(ec ExecutionContext) (index.SpanQuery, error) {
	if len(a.Clauses) == 0 {
		return nil, errors.NewInvalidQueryError(a.String(), "and needs at least one clause")
	}
	q := &index.SpanAnd{}
	for _, clause := range a.Clauses {
		target := &q.Include
		if not, ok := clause.(*Not); ok {
			target = &q.Exclude
			clause = not.Clause
		}
		translated, err := Translate(clause, ec)
		if err != nil {
			return nil, err
		}
		*target = append(*target, translated)
	}
	if len(q.Include) == 0 {
		return nil, errors.NewInvalidQueryError(a.String(), "all clauses are negative")
	}
	if len(q.Include) == 1 && len(q.Exclude) == 0 {
		return q.Include[0], nil
	}
	return q, nil
}

// Not excludes its clause. It is only valid directly inside an And with a positive clause.
type Not struct {
	Clause TextPattern
}

func (n *Not) String() string { return "not(" + patternString(n.Clause) + ")" }

func (n *Not) translate(ExecutionContext) (index.SpanQuery, error) {
	return nil, errors.NewInvalidQueryError(n.String(), "a negative clause must be combined with a positive one in an and")
}

// Sensitivity searches its clause with a different match sensitivity.
type Sensitivity struct {
	Sensitivity index.MatchSensitivity
	Clause      TextPattern
}

func (s *Sensitivity) String() string {
	return fmt.Sprintf("sensitivity(%s,%s)", s.Sensitivity, patternString(s.Clause))
}

func (s *Sensitivity) translate(ec ExecutionContext) (index.SpanQuery, error) {
	return Translate(s.Clause, ec.WithSensitivity(s.Sensitivity))
}

func translateAll(parent TextPattern, patterns []TextPattern, ec ExecutionContext) ([]index.SpanQuery, error) {
	if len(patterns) == 0 {
		return nil, errors.NewInvalidQueryError(parent.String(), "needs at least one clause")
	}
	out := make([]index.SpanQuery, 0, len(patterns))
	for _, p := range patterns {
		q, err := Translate(p, ec)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func patternString(p TextPattern) string {
	if p == nil {
		return "<nil>"
	}
	return p.String()
}

func joinPatterns(patterns []TextPattern) string {
	parts := make([]string, len(patterns))
	for i, p := range patterns {
		parts[i] = patternString(p)
	}
	return strings.Join(parts, ", ")
}

// SimplePattern builds a pattern from whitespace separated words on the main annotation.
// A trailing '*' makes a word a prefix.
func SimplePattern(text string) TextPattern {
	words := strings.Fields(text)
	clauses := make([]TextPattern, 0, len(words))
	for _, w := range words {
		if prefix, ok := strings.CutSuffix(w, "*"); ok && prefix != "" {
			clauses = append(clauses, &Prefix{Value: prefix})
			continue
		}
		clauses = append(clauses, &Term{Value: w})
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return &Sequence{Clauses: clauses}
}

// patternDoc is the JSON form of a pattern. Exactly one member is set.
type patternDoc struct {
	Term        *valueDoc       `json:"term,omitempty"`
	Prefix      *valueDoc       `json:"prefix,omitempty"`
	Regex       *regexDoc       `json:"regex,omitempty"`
	Seq         []patternDoc    `json:"seq,omitempty"`
	Or          []patternDoc    `json:"or,omitempty"`
	And         []patternDoc    `json:"and,omitempty"`
	Not         *patternDoc     `json:"not,omitempty"`
	Sensitivity *sensitivityDoc `json:"sensitivity,omitempty"`
}

type valueDoc struct {
	Annotation string `json:"annotation,omitempty"`
	Value      string `json:"value"`
}

type regexDoc struct {
	Annotation string `json:"annotation,omitempty"`
	Pattern    string `json:"pattern"`
}

type sensitivityDoc struct {
	Value  string     `json:"value"`
	Clause patternDoc `json:"clause"`
}

// ParsePattern decodes the JSON form of a pattern, for example
// {"seq": [{"term": {"annotation": "lemma", "value": "be"}}, {"prefix": {"value": "go"}}]}.
func ParsePattern(data []byte) (TextPattern, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc patternDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.NewInvalidQueryError("", fmt.Sprintf("cannot decode pattern: %v", err))
	}
	return doc.build()
}

func (d *patternDoc) build() (TextPattern, error) {
	var out []TextPattern
	if d.Term != nil {
		out = append(out, &Term{Annotation: d.Term.Annotation, Value: d.Term.Value})
	}
	if d.Prefix != nil {
		out = append(out, &Prefix{Annotation: d.Prefix.Annotation, Value: d.Prefix.Value})
	}
	if d.Regex != nil {
		out = append(out, &Regex{Annotation: d.Regex.Annotation, Pattern: d.Regex.Pattern})
	}
	for _, list := range []struct {
		docs []patternDoc
		wrap func([]TextPattern) TextPattern
	}{
		{d.Seq, func(c []TextPattern) TextPattern { return &Sequence{Clauses: c} }},
		{d.Or, func(c []TextPattern) TextPattern { return &Or{Clauses: c} }},
		{d.And, func(c []TextPattern) TextPattern { return &And{Clauses: c} }},
	} {
		if list.docs == nil {
			continue
		}
		clauses, err := buildAll(list.docs)
		if err != nil {
			return nil, err
		}
		out = append(out, list.wrap(clauses))
	}
	if d.Not != nil {
		clause, err := d.Not.build()
		if err != nil {
			return nil, err
		}
		out = append(out, &Not{Clause: clause})
	}
	if d.Sensitivity != nil {
		m, err := index.ParseMatchSensitivity(d.Sensitivity.Value)
		if err != nil {
			return nil, errors.NewInvalidQueryError("", err.Error())
		}
		clause, err := d.Sensitivity.Clause.build()
		if err != nil {
			return nil, err
		}
		out = append(out, &Sensitivity{Sensitivity: m, Clause: clause})
	}

	switch len(out) {
	case 1:
		return out[0], nil
	case 0:
		return nil, errors.NewInvalidQueryError("", "pattern object has no clause")
	default:
		return nil, errors.NewInvalidQueryError("", "pattern object has more than one clause")
	}
}

func buildAll(docs []patternDoc) ([]TextPattern, error) {
	out := make([]TextPattern, 0, len(docs))
	for i := range docs {
		p, err := docs[i].build()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
