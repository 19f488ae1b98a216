package index

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Span is a half-open range of token positions [Start, End).
type Span struct {
	Start int
	End   int
}

// Hit is a matching span in one document.
type Hit struct {
	DocID uint32
	Start int
	End   int
}

// docSpans holds the sorted, de-duplicated spans of each matching document
type docSpans map[uint32][]Span

// SpanQuery is an executable query over the physical fields of one annotated field.
// The set of implementations is closed: SpanTerm, SpanPrefix, SpanRegex, SpanSequence,
// SpanOr and SpanAnd.
type SpanQuery interface {
	fmt.Stringer
	spans(ii *InvertedIndex) docSpans
}

// SpanTerm matches single tokens whose value in Field equals Term.
type SpanTerm struct {
	Field string
	Term  string
}

func (q *SpanTerm) String() string { return fmt.Sprintf("%s:%q", q.Field, q.Term) }

func (q *SpanTerm) spans(ii *InvertedIndex) docSpans {
	return postingSpans(ii.Postings(q.Field, q.Term), nil)
}

// SpanPrefix matches single tokens whose value starts with Prefix.
type SpanPrefix struct {
	Field  string
	Prefix string
}

func (q *SpanPrefix) String() string { return fmt.Sprintf("%s:%q*", q.Field, q.Prefix) }

func (q *SpanPrefix) spans(ii *InvertedIndex) docSpans {
	out := make(docSpans)
	for term, pl := range ii.Fields[q.Field] {
		if strings.HasPrefix(term, q.Prefix) {
			postingSpans(pl, out)
		}
	}
	return normalize(out)
}

// SpanRegex matches single tokens whose whole value matches Pattern.
type SpanRegex struct {
	Field   string
	Pattern *regexp.Regexp
}

// NewSpanRegex anchors and compiles pattern
func NewSpanRegex(field, pattern string) (*SpanRegex, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, err
	}
	return &SpanRegex{Field: field, Pattern: re}, nil
}

func (q *SpanRegex) String() string { return fmt.Sprintf("%s:/%s/", q.Field, q.Pattern) }

func (q *SpanRegex) spans(ii *InvertedIndex) docSpans {
	out := make(docSpans)
	for term, pl := range ii.Fields[q.Field] {
		if q.Pattern.MatchString(term) {
			postingSpans(pl, out)
		}
	}
	return normalize(out)
}

// SpanSequence matches its clauses directly following each other.
type SpanSequence struct {
	Clauses []SpanQuery
}

func (q *SpanSequence) String() string { return "seq(" + joinClauses(q.Clauses) + ")" }

func (q *SpanSequence) spans(ii *InvertedIndex) docSpans {
	if len(q.Clauses) == 0 {
		return docSpans{}
	}
	current := q.Clauses[0].spans(ii)
	for _, clause := range q.Clauses[1:] {
		next := clause.spans(ii)
		joined := make(docSpans)
		for doc, left := range current {
			right, ok := next[doc]
			if !ok {
				continue
			}
			starts := make(map[int][]Span)
			for _, r := range right {
				starts[r.Start] = append(starts[r.Start], r)
			}
			for _, l := range left {
				for _, r := range starts[l.End] {
					joined[doc] = append(joined[doc], Span{Start: l.Start, End: r.End})
				}
			}
		}
		current = normalize(joined)
		if len(current) == 0 {
			break
		}
	}
	return current
}

// SpanOr matches any of its clauses.
type SpanOr struct {
	Clauses []SpanQuery
}

func (q *SpanOr) String() string { return "or(" + joinClauses(q.Clauses) + ")" }

func (q *SpanOr) spans(ii *InvertedIndex) docSpans {
	out := make(docSpans)
	for _, clause := range q.Clauses {
		for doc, spans := range clause.spans(ii) {
			out[doc] = append(out[doc], spans...)
		}
	}
	return normalize(out)
}

// SpanAnd matches spans found by every Include clause and by no Exclude clause.
type SpanAnd struct {
	Include []SpanQuery
	Exclude []SpanQuery
}

func (q *SpanAnd) String() string {
	s := "and(" + joinClauses(q.Include)
	if len(q.Exclude) > 0 {
		s += "; not(" + joinClauses(q.Exclude) + ")"
	}
	return s + ")"
}

func (q *SpanAnd) spans(ii *InvertedIndex) docSpans {
	if len(q.Include) == 0 {
		return docSpans{}
	}
	current := q.Include[0].spans(ii)
	for _, clause := range q.Include[1:] {
		current = intersect(current, clause.spans(ii))
	}
	for _, clause := range q.Exclude {
		current = subtract(current, clause.spans(ii))
	}
	return current
}

func joinClauses(clauses []SpanQuery) string {
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// postingSpans adds one single-token span per posting position to out
func postingSpans(pl PostingList, out docSpans) docSpans {
	if out == nil {
		out = make(docSpans, len(pl))
	}
	for _, e := range pl {
		for _, p := range e.Positions {
			out[e.DocID] = append(out[e.DocID], Span{Start: p, End: p + 1})
		}
	}
	return out
}

func normalize(ds docSpans) docSpans {
	for doc, spans := range ds {
		sort.Slice(spans, func(i, j int) bool {
			if spans[i].Start != spans[j].Start {
				return spans[i].Start < spans[j].Start
			}
			return spans[i].End < spans[j].End
		})
		out := spans[:0]
		for i, s := range spans {
			if i == 0 || s != spans[i-1] {
				out = append(out, s)
			}
		}
		ds[doc] = out
	}
	return ds
}

func intersect(a, b docSpans) docSpans {
	out := make(docSpans)
	for doc, spans := range a {
		other, ok := b[doc]
		if !ok {
			continue
		}
		set := make(map[Span]bool, len(other))
		for _, s := range other {
			set[s] = true
		}
		for _, s := range spans {
			if set[s] {
				out[doc] = append(out[doc], s)
			}
		}
	}
	return out
}

func subtract(a, b docSpans) docSpans {
	out := make(docSpans)
	for doc, spans := range a {
		set := make(map[Span]bool)
		for _, s := range b[doc] {
			set[s] = true
		}
		for _, s := range spans {
			if !set[s] {
				out[doc] = append(out[doc], s)
			}
		}
	}
	return out
}

func collectHits(ds docSpans) []Hit {
	docs := make([]uint32, 0, len(ds))
	for doc := range ds {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i] < docs[j] })

	hits := make([]Hit, 0)
	for _, doc := range docs {
		for _, s := range ds[doc] {
			hits = append(hits, Hit{DocID: doc, Start: s.Start, End: s.End})
		}
	}
	return hits
}
