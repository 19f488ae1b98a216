package search

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/services"
)

// concordanceSource produces the three parts of one hit's concordance
type concordanceSource interface {
	parts(ctx context.Context, hit index.Hit, start, end int) (left, match, right string, err error)
}

func buildConcordances(ctx context.Context, idx services.IndexReader, field string, settings *HitsSettings, hits []index.Hit) ([]Concordance, error) {
	var source concordanceSource
	switch settings.ConcordanceType {
	case ForwardIndex:
		fi, err := newForwardIndexSource(idx, field, settings)
		if err != nil {
			return nil, err
		}
		source = fi
	case ContentStore:
		source = &contentStoreSource{index: idx, field: field}
	default:
		return nil, errors.NewInvalidQueryError("", fmt.Sprintf("unknown concordance type '%s'", settings.ConcordanceType))
	}

	out := make([]Concordance, 0, len(hits))
	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := max(0, hit.Start-settings.ContextSize)
		end := hit.End + settings.ContextSize
		if length := idx.DocumentLength(hit.DocID, field); length > 0 {
			end = min(end, length)
		}
		left, match, right, err := source.parts(ctx, hit, start, end)
		if err != nil {
			return nil, err
		}
		conc := Concordance{Start: hit.Start, End: hit.End, Left: left, Match: match, Right: right}
		if info, ok := idx.Document(hit.DocID); ok {
			conc.PID = info.PID
		}
		out = append(out, conc)
	}
	return out, nil
}

// forwardIndexSource rebuilds context as <w> elements from the forward index
type forwardIndexSource struct {
	index services.IndexReader
	field string
	word  string
	punct string // empty when the index stores no punctuation
	attrs []string
}

func newForwardIndexSource(idx services.IndexReader, field string, settings *HitsSettings) (*forwardIndexSource, error) {
	fi, ok := idx.Metadata().Field(field)
	if !ok {
		return nil, errors.NewInvalidQueryError("", fmt.Sprintf("unknown annotated field '%s'", field))
	}
	forward := func(key string) bool {
		a, ok := fi.Annotation(key)
		return ok && a.ForwardIndex
	}

	s := &forwardIndexSource{index: idx, field: field, word: settings.ConcWordProp}
	if s.word == "" || !forward(s.word) {
		// Fall back to the main annotation, e.g. for formats that do not call it "word"
		main := fi.MainAnnotation()
		if main == nil || !main.ForwardIndex {
			return nil, errors.NewInvalidQueryError("", fmt.Sprintf("field '%s' has no forward index to build concordances from", field))
		}
		s.word = main.Key()
	}
	if settings.ConcPunctProp != "" && forward(settings.ConcPunctProp) {
		s.punct = settings.ConcPunctProp
	}

	if settings.ConcAttrProps == nil {
		for _, key := range fi.ForwardIndexAnnotations() {
			if key != s.word && key != s.punct {
				s.attrs = append(s.attrs, key)
			}
		}
		return s, nil
	}
	for _, key := range settings.ConcAttrProps {
		if !forward(key) {
			return nil, errors.NewInvalidQueryError("", fmt.Sprintf("annotation '%s' of field '%s' has no forward index", key, field))
		}
		s.attrs = append(s.attrs, key)
	}
	return s, nil
}

func (s *forwardIndexSource) parts(ctx context.Context, hit index.Hit, start, end int) (string, string, string, error) {
	words, err := s.index.ForwardValues(ctx, hit.DocID, s.field, s.word, start, end)
	if err != nil {
		return "", "", "", err
	}
	var punct [][]string
	if s.punct != "" {
		if punct, err = s.index.ForwardValues(ctx, hit.DocID, s.field, s.punct, start, end); err != nil {
			return "", "", "", err
		}
	}
	attrs := make([][][]string, len(s.attrs))
	for i, key := range s.attrs {
		if attrs[i], err = s.index.ForwardValues(ctx, hit.DocID, s.field, key, start, end); err != nil {
			return "", "", "", err
		}
	}

	part := func(from, to int) string {
		from, to = clamp(from-start, len(words)), clamp(to-start, len(words))
		var b strings.Builder
		for i := from; i < to; i++ {
			if i > from {
				b.WriteString(s.separator(punct, i))
			}
			b.WriteString("<w")
			for a, key := range s.attrs {
				if v := joinValues(attrs[a], i); v != "" {
					fmt.Fprintf(&b, ` %s="%s"`, strings.ReplaceAll(key, "#", "_"), html.EscapeString(v))
				}
			}
			b.WriteString(">")
			b.WriteString(html.EscapeString(joinValues(words, i)))
			b.WriteString("</w>")
		}
		return b.String()
	}
	return part(start, hit.Start), part(hit.Start, hit.End), part(hit.End, end), nil
}

// separator is the stored punctuation before position i, or a space without a punct annotation
func (s *forwardIndexSource) separator(punct [][]string, i int) string {
	if s.punct == "" {
		return " "
	}
	return html.EscapeString(joinValues(punct, i))
}

// contentStoreSource joins the original token markup
type contentStoreSource struct {
	index services.IndexReader
	field string
}

func (s *contentStoreSource) parts(ctx context.Context, hit index.Hit, start, end int) (string, string, string, error) {
	markup, err := s.index.TokenMarkup(ctx, hit.DocID, s.field, start, end)
	if err != nil {
		return "", "", "", err
	}
	part := func(from, to int) string {
		return strings.Join(markup[clamp(from-start, len(markup)):clamp(to-start, len(markup))], " ")
	}
	return part(start, hit.Start), part(hit.Start, hit.End), part(hit.End, end), nil
}

func joinValues(values [][]string, i int) string {
	if i >= len(values) {
		return ""
	}
	return strings.Join(values[i], "|")
}

func clamp(i, n int) int {
	return max(0, min(i, n))
}
