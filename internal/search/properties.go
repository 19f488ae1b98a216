package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/tokenizer"
	"github.com/gcbaptista/go-corpus-engine/services"
)

// HitProperty derives a sortable, groupable value from a hit. The set of implementations is
// closed: DocProperty, MatchTextProperty and ContextWordProperty.
type HitProperty interface {
	// Name is the canonical form of the property
	Name() string
	value(ctx context.Context, idx services.IndexReader, field string, hit index.Hit) (string, error)
}

// DocProperty is the document PID, or a document metadata value when Metadata is set.
type DocProperty struct {
	Metadata string
}

func (p DocProperty) Name() string {
	if p.Metadata == "" {
		return "doc"
	}
	return "doc:" + p.Metadata
}

func (p DocProperty) value(_ context.Context, idx services.IndexReader, _ string, hit index.Hit) (string, error) {
	info, ok := idx.Document(hit.DocID)
	if !ok {
		return "", fmt.Errorf("document %d is no longer in index '%s'", hit.DocID, idx.Name())
	}
	if p.Metadata == "" {
		return info.PID, nil
	}
	return info.MetadataValue(p.Metadata), nil
}

// MatchTextProperty is the matched tokens' values of an annotation, desensitized with Sensitivity.
type MatchTextProperty struct {
	Annotation  string
	Sensitivity index.MatchSensitivity
}

func (p MatchTextProperty) Name() string {
	return fmt.Sprintf("hit:%s:%s", p.Annotation, p.Sensitivity)
}

func (p MatchTextProperty) value(ctx context.Context, idx services.IndexReader, field string, hit index.Hit) (string, error) {
	return annotationText(ctx, idx, field, p.Annotation, p.Sensitivity, hit.DocID, hit.Start, hit.End)
}

// ContextSide selects the token before or after a hit
type ContextSide int

const (
	Left ContextSide = iota
	Right
)

func (s ContextSide) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// ContextWordProperty is the annotation value of the token directly left or right of the hit.
type ContextWordProperty struct {
	Annotation  string
	Side        ContextSide
	Sensitivity index.MatchSensitivity
}

func (p ContextWordProperty) Name() string {
	return fmt.Sprintf("%s:%s:%s", p.Side, p.Annotation, p.Sensitivity)
}

func (p ContextWordProperty) value(ctx context.Context, idx services.IndexReader, field string, hit index.Hit) (string, error) {
	pos := hit.End
	if p.Side == Left {
		if hit.Start == 0 {
			return "", nil
		}
		pos = hit.Start - 1
	}
	return annotationText(ctx, idx, field, p.Annotation, p.Sensitivity, hit.DocID, pos, pos+1)
}

// annotationText joins the first forward index value of each position in [start, end)
func annotationText(ctx context.Context, idx services.IndexReader, field, annotation string, m index.MatchSensitivity, docID uint32, start, end int) (string, error) {
	values, err := idx.ForwardValues(ctx, docID, field, annotation, start, end)
	if err != nil {
		return "", err
	}
	transform := tokenizer.For(m)
	words := make([]string, len(values))
	for i, vs := range values {
		if len(vs) > 0 {
			words[i] = transform(vs[0])
		}
	}
	return strings.Join(words, " "), nil
}

// ParseHitProperty reads the forms "doc", "doc:<metadata>", "hit:<annotation>[:<sensitivity>]",
// "left:<annotation>[:<sensitivity>]" and "right:<annotation>[:<sensitivity>]". The sensitivity
// defaults to insensitive.
func ParseHitProperty(s string) (HitProperty, error) {
	parts := strings.Split(s, ":")
	if parts[0] == "doc" {
		switch len(parts) {
		case 1:
			return DocProperty{}, nil
		case 2:
			return DocProperty{Metadata: parts[1]}, nil
		}
		return nil, fmt.Errorf("invalid hit property '%s'", s)
	}
	if len(parts) < 2 || len(parts) > 3 || parts[1] == "" {
		return nil, fmt.Errorf("invalid hit property '%s'", s)
	}
	m := index.Insensitive
	if len(parts) == 3 {
		var err error
		if m, err = index.ParseMatchSensitivity(parts[2]); err != nil {
			return nil, fmt.Errorf("invalid hit property '%s': %w", s, err)
		}
	}
	switch parts[0] {
	case "hit":
		return MatchTextProperty{Annotation: parts[1], Sensitivity: m}, nil
	case "left":
		return ContextWordProperty{Annotation: parts[1], Side: Left, Sensitivity: m}, nil
	case "right":
		return ContextWordProperty{Annotation: parts[1], Side: Right, Sensitivity: m}, nil
	}
	return nil, fmt.Errorf("unknown hit property '%s'", parts[0])
}
