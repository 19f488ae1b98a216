package search

import (
	"fmt"

	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/internal/tokenizer"
)

// ExecutionContext carries what pattern translation needs to pick physical fields:
// the index metadata, the annotated field searched and the requested match sensitivity.
type ExecutionContext struct {
	Metadata    *index.Metadata
	Field       string
	Sensitivity index.MatchSensitivity
}

// NewExecutionContext returns a context for field, or the main annotated field when field is empty.
func NewExecutionContext(metadata *index.Metadata, field string, m index.MatchSensitivity) ExecutionContext {
	if field == "" && metadata != nil {
		field = metadata.MainField
	}
	return ExecutionContext{Metadata: metadata, Field: field, Sensitivity: m}
}

// WithSensitivity returns a copy of the context searching with m
func (ec ExecutionContext) WithSensitivity(m index.MatchSensitivity) ExecutionContext {
	ec.Sensitivity = m
	return ec
}

// resolve returns the physical field holding annotation key in the requested sensitivity and
// the transform that desensitizes query values the same way indexed values were.
func (ec ExecutionContext) resolve(key string, p TextPattern) (string, tokenizer.Transform, error) {
	if ec.Metadata == nil {
		return "", nil, errors.NewInvalidQueryError(p.String(), "no index metadata to resolve fields against")
	}
	field, ok := ec.Metadata.Field(ec.Field)
	if !ok {
		return "", nil, errors.NewInvalidQueryError(p.String(), fmt.Sprintf("unknown annotated field '%s'", ec.Field))
	}
	if key == "" {
		main := field.MainAnnotation()
		if main == nil {
			return "", nil, errors.NewInvalidQueryError(p.String(), fmt.Sprintf("field '%s' has no annotations", field.Name))
		}
		key = main.Key()
	}
	info, ok := field.Annotation(key)
	if !ok {
		return "", nil, errors.NewInvalidQueryError(p.String(), fmt.Sprintf("unknown annotation '%s' in field '%s'", key, field.Name))
	}
	if !info.HasSensitivity(ec.Sensitivity) {
		return "", nil, errors.NewInvalidQueryError(p.String(),
			fmt.Sprintf("annotation '%s' is not indexed %s", key, ec.Sensitivity))
	}
	return info.Variant(ec.Sensitivity).PhysicalField(), tokenizer.For(ec.Sensitivity), nil
}
