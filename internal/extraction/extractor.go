// Package extraction interprets an input format against document trees and produces the
// per-token annotation values that get indexed.
package extraction

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/internal/process"
	"github.com/gcbaptista/go-corpus-engine/model"
	"github.com/gcbaptista/go-corpus-engine/services"
)

// PIDField is the metadata field whose value becomes the document's persistent identifier
const PIDField = "pid"

var capturePlaceholder = regexp.MustCompile(`\$([1-9])`)

// pathChecker is implemented by evaluators that can compile a path without evaluating it
type pathChecker interface {
	Check(path string, namespaces map[string]string) error
}

// Extractor turns documents into extraction records according to one input format.
// It is safe for concurrent use once created.
type Extractor struct {
	format     *config.InputFormat
	evaluator  services.NodeEvaluator
	namespaces map[string]string
	pipelines  map[*config.ValueSpec]process.Pipeline
	metadata   map[*config.MetadataField]process.Pipeline
	tagger     process.Tagger
	logger     *slog.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger used for extraction diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithTagger runs every input through tagger before parsing it
func WithTagger(tagger process.Tagger) Option {
	return func(e *Extractor) {
		e.tagger = tagger
	}
}

// New creates an extractor for a private copy of format. The format is validated, all
// process pipelines are built and, when the evaluator supports it, every path is compiled,
// so configuration problems surface before the first document is read.
func New(format *config.InputFormat, evaluator services.NodeEvaluator, opts ...Option) (*Extractor, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	e := &Extractor{
		format:    format.Copy(),
		evaluator: evaluator,
		pipelines: make(map[*config.ValueSpec]process.Pipeline),
		metadata:  make(map[*config.MetadataField]process.Pipeline),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.format.NamespaceAware && len(e.format.Namespaces) > 0 {
		e.namespaces = e.format.Namespaces
	}
	if err := e.compile(); err != nil {
		return nil, err
	}
	return e, nil
}

// Format returns the extractor's copy of the input format
func (e *Extractor) Format() *config.InputFormat {
	return e.format
}

func (e *Extractor) compile() error {
	checker, _ := e.evaluator.(pathChecker)
	check := func(object, name, attribute, path string) error {
		if checker == nil || path == "" {
			return nil
		}
		if err := checker.Check(config.Relativize(path), e.namespaces); err != nil {
			return errors.NewConfigurationError(object, name, attribute, err.Error())
		}
		return nil
	}
	spec := func(object, name string, v *config.ValueSpec) error {
		p, err := process.NewPipeline(v.Process)
		if err != nil {
			return err
		}
		e.pipelines[v] = p
		if err := check(object, name, "basePath", v.BasePath); err != nil {
			return err
		}
		if !v.IsValuePathInt() && len(v.CaptureValuePaths) == 0 {
			if err := check(object, name, "valuePath", v.ValuePath); err != nil {
				return err
			}
		}
		for _, c := range v.CaptureValuePaths {
			if err := check(object, name, "captureValuePaths", c); err != nil {
				return err
			}
		}
		return nil
	}

	if err := check("format", e.format.Name, "documentPath", e.format.DocumentPath); err != nil {
		return err
	}
	if err := check("format", e.format.Name, "metadataPath", e.format.MetadataPath()); err != nil {
		return err
	}
	for _, field := range e.format.AnnotatedFields {
		if err := check("annotatedField", field.Name, "containerPath", field.Container()); err != nil {
			return err
		}
		if err := check("annotatedField", field.Name, "wordPath", field.WordPath); err != nil {
			return err
		}
		for _, annot := range field.Annotations {
			if err := spec("annotation", annot.Name, &annot.ValueSpec); err != nil {
				return err
			}
			for _, sub := range annot.SubAnnotations {
				switch s := sub.(type) {
				case *config.StaticSubAnnotation:
					if err := spec("subAnnotation", annot.Name+"/"+s.Name, &s.ValueSpec); err != nil {
						return err
					}
				case *config.ForEachTemplate:
					label := annot.Name + "/forEach(" + s.ForEachPath + ")"
					if err := check("subAnnotation", label, "forEachPath", s.ForEachPath); err != nil {
						return err
					}
					if err := check("subAnnotation", label, "namePath", s.NamePath); err != nil {
						return err
					}
					if err := spec("subAnnotation", label, &s.ValueSpec); err != nil {
						return err
					}
				}
			}
		}
	}
	for _, mf := range e.format.MetadataFields {
		p, err := process.NewPipeline(mf.Process)
		if err != nil {
			return err
		}
		e.metadata[mf] = p
		if err := check("metadataField", mf.Name, "valuePath", mf.ValuePath); err != nil {
			return err
		}
	}
	return nil
}

// SplitDocuments tags and parses an input file and returns its document nodes in document order.
func (e *Extractor) SplitDocuments(ctx context.Context, input []byte) ([]services.Node, error) {
	if e.tagger != nil {
		tagged, err := e.tagger.Tag(ctx, input)
		if err != nil {
			return nil, &errors.ExtractionError{Document: -1, Message: "tagging failed", Err: err}
		}
		input = tagged
	}
	root, err := e.evaluator.Parse(bytes.NewReader(input))
	if err != nil {
		return nil, &errors.ExtractionError{Document: -1, Message: "cannot parse input", Err: err}
	}
	docs, err := e.evaluator.Select(root, e.format.DocumentPath, e.namespaces)
	if err != nil {
		return nil, &errors.ExtractionError{Document: -1, Message: "cannot select documents", Err: err}
	}
	return docs, nil
}

// ExtractDocuments extracts every document of an input file sequentially.
func (e *Extractor) ExtractDocuments(ctx context.Context, input []byte) ([]*model.ExtractedDocument, error) {
	nodes, err := e.SplitDocuments(ctx, input)
	if err != nil {
		return nil, err
	}
	docs := make([]*model.ExtractedDocument, 0, len(nodes))
	for i, node := range nodes {
		doc, err := e.Extract(ctx, i, node)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Extract extracts one document node; n is its number in the input, used in errors.
// Annotated fields are extracted concurrently, the tokens of one field in order.
func (e *Extractor) Extract(ctx context.Context, n int, doc services.Node) (*model.ExtractedDocument, error) {
	metadata, err := e.extractMetadata(n, doc)
	if err != nil {
		return nil, err
	}

	fields := make([]*model.ExtractedField, len(e.format.AnnotatedFields))
	g, gctx := errgroup.WithContext(ctx)
	for i, field := range e.format.AnnotatedFields {
		g.Go(func() error {
			extracted, err := e.extractField(gctx, n, doc, field)
			if err != nil {
				return err
			}
			fields[i] = extracted
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &model.ExtractedDocument{
		Metadata: metadata,
		Fields:   fields,
		Markup:   e.evaluator.Markup(doc),
	}
	if pid := metadata[PIDField]; len(pid) > 0 {
		out.PID = pid[0]
	}
	e.logger.Debug("Extracted document", "document", n, "pid", out.PID, "fields", len(fields))
	return out, nil
}

func (e *Extractor) extractMetadata(n int, doc services.Node) (map[string][]string, error) {
	root := doc
	if mp := e.format.MetadataPath(); mp != "" {
		nodes, err := e.evaluator.Select(doc, mp, e.namespaces)
		if err != nil {
			return nil, &errors.ExtractionError{Document: n, Message: "cannot select metadata", Err: err}
		}
		if len(nodes) == 0 {
			e.logger.Debug("Metadata path matched nothing", "document", n, "path", mp)
			return map[string][]string{}, nil
		}
		root = nodes[0]
	}

	metadata := make(map[string][]string, len(e.format.MetadataFields))
	for _, mf := range e.format.MetadataFields {
		values, err := e.evaluator.EvaluateStrings(root, config.Relativize(mf.ValuePath), e.namespaces)
		if err != nil {
			return nil, &errors.ExtractionError{Document: n, Field: mf.Name, Message: "cannot evaluate metadata", Err: err}
		}
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}
		values, err = e.metadata[mf].Apply(values)
		if err != nil {
			return nil, &errors.ExtractionError{Document: n, Field: mf.Name, Message: "process step failed", Err: err}
		}
		if len(values) > 0 {
			metadata[mf.Name] = values
		}
	}
	return metadata, nil
}

// position identifies the token being extracted, for error reporting
type position struct {
	doc   int
	field string
	pos   int
}

func (p position) errorf(annotation string, err error, format string, args ...any) *errors.ExtractionError {
	return &errors.ExtractionError{
		Document:   p.doc,
		Field:      p.field,
		Annotation: annotation,
		Position:   p.pos,
		Message:    fmt.Sprintf(format, args...),
		Err:        err,
	}
}

func (e *Extractor) extractField(ctx context.Context, n int, doc services.Node, field *config.AnnotatedField) (*model.ExtractedField, error) {
	containers, err := e.evaluator.Select(doc, config.Relativize(field.Container()), e.namespaces)
	if err != nil {
		return nil, &errors.ExtractionError{Document: n, Field: field.Name, Message: "cannot select containers", Err: err}
	}

	out := &model.ExtractedField{Name: field.Name}
	at := position{doc: n, field: field.Name}
	for _, container := range containers {
		words, err := e.evaluator.Select(container, config.Relativize(field.WordPath), e.namespaces)
		if err != nil {
			return nil, &errors.ExtractionError{Document: n, Field: field.Name, Message: "cannot select words", Err: err}
		}
		for _, word := range words {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			tok := &model.Token{Position: at.pos, Markup: e.evaluator.Markup(word)}
			for _, annot := range field.Annotations {
				values, err := e.extractAnnotation(at, word, annot)
				if err != nil {
					return nil, err
				}
				tok.Values = append(tok.Values, values...)
			}
			out.Tokens = append(out.Tokens, tok)
			at.pos++
		}
	}
	return out, nil
}

// extractAnnotation returns the values of annot and its sub-annotations at one token
func (e *Extractor) extractAnnotation(at position, word services.Node, annot *config.Annotation) ([]model.TokenValues, error) {
	bases, err := e.baseNodes(word, &annot.ValueSpec)
	if err != nil {
		return nil, at.errorf(annot.Name, err, "cannot select base")
	}
	values, err := e.values(at, annot.Name, bases, &annot.ValueSpec)
	if err != nil {
		return nil, err
	}
	out := []model.TokenValues{{Annotation: annot.Name, ForwardIndex: annot.ForwardIndex, Values: values}}

	for _, sub := range annot.SubAnnotations {
		switch s := sub.(type) {
		case *config.StaticSubAnnotation:
			key := index.AnnotationKey(annot.Name, s.Name)
			var subBases []services.Node
			for _, base := range bases {
				nodes, err := e.baseNodes(base, &s.ValueSpec)
				if err != nil {
					return nil, at.errorf(key, err, "cannot select base")
				}
				subBases = append(subBases, nodes...)
			}
			values, err := e.values(at, key, subBases, &s.ValueSpec)
			if err != nil {
				return nil, err
			}
			out = append(out, model.TokenValues{
				Annotation:    annot.Name,
				SubAnnotation: s.Name,
				ForwardIndex:  s.ForwardIndex,
				Values:        values,
			})
		case *config.ForEachTemplate:
			for _, base := range bases {
				instances, err := e.expandForEach(at, annot.Name, base, s)
				if err != nil {
					return nil, err
				}
				for _, inst := range instances {
					out = append(out, model.TokenValues{
						Annotation:    annot.Name,
						SubAnnotation: inst.Name,
						Dynamic:       true,
						Template:      s.ForEachPath,
						ForwardIndex:  s.ForwardIndex,
						Values:        inst.Values,
					})
				}
			}
		}
	}
	return out, nil
}

// expandForEach instantiates tmpl once per node matching its forEach path under base.
// The instance name comes from the name path and is sanitized for use in field names.
func (e *Extractor) expandForEach(at position, parent string, base services.Node, tmpl *config.ForEachTemplate) ([]model.ResolvedAnnotation, error) {
	label := parent + "/forEach(" + tmpl.ForEachPath + ")"
	matches, err := e.evaluator.Select(base, config.Relativize(tmpl.ForEachPath), e.namespaces)
	if err != nil {
		return nil, at.errorf(label, err, "cannot evaluate forEachPath")
	}
	instances := make([]model.ResolvedAnnotation, 0, len(matches))
	for _, match := range matches {
		names, err := e.evaluator.EvaluateStrings(match, config.Relativize(tmpl.NamePath), e.namespaces)
		if err != nil {
			return nil, at.errorf(label, err, "cannot evaluate namePath")
		}
		name := ""
		if len(names) > 0 {
			name = index.SanitizeName(strings.TrimSpace(names[0]))
		}
		if name == "" {
			return nil, at.errorf(label, nil, "namePath produced an empty name")
		}
		bases, err := e.baseNodes(match, &tmpl.ValueSpec)
		if err != nil {
			return nil, at.errorf(label, err, "cannot select base")
		}
		values, err := e.values(at, index.AnnotationKey(parent, name), bases, &tmpl.ValueSpec)
		if err != nil {
			return nil, err
		}
		instances = append(instances, model.ResolvedAnnotation{Name: name, Values: values})
	}
	return instances, nil
}

func (e *Extractor) baseNodes(ctx services.Node, spec *config.ValueSpec) ([]services.Node, error) {
	if spec.BasePath == "" {
		return []services.Node{ctx}, nil
	}
	return e.evaluator.Select(ctx, config.Relativize(spec.BasePath), e.namespaces)
}

// values evaluates spec against each base node, applies the process pipeline and enforces
// the multiple values rule. A path matching nothing gives a single empty value.
func (e *Extractor) values(at position, key string, bases []services.Node, spec *config.ValueSpec) ([]string, error) {
	var raw []string
	if literal, ok := spec.ValuePathInt(); ok {
		raw = []string{strconv.Itoa(literal)}
	} else {
		for _, base := range bases {
			vs, err := e.rawValues(base, spec)
			if err != nil {
				return nil, at.errorf(key, err, "cannot evaluate value")
			}
			raw = append(raw, vs...)
		}
	}
	if len(raw) == 0 {
		raw = []string{""}
	}

	values, err := e.pipelines[spec].Apply(raw)
	if err != nil {
		return nil, at.errorf(key, err, "process step failed")
	}
	if len(values) > 1 && !spec.MultipleValues {
		return nil, at.errorf(key, nil, "%d values at one position but multipleValues is false", len(values))
	}
	return values, nil
}

func (e *Extractor) rawValues(base services.Node, spec *config.ValueSpec) ([]string, error) {
	if len(spec.CaptureValuePaths) == 0 {
		return e.evaluator.EvaluateStrings(base, config.Relativize(spec.ValuePath), e.namespaces)
	}
	captures := make([]string, len(spec.CaptureValuePaths))
	for i, p := range spec.CaptureValuePaths {
		vs, err := e.evaluator.EvaluateStrings(base, config.Relativize(p), e.namespaces)
		if err != nil {
			return nil, err
		}
		if len(vs) > 0 {
			captures[i] = vs[0]
		}
	}
	return []string{SubstituteCaptures(spec.ValuePath, captures)}, nil
}

// SubstituteCaptures replaces $1..$9 in template with the corresponding capture.
// Placeholders without a capture are left as they are.
func SubstituteCaptures(template string, captures []string) string {
	return capturePlaceholder.ReplaceAllStringFunc(template, func(m string) string {
		i := int(m[1] - '1')
		if i < len(captures) {
			return captures[i]
		}
		return m
	})
}
