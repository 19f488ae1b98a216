// Package config describes document input formats: how a document is split into annotated
// fields, which per-token annotations each field has and where their values come from.
// It also holds the engine configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/gcbaptista/go-corpus-engine/internal/errors"
)

// DefaultContainerPath selects the document node itself
const DefaultContainerPath = "."

// Relativize makes a path relative to the current node: "/a" becomes "./a" and "//a"
// becomes ".//a", while "a" is returned unchanged.
func Relativize(path string) string {
	if strings.HasPrefix(path, "/") {
		return "." + path
	}
	return path
}

// InputFormat describes how to index documents of one format.
// Once validated it is treated as immutable; use Copy to derive variants.
type InputFormat struct {
	Name            string
	DisplayName     string
	Description     string
	NamespaceAware  bool
	Namespaces      map[string]string // prefix -> URI
	DocumentPath    string            // Selects the document nodes in an input file
	metadataPath    string            // Where metadata lives, relative to a document node
	AnnotatedFields []*AnnotatedField
	MetadataFields  []*MetadataField
}

// NewInputFormat creates an empty, namespace aware format.
func NewInputFormat(name string) *InputFormat {
	return &InputFormat{
		Name:           name,
		NamespaceAware: true,
		Namespaces:     make(map[string]string),
	}
}

// AddNamespace declares a namespace prefix
func (f *InputFormat) AddNamespace(prefix, uri string) {
	if f.Namespaces == nil {
		f.Namespaces = make(map[string]string)
	}
	f.Namespaces[prefix] = uri
}

// SetMetadataPath sets the metadata root; the path is always stored relativized.
func (f *InputFormat) SetMetadataPath(path string) {
	f.metadataPath = Relativize(path)
}

// MetadataPath returns the relativized metadata root, or "" if none was set
func (f *InputFormat) MetadataPath() string {
	return f.metadataPath
}

// AddAnnotatedField appends an annotated field
func (f *InputFormat) AddAnnotatedField(field *AnnotatedField) {
	f.AnnotatedFields = append(f.AnnotatedFields, field)
}

// AddMetadataField appends a metadata field
func (f *InputFormat) AddMetadataField(field *MetadataField) {
	f.MetadataFields = append(f.MetadataFields, field)
}

// AnnotatedField returns the annotated field with the given name
func (f *InputFormat) AnnotatedField(name string) (*AnnotatedField, bool) {
	for _, field := range f.AnnotatedFields {
		if field.Name == name {
			return field, true
		}
	}
	return nil, false
}

// MainAnnotatedField returns the first annotated field, which is used when a query names none
func (f *InputFormat) MainAnnotatedField() *AnnotatedField {
	if len(f.AnnotatedFields) == 0 {
		return nil
	}
	return f.AnnotatedFields[0]
}

// Validate checks the whole format and stops at the first invalid node.
func (f *InputFormat) Validate() error {
	if strings.TrimSpace(f.DocumentPath) == "" {
		return errors.NewMissingAttributeError("format", f.Name, "documentPath")
	}
	if len(f.AnnotatedFields) == 0 {
		return errors.NewConfigurationError("format", f.Name, "annotatedFields", "at least one annotated field is required")
	}
	for prefix, uri := range f.Namespaces {
		if prefix == "" || uri == "" {
			return errors.NewConfigurationError("format", f.Name, "namespaces",
				fmt.Sprintf("invalid namespace declaration %q=%q", prefix, uri))
		}
	}

	seenFields := make(map[string]bool)
	for _, field := range f.AnnotatedFields {
		if field == nil {
			return errors.NewConfigurationError("format", f.Name, "annotatedFields", "nil annotated field")
		}
		if err := field.Validate(); err != nil {
			return err
		}
		if seenFields[field.Name] {
			return errors.NewConfigurationError("annotatedField", field.Name, "name", "duplicate annotated field name")
		}
		seenFields[field.Name] = true
	}

	seenMeta := make(map[string]bool)
	for _, mf := range f.MetadataFields {
		if mf == nil {
			return errors.NewConfigurationError("format", f.Name, "metadataFields", "nil metadata field")
		}
		if err := mf.Validate(); err != nil {
			return err
		}
		if seenMeta[mf.Name] {
			return errors.NewConfigurationError("metadataField", mf.Name, "name", "duplicate metadata field name")
		}
		seenMeta[mf.Name] = true
	}
	return nil
}

// Copy returns a structurally identical clone that shares no mutable state with f.
func (f *InputFormat) Copy() *InputFormat {
	out := &InputFormat{
		Name:           f.Name,
		DisplayName:    f.DisplayName,
		Description:    f.Description,
		NamespaceAware: f.NamespaceAware,
		DocumentPath:   f.DocumentPath,
		metadataPath:   f.metadataPath,
	}
	if f.Namespaces != nil {
		out.Namespaces = make(map[string]string, len(f.Namespaces))
		for k, v := range f.Namespaces {
			out.Namespaces[k] = v
		}
	}
	if f.AnnotatedFields != nil {
		out.AnnotatedFields = make([]*AnnotatedField, len(f.AnnotatedFields))
		for i, field := range f.AnnotatedFields {
			out.AnnotatedFields[i] = field.Copy()
		}
	}
	if f.MetadataFields != nil {
		out.MetadataFields = make([]*MetadataField, len(f.MetadataFields))
		for i, mf := range f.MetadataFields {
			out.MetadataFields[i] = mf.Copy()
		}
	}
	return out
}

// AnnotatedField is a text field decomposed into parallel per-token annotation streams.
type AnnotatedField struct {
	Name          string
	DisplayName   string
	Description   string
	ContainerPath string // Nodes containing the tokens, relative to the document (default ".")
	WordPath      string // Each match is one token position
	Annotations   []*Annotation
}

// NewAnnotatedField creates an annotated field whose tokens are found by wordPath
func NewAnnotatedField(name, wordPath string) *AnnotatedField {
	return &AnnotatedField{Name: name, ContainerPath: DefaultContainerPath, WordPath: wordPath}
}

// AddAnnotation appends an annotation; the first one added is the main annotation
func (a *AnnotatedField) AddAnnotation(annot *Annotation) {
	a.Annotations = append(a.Annotations, annot)
}

// Annotation returns the top-level annotation with the given name
func (a *AnnotatedField) Annotation(name string) (*Annotation, bool) {
	for _, annot := range a.Annotations {
		if annot.Name == name {
			return annot, true
		}
	}
	return nil, false
}

// MainAnnotation returns the first annotation of the field
func (a *AnnotatedField) MainAnnotation() *Annotation {
	if len(a.Annotations) == 0 {
		return nil
	}
	return a.Annotations[0]
}

// Container returns the container path, defaulting to the document node
func (a *AnnotatedField) Container() string {
	if a.ContainerPath == "" {
		return DefaultContainerPath
	}
	return a.ContainerPath
}

// Validate checks the field and all of its annotations
func (a *AnnotatedField) Validate() error {
	if err := validateName("annotatedField", a.Name); err != nil {
		return err
	}
	if strings.TrimSpace(a.WordPath) == "" {
		return errors.NewMissingAttributeError("annotatedField", a.Name, "wordPath")
	}
	if len(a.Annotations) == 0 {
		return errors.NewConfigurationError("annotatedField", a.Name, "annotations", "at least one annotation is required")
	}
	seen := make(map[string]bool)
	for _, annot := range a.Annotations {
		if annot == nil {
			return errors.NewConfigurationError("annotatedField", a.Name, "annotations", "nil annotation")
		}
		if err := annot.Validate(); err != nil {
			return err
		}
		if seen[annot.Name] {
			return errors.NewConfigurationError("annotatedField", a.Name, "annotations",
				fmt.Sprintf("duplicate annotation name '%s'", annot.Name))
		}
		seen[annot.Name] = true
	}
	return nil
}

// Copy returns an independent clone of the field
func (a *AnnotatedField) Copy() *AnnotatedField {
	out := &AnnotatedField{
		Name:          a.Name,
		DisplayName:   a.DisplayName,
		Description:   a.Description,
		ContainerPath: a.ContainerPath,
		WordPath:      a.WordPath,
	}
	if a.Annotations != nil {
		out.Annotations = make([]*Annotation, len(a.Annotations))
		for i, annot := range a.Annotations {
			out.Annotations[i] = annot.Copy()
		}
	}
	return out
}

// MetadataField is a document-level value.
type MetadataField struct {
	Name        string
	ValuePath   string
	Process     []ProcessStep
	DisplayName string
	Description string
	UIType      string
}

// Validate checks the metadata field
func (m *MetadataField) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.NewMissingAttributeError("metadataField", m.Name, "name")
	}
	if m.ValuePath == "" {
		return errors.NewMissingAttributeError("metadataField", m.Name, "valuePath")
	}
	return validateSteps(m.Process)
}

// Copy returns an independent clone of the metadata field
func (m *MetadataField) Copy() *MetadataField {
	out := *m
	out.Process = copySteps(m.Process)
	return &out
}
