package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gcbaptista/go-corpus-engine/internal/errors"
)

// MaxCaptureValuePaths is the number of $1..$9 placeholders a value path can use
const MaxCaptureValuePaths = 9

// reservedNameChars are used by the physical field naming scheme and may not occur in names
const reservedNameChars = "%@#"

var integerPathRegex = regexp.MustCompile(`^\d+$`)

// ValueSpec holds the attributes shared by annotations, sub-annotations and forEach templates:
// where to find a token's value and how to post-process and index it.
type ValueSpec struct {
	BasePath          string             // All other paths are relative to this (optional)
	ValuePath         string             // Path to the value, or an integer literal
	CaptureValuePaths []string           // Paths substituted for $1..$9 in ValuePath
	Process           []ProcessStep      // Ordered value transformations
	Sensitivity       SensitivitySetting // Which sensitivity variants to index
	ForwardIndex      bool               // Store values for concordances (default true)
	MultipleValues    bool               // More than one value per token position is allowed
	DisplayName       string
	Description       string
	UIType            string
}

// IsValuePathInt reports whether ValuePath is an integer literal rather than a path.
func (v *ValueSpec) IsValuePathInt() bool {
	_, ok := v.ValuePathInt()
	return ok
}

// ValuePathInt returns the literal value of an all-digit ValuePath.
func (v *ValueSpec) ValuePathInt() (int, bool) {
	if !integerPathRegex.MatchString(v.ValuePath) {
		return 0, false
	}
	n, err := strconv.Atoi(v.ValuePath)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (v *ValueSpec) validate(object, name string) error {
	if v.ValuePath == "" {
		return errors.NewMissingAttributeError(object, name, "valuePath")
	}
	if len(v.CaptureValuePaths) > MaxCaptureValuePaths {
		return errors.NewConfigurationError(object, name, "captureValuePaths",
			fmt.Sprintf("at most %d capture paths are allowed, got %d", MaxCaptureValuePaths, len(v.CaptureValuePaths)))
	}
	for i, p := range v.CaptureValuePaths {
		if strings.TrimSpace(p) == "" {
			return errors.NewConfigurationError(object, name, "captureValuePaths", fmt.Sprintf("capture path %d is empty", i+1))
		}
	}
	if !v.Sensitivity.Valid() {
		return errors.NewConfigurationError(object, name, "sensitivity", fmt.Sprintf("unknown sensitivity '%s'", v.Sensitivity))
	}
	return validateSteps(v.Process)
}

func (v ValueSpec) copy() ValueSpec {
	out := v
	if v.CaptureValuePaths != nil {
		out.CaptureValuePaths = append([]string(nil), v.CaptureValuePaths...)
	}
	out.Process = copySteps(v.Process)
	return out
}

// Annotation is a top-level, statically named token property of an annotated field.
type Annotation struct {
	Name string
	ValueSpec
	SubAnnotations []SubAnnotation // Insertion ordered, at most one level deep
}

// NewAnnotation creates an annotation with the defaults of the format description.
func NewAnnotation(name, valuePath string) *Annotation {
	return &Annotation{
		Name:      name,
		ValueSpec: ValueSpec{ValuePath: valuePath, ForwardIndex: true, Sensitivity: SensitivityDefault},
	}
}

// AddSubAnnotation appends a sub-annotation or forEach template.
func (a *Annotation) AddSubAnnotation(sub SubAnnotation) {
	a.SubAnnotations = append(a.SubAnnotations, sub)
}

// SubAnnotation looks up a static sub-annotation by name. ForEach templates are never returned.
func (a *Annotation) SubAnnotation(name string) (*StaticSubAnnotation, bool) {
	for _, sub := range a.SubAnnotations {
		if s, ok := sub.(*StaticSubAnnotation); ok && s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// StaticSubAnnotations returns the sub-annotations that have a fixed name, in order.
func (a *Annotation) StaticSubAnnotations() []*StaticSubAnnotation {
	var out []*StaticSubAnnotation
	for _, sub := range a.SubAnnotations {
		if s, ok := sub.(*StaticSubAnnotation); ok {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the annotation and recurses into its process steps and sub-annotations.
// The first problem found is returned.
func (a *Annotation) Validate() error {
	if err := validateName("annotation", a.Name); err != nil {
		return err
	}
	if err := a.ValueSpec.validate("annotation", a.Name); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, sub := range a.SubAnnotations {
		if sub == nil {
			return errors.NewConfigurationError("annotation", a.Name, "subAnnotations", "nil sub-annotation")
		}
		if err := sub.validate(a.Name); err != nil {
			return err
		}
		if s, ok := sub.(*StaticSubAnnotation); ok {
			if seen[s.Name] {
				return errors.NewConfigurationError("annotation", a.Name, "subAnnotations",
					fmt.Sprintf("duplicate sub-annotation name '%s'", s.Name))
			}
			seen[s.Name] = true
		}
	}
	return nil
}

// Copy returns a fully independent clone.
func (a *Annotation) Copy() *Annotation {
	out := &Annotation{Name: a.Name, ValueSpec: a.ValueSpec.copy()}
	if a.SubAnnotations != nil {
		out.SubAnnotations = make([]SubAnnotation, len(a.SubAnnotations))
		for i, sub := range a.SubAnnotations {
			out.SubAnnotations[i] = sub.copySub()
		}
	}
	return out
}

// SubAnnotation is either a *StaticSubAnnotation or a *ForEachTemplate.
// Neither variant can declare sub-annotations of its own.
type SubAnnotation interface {
	// Spec returns the value attributes of the sub-annotation
	Spec() *ValueSpec

	validate(parent string) error
	copySub() SubAnnotation
}

// StaticSubAnnotation is a named child annotation evaluated in its parent's base context.
type StaticSubAnnotation struct {
	Name string
	ValueSpec
}

// NewSubAnnotation creates a static sub-annotation with format defaults.
func NewSubAnnotation(name, valuePath string) *StaticSubAnnotation {
	return &StaticSubAnnotation{
		Name:      name,
		ValueSpec: ValueSpec{ValuePath: valuePath, ForwardIndex: true, Sensitivity: SensitivityDefault},
	}
}

func (s *StaticSubAnnotation) Spec() *ValueSpec { return &s.ValueSpec }

func (s *StaticSubAnnotation) validate(parent string) error {
	if err := validateName("subAnnotation", s.Name); err != nil {
		return err
	}
	return s.ValueSpec.validate("subAnnotation", parent+"/"+s.Name)
}

func (s *StaticSubAnnotation) copySub() SubAnnotation {
	return &StaticSubAnnotation{Name: s.Name, ValueSpec: s.ValueSpec.copy()}
}

// ForEachTemplate is instantiated once per node matching ForEachPath. For each match,
// NamePath yields the instance name and the value attributes are evaluated against the match.
type ForEachTemplate struct {
	ForEachPath string
	NamePath    string
	ValueSpec
}

// NewForEachTemplate creates a forEach template with format defaults.
func NewForEachTemplate(forEachPath, namePath, valuePath string) *ForEachTemplate {
	return &ForEachTemplate{
		ForEachPath: forEachPath,
		NamePath:    namePath,
		ValueSpec:   ValueSpec{ValuePath: valuePath, ForwardIndex: true, Sensitivity: SensitivityDefault},
	}
}

func (f *ForEachTemplate) Spec() *ValueSpec { return &f.ValueSpec }

func (f *ForEachTemplate) validate(parent string) error {
	label := parent + "/forEach(" + f.ForEachPath + ")"
	if f.ForEachPath == "" {
		return errors.NewMissingAttributeError("subAnnotation", label, "forEachPath")
	}
	if f.NamePath == "" {
		return errors.NewMissingAttributeError("subAnnotation", label, "namePath")
	}
	return f.ValueSpec.validate("subAnnotation", label)
}

func (f *ForEachTemplate) copySub() SubAnnotation {
	return &ForEachTemplate{ForEachPath: f.ForEachPath, NamePath: f.NamePath, ValueSpec: f.ValueSpec.copy()}
}

func validateName(object, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewMissingAttributeError(object, name, "name")
	}
	if strings.ContainsAny(name, reservedNameChars) {
		return errors.NewConfigurationError(object, name, "name",
			fmt.Sprintf("name may not contain any of %q", reservedNameChars))
	}
	return nil
}
