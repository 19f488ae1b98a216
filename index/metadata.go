package index

import (
	"bytes"
	"encoding/gob"
	"sort"
	"sync"

	"github.com/gcbaptista/go-corpus-engine/config"
)

// AnnotationInfo describes how one annotation or sub-annotation was indexed.
type AnnotationInfo struct {
	Field         string
	Annotation    string
	SubAnnotation string
	Sensitivities []MatchSensitivity
	ForwardIndex  bool
	Dynamic       bool   // Discovered through forEach expansion while indexing
	Template      string // forEach path of the template a dynamic entry came from
}

// Key returns the query-level name of the annotation
func (a *AnnotationInfo) Key() string {
	return AnnotationKey(a.Annotation, a.SubAnnotation)
}

// HasSensitivity reports whether the given variant was indexed
func (a *AnnotationInfo) HasSensitivity(m MatchSensitivity) bool {
	for _, s := range a.Sensitivities {
		if s == m {
			return true
		}
	}
	return false
}

// Variant returns the (field, annotation, sensitivity) triple for this annotation
func (a *AnnotationInfo) Variant(m MatchSensitivity) AnnotationSensitivity {
	return AnnotationSensitivity{Field: a.Field, Annotation: a.Annotation, SubAnnotation: a.SubAnnotation, Sensitivity: m}
}

// PhysicalFields returns the physical field of every indexed variant
func (a *AnnotationInfo) PhysicalFields() []string {
	out := make([]string, len(a.Sensitivities))
	for i, m := range a.Sensitivities {
		out[i] = a.Variant(m).PhysicalField()
	}
	return out
}

// DynamicTemplate remembers how forEach instances under a parent are indexed
type DynamicTemplate struct {
	Parent       string
	ForEachPath  string
	Setting      config.SensitivitySetting
	ForwardIndex bool
}

// FieldInfo describes one annotated field of an index
type FieldInfo struct {
	Name        string
	Annotations []*AnnotationInfo // Static annotations in declaration order, then dynamic ones by discovery
	Templates   []DynamicTemplate
	TokenCount  int
}

// Annotation returns the annotation with the given key ("pos" or "pos#head")
func (f *FieldInfo) Annotation(key string) (*AnnotationInfo, bool) {
	for _, a := range f.Annotations {
		if a.Key() == key {
			return a, true
		}
	}
	return nil, false
}

// MainAnnotation returns the first declared annotation of the field
func (f *FieldInfo) MainAnnotation() *AnnotationInfo {
	if len(f.Annotations) == 0 {
		return nil
	}
	return f.Annotations[0]
}

// ForwardIndexAnnotations returns the keys of all annotations that store forward index values
func (f *FieldInfo) ForwardIndexAnnotations() []string {
	var out []string
	for _, a := range f.Annotations {
		if a.ForwardIndex {
			out = append(out, a.Key())
		}
	}
	return out
}

// Metadata describes what was indexed and under which physical names.
// It is built from the input format when the index is created and grows as forEach
// expansion discovers new annotation names.
type Metadata struct {
	mu            sync.RWMutex
	Name          string
	FormatName    string
	Fields        []*FieldInfo
	MainField     string
	DocumentCount int
}

// gobMetadata mirrors Metadata without the mutex
type gobMetadata struct {
	Name          string
	FormatName    string
	Fields        []*FieldInfo
	MainField     string
	DocumentCount int
}

// NewMetadata derives the index metadata of a validated format
func NewMetadata(name string, format *config.InputFormat) *Metadata {
	m := &Metadata{Name: name, FormatName: format.Name}
	for _, field := range format.AnnotatedFields {
		fi := &FieldInfo{Name: field.Name}
		for _, annot := range field.Annotations {
			fi.Annotations = append(fi.Annotations, &AnnotationInfo{
				Field:         field.Name,
				Annotation:    annot.Name,
				Sensitivities: Variants(annot.Sensitivity, annot.Name),
				ForwardIndex:  annot.ForwardIndex,
			})
			for _, sub := range annot.SubAnnotations {
				switch s := sub.(type) {
				case *config.StaticSubAnnotation:
					fi.Annotations = append(fi.Annotations, &AnnotationInfo{
						Field:         field.Name,
						Annotation:    annot.Name,
						SubAnnotation: s.Name,
						Sensitivities: Variants(s.Sensitivity, s.Name),
						ForwardIndex:  s.ForwardIndex,
					})
				case *config.ForEachTemplate:
					fi.Templates = append(fi.Templates, DynamicTemplate{
						Parent:       annot.Name,
						ForEachPath:  s.ForEachPath,
						Setting:      s.Sensitivity,
						ForwardIndex: s.ForwardIndex,
					})
				}
			}
		}
		m.Fields = append(m.Fields, fi)
	}
	if main := format.MainAnnotatedField(); main != nil {
		m.MainField = main.Name
	}
	return m
}

// Field returns a snapshot of the annotated field with the given name. Later dynamic
// registrations do not show up in the snapshot.
func (m *Metadata) Field(name string) (*FieldInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.field(name)
	if !ok {
		return nil, false
	}
	snapshot := *f
	snapshot.Annotations = append([]*AnnotationInfo(nil), f.Annotations...)
	return &snapshot, true
}

// FieldNames returns the annotated field names in declaration order
func (m *Metadata) FieldNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

func (m *Metadata) field(name string) (*FieldInfo, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// MainAnnotatedField returns the main annotated field
func (m *Metadata) MainAnnotatedField() *FieldInfo {
	f, _ := m.Field(m.MainField)
	return f
}

// Annotation looks up an annotation of a field
func (m *Metadata) Annotation(field, key string) (*AnnotationInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.field(field)
	if !ok {
		return nil, false
	}
	return f.Annotation(key)
}

// RegisterDynamic records a forEach instance name under parent, indexed with the settings
// of the template with the given forEach path, and returns its info. Registering the same
// name from the same template again returns the existing entry. A name already taken by a
// static sub-annotation or by another template is rejected.
func (m *Metadata) RegisterDynamic(field, parent, template, name string) (*AnnotationInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.field(field)
	if !ok {
		return nil, false
	}
	key := AnnotationKey(parent, name)
	if existing, ok := f.Annotation(key); ok {
		if existing.Dynamic && existing.Template == template {
			return existing, true
		}
		return nil, false
	}
	for _, t := range f.Templates {
		if t.Parent != parent || t.ForEachPath != template {
			continue
		}
		info := &AnnotationInfo{
			Field:         field,
			Annotation:    parent,
			SubAnnotation: name,
			Sensitivities: Variants(t.Setting, name),
			ForwardIndex:  t.ForwardIndex,
			Dynamic:       true,
			Template:      template,
		}
		f.Annotations = append(f.Annotations, info)
		return info, true
	}
	return nil, false
}

// DynamicNames returns the sorted forEach instance names discovered under parent
func (m *Metadata) DynamicNames(field, parent string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.field(field)
	if !ok {
		return nil
	}
	var names []string
	for _, a := range f.Annotations {
		if a.Dynamic && a.Annotation == parent {
			names = append(names, a.SubAnnotation)
		}
	}
	sort.Strings(names)
	return names
}

// AddDocuments updates the document and per-field token counters
func (m *Metadata) AddDocuments(docs int, tokensPerField map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DocumentCount += docs
	for name, n := range tokensPerField {
		if f, ok := m.field(name); ok {
			f.TokenCount += n
		}
	}
}

// Documents returns the number of indexed documents
func (m *Metadata) Documents() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.DocumentCount
}

// TokenCounts returns the number of indexed tokens per annotated field
func (m *Metadata) TokenCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.Fields))
	for _, f := range m.Fields {
		out[f.Name] = f.TokenCount
	}
	return out
}

// GobEncode implements the gob.GobEncoder interface for Metadata.
func (m *Metadata) GobEncode() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobMetadata{
		Name:          m.Name,
		FormatName:    m.FormatName,
		Fields:        m.Fields,
		MainField:     m.MainField,
		DocumentCount: m.DocumentCount,
	}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for Metadata.
func (m *Metadata) GobDecode(data []byte) error {
	var decoded gobMetadata
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&decoded); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Name = decoded.Name
	m.FormatName = decoded.FormatName
	m.Fields = decoded.Fields
	m.MainField = decoded.MainField
	m.DocumentCount = decoded.DocumentCount
	return nil
}
