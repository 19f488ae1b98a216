package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gcbaptista/go-corpus-engine/internal/errors"
)

// EncodingKind selects the serialized form of a format description
type EncodingKind string

const (
	EncodingYAML EncodingKind = "yaml"
	EncodingJSON EncodingKind = "json"
)

// formatFileNameRegex is the naming rule for uploaded format files
var formatFileNameRegex = regexp.MustCompile(`^[\w_\-]+(\.blf)?\.(ya?ml|json)$`)

// ValidFormatFileName reports whether fileName is an acceptable format file name
func ValidFormatFileName(fileName string) bool {
	return formatFileNameRegex.MatchString(fileName)
}

// FormatIdentifier strips the format file extensions: "tei.blf.yaml" -> "tei".
func FormatIdentifier(fileName string) string {
	name := filepath.Base(fileName)
	for _, ext := range []string{".blf.yaml", ".blf.yml", ".blf.json", ".yaml", ".yml", ".json"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// EncodingForFile picks the encoding from a file extension
func EncodingForFile(fileName string) EncodingKind {
	if strings.HasSuffix(fileName, ".json") {
		return EncodingJSON
	}
	return EncodingYAML
}

// The document types below are the serialized form; they keep field order by using lists.

type formatDoc struct {
	Name            string              `json:"name,omitempty" yaml:"name,omitempty"`
	DisplayName     string              `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description     string              `json:"description,omitempty" yaml:"description,omitempty"`
	NamespaceAware  *bool               `json:"namespaceAware,omitempty" yaml:"namespaceAware,omitempty"`
	Namespaces      map[string]string   `json:"namespaces,omitempty" yaml:"namespaces,omitempty"`
	DocumentPath    string              `json:"documentPath" yaml:"documentPath"`
	MetadataPath    string              `json:"metadataPath,omitempty" yaml:"metadataPath,omitempty"`
	AnnotatedFields []annotatedFieldDoc `json:"annotatedFields" yaml:"annotatedFields"`
	MetadataFields  []metadataFieldDoc  `json:"metadataFields,omitempty" yaml:"metadataFields,omitempty"`
}

type annotatedFieldDoc struct {
	Name          string          `json:"name" yaml:"name"`
	DisplayName   string          `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description   string          `json:"description,omitempty" yaml:"description,omitempty"`
	ContainerPath string          `json:"containerPath,omitempty" yaml:"containerPath,omitempty"`
	WordPath      string          `json:"wordPath" yaml:"wordPath"`
	Annotations   []annotationDoc `json:"annotations" yaml:"annotations"`
}

type annotationDoc struct {
	Name              string             `json:"name" yaml:"name"`
	BasePath          string             `json:"basePath,omitempty" yaml:"basePath,omitempty"`
	ValuePath         string             `json:"valuePath" yaml:"valuePath"`
	ForEachPath       string             `json:"forEachPath,omitempty" yaml:"forEachPath,omitempty"`
	CaptureValuePaths []string           `json:"captureValuePaths,omitempty" yaml:"captureValuePaths,omitempty"`
	Process           []ProcessStep      `json:"process,omitempty" yaml:"process,omitempty"`
	Sensitivity       SensitivitySetting `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`
	ForwardIndex      *bool              `json:"forwardIndex,omitempty" yaml:"forwardIndex,omitempty"`
	MultipleValues    bool               `json:"multipleValues,omitempty" yaml:"multipleValues,omitempty"`
	DisplayName       string             `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description       string             `json:"description,omitempty" yaml:"description,omitempty"`
	UIType            string             `json:"uiType,omitempty" yaml:"uiType,omitempty"`
	SubAnnotations    []annotationDoc    `json:"subAnnotations,omitempty" yaml:"subAnnotations,omitempty"`
}

type metadataFieldDoc struct {
	Name        string        `json:"name" yaml:"name"`
	ValuePath   string        `json:"valuePath" yaml:"valuePath"`
	Process     []ProcessStep `json:"process,omitempty" yaml:"process,omitempty"`
	DisplayName string        `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	UIType      string        `json:"uiType,omitempty" yaml:"uiType,omitempty"`
}

// LoadFormatFile reads and validates a format description. Files without a name
// get the identifier derived from the file name.
func LoadFormatFile(path string) (*InputFormat, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read format file %s: %w", path, err)
	}
	format, err := LoadFormat(bytes.NewReader(data), EncodingForFile(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load format file %s: %w", path, err)
	}
	if format.Name == "" {
		format.Name = FormatIdentifier(path)
	}
	return format, nil
}

// LoadFormat decodes a format description and validates it.
func LoadFormat(r io.Reader, kind EncodingKind) (*InputFormat, error) {
	var doc formatDoc
	switch kind {
	case EncodingJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: failed to decode JSON format: %v", errors.ErrConfiguration, err)
		}
	default:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: failed to decode YAML format: %v", errors.ErrConfiguration, err)
		}
	}

	format, err := doc.build()
	if err != nil {
		return nil, err
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return format, nil
}

// Marshal serializes the format in the requested encoding
func (f *InputFormat) Marshal(kind EncodingKind) ([]byte, error) {
	doc := newFormatDoc(f)
	if kind == EncodingJSON {
		return json.MarshalIndent(doc, "", "  ")
	}
	return yaml.Marshal(doc)
}

func (d *formatDoc) build() (*InputFormat, error) {
	f := NewInputFormat(d.Name)
	f.DisplayName = d.DisplayName
	f.Description = d.Description
	if d.NamespaceAware != nil {
		f.NamespaceAware = *d.NamespaceAware
	}
	for prefix, uri := range d.Namespaces {
		f.AddNamespace(prefix, uri)
	}
	f.DocumentPath = d.DocumentPath
	if d.MetadataPath != "" {
		f.SetMetadataPath(d.MetadataPath)
	}
	for _, fd := range d.AnnotatedFields {
		field := &AnnotatedField{
			Name:          fd.Name,
			DisplayName:   fd.DisplayName,
			Description:   fd.Description,
			ContainerPath: fd.ContainerPath,
			WordPath:      fd.WordPath,
		}
		for _, ad := range fd.Annotations {
			if ad.ForEachPath != "" {
				return nil, errors.NewConfigurationError("annotation", ad.Name, "forEachPath",
					"forEach is only allowed on sub-annotations")
			}
			annot := &Annotation{Name: ad.Name, ValueSpec: ad.valueSpec()}
			for _, sd := range ad.SubAnnotations {
				sub, err := sd.subAnnotation(ad.Name)
				if err != nil {
					return nil, err
				}
				annot.AddSubAnnotation(sub)
			}
			field.AddAnnotation(annot)
		}
		f.AddAnnotatedField(field)
	}
	for _, md := range d.MetadataFields {
		f.AddMetadataField(&MetadataField{
			Name:        md.Name,
			ValuePath:   md.ValuePath,
			Process:     md.Process,
			DisplayName: md.DisplayName,
			Description: md.Description,
			UIType:      md.UIType,
		})
	}
	return f, nil
}

func (a *annotationDoc) valueSpec() ValueSpec {
	forwardIndex := true
	if a.ForwardIndex != nil {
		forwardIndex = *a.ForwardIndex
	}
	sensitivity := a.Sensitivity
	if sensitivity == "" {
		sensitivity = SensitivityDefault
	}
	return ValueSpec{
		BasePath:          a.BasePath,
		ValuePath:         a.ValuePath,
		CaptureValuePaths: a.CaptureValuePaths,
		Process:           a.Process,
		Sensitivity:       sensitivity,
		ForwardIndex:      forwardIndex,
		MultipleValues:    a.MultipleValues,
		DisplayName:       a.DisplayName,
		Description:       a.Description,
		UIType:            a.UIType,
	}
}

func (a *annotationDoc) subAnnotation(parent string) (SubAnnotation, error) {
	if len(a.SubAnnotations) > 0 {
		return nil, errors.NewConfigurationError("subAnnotation", parent+"/"+a.Name, "subAnnotations",
			"sub-annotations cannot have sub-annotations of their own")
	}
	if a.ForEachPath != "" {
		// For a forEach template the name attribute is the path yielding the instance name
		return &ForEachTemplate{ForEachPath: a.ForEachPath, NamePath: a.Name, ValueSpec: a.valueSpec()}, nil
	}
	return &StaticSubAnnotation{Name: a.Name, ValueSpec: a.valueSpec()}, nil
}

func newFormatDoc(f *InputFormat) formatDoc {
	doc := formatDoc{
		Name:         f.Name,
		DisplayName:  f.DisplayName,
		Description:  f.Description,
		Namespaces:   f.Namespaces,
		DocumentPath: f.DocumentPath,
		MetadataPath: f.metadataPath,
	}
	if !f.NamespaceAware {
		aware := false
		doc.NamespaceAware = &aware
	}
	for _, field := range f.AnnotatedFields {
		fd := annotatedFieldDoc{
			Name:          field.Name,
			DisplayName:   field.DisplayName,
			Description:   field.Description,
			ContainerPath: field.ContainerPath,
			WordPath:      field.WordPath,
		}
		for _, annot := range field.Annotations {
			ad := newAnnotationDoc(annot.Name, "", &annot.ValueSpec)
			for _, sub := range annot.SubAnnotations {
				switch s := sub.(type) {
				case *StaticSubAnnotation:
					ad.SubAnnotations = append(ad.SubAnnotations, newAnnotationDoc(s.Name, "", &s.ValueSpec))
				case *ForEachTemplate:
					ad.SubAnnotations = append(ad.SubAnnotations, newAnnotationDoc(s.NamePath, s.ForEachPath, &s.ValueSpec))
				}
			}
			fd.Annotations = append(fd.Annotations, ad)
		}
		doc.AnnotatedFields = append(doc.AnnotatedFields, fd)
	}
	for _, mf := range f.MetadataFields {
		doc.MetadataFields = append(doc.MetadataFields, metadataFieldDoc{
			Name:        mf.Name,
			ValuePath:   mf.ValuePath,
			Process:     mf.Process,
			DisplayName: mf.DisplayName,
			Description: mf.Description,
			UIType:      mf.UIType,
		})
	}
	return doc
}

func newAnnotationDoc(name, forEachPath string, v *ValueSpec) annotationDoc {
	ad := annotationDoc{
		Name:              name,
		BasePath:          v.BasePath,
		ValuePath:         v.ValuePath,
		ForEachPath:       forEachPath,
		CaptureValuePaths: v.CaptureValuePaths,
		Process:           v.Process,
		MultipleValues:    v.MultipleValues,
		DisplayName:       v.DisplayName,
		Description:       v.Description,
		UIType:            v.UIType,
	}
	if v.Sensitivity != SensitivityDefault {
		ad.Sensitivity = v.Sensitivity
	}
	if !v.ForwardIndex {
		fi := false
		ad.ForwardIndex = &fi
	}
	return ad
}
