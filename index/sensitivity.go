package index

import (
	"fmt"
	"strings"

	"github.com/gcbaptista/go-corpus-engine/config"
)

// MatchSensitivity is one physical case/diacritics variant of an annotation.
type MatchSensitivity int

const (
	// Sensitive matches case and diacritics exactly
	Sensitive MatchSensitivity = iota
	// Insensitive ignores case and diacritics
	Insensitive
	// CaseInsensitive ignores case but not diacritics
	CaseInsensitive
	// DiacriticsInsensitive ignores diacritics but not case
	DiacriticsInsensitive
)

// AllSensitivities lists every variant in suffix order
var AllSensitivities = []MatchSensitivity{Sensitive, Insensitive, CaseInsensitive, DiacriticsInsensitive}

var sensitivityNames = map[MatchSensitivity]string{
	Sensitive:             "sensitive",
	Insensitive:           "insensitive",
	CaseInsensitive:       "case_insensitive",
	DiacriticsInsensitive: "diacritics_insensitive",
}

// SensitivityFor returns the variant with the given flags
func SensitivityFor(caseSensitive, diacriticsSensitive bool) MatchSensitivity {
	switch {
	case caseSensitive && diacriticsSensitive:
		return Sensitive
	case caseSensitive:
		return DiacriticsInsensitive
	case diacriticsSensitive:
		return CaseInsensitive
	default:
		return Insensitive
	}
}

// ParseMatchSensitivity accepts a variant name ("insensitive") or its field suffix ("i", "" for sensitive).
func ParseMatchSensitivity(s string) (MatchSensitivity, error) {
	for _, m := range AllSensitivities {
		if s == sensitivityNames[m] || s == m.FieldSuffix() || (m == Sensitive && s == "s") {
			return m, nil
		}
	}
	return Sensitive, fmt.Errorf("unknown match sensitivity '%s'", s)
}

func (m MatchSensitivity) CaseSensitive() bool {
	return m == Sensitive || m == DiacriticsInsensitive
}

func (m MatchSensitivity) DiacriticsSensitive() bool {
	return m == Sensitive || m == CaseInsensitive
}

// FieldSuffix is appended to the annotation prefix to name the physical field. Sensitive has none.
func (m MatchSensitivity) FieldSuffix() string {
	switch m {
	case Insensitive:
		return "i"
	case CaseInsensitive:
		return "ci"
	case DiacriticsInsensitive:
		return "di"
	default:
		return ""
	}
}

func (m MatchSensitivity) String() string {
	if name, ok := sensitivityNames[m]; ok {
		return name
	}
	return fmt.Sprintf("MatchSensitivity(%d)", int(m))
}

// Variants returns the physical variants indexed for an annotation with the given setting.
// A default setting is resolved from the annotation name first.
func Variants(setting config.SensitivitySetting, annotationName string) []MatchSensitivity {
	switch setting.Resolve(annotationName) {
	case config.SensitivityOnlySensitive:
		return []MatchSensitivity{Sensitive}
	case config.SensitivitySensitiveAndInsensitive:
		return []MatchSensitivity{Sensitive, Insensitive}
	case config.SensitivityCaseAndDiacriticsSeparate:
		return []MatchSensitivity{Sensitive, Insensitive, CaseInsensitive, DiacriticsInsensitive}
	default:
		return []MatchSensitivity{Insensitive}
	}
}

// Separators of the physical field naming scheme. Names are validated not to contain them.
const (
	annotationSeparator    = "%"
	subAnnotationSeparator = "#"
	sensitivitySeparator   = "@"
)

// FieldPrefix names an annotation within its annotated field: "contents%lemma".
func FieldPrefix(field, annotation string) string {
	return field + annotationSeparator + annotation
}

// SubAnnotationPrefix names a sub-annotation: "contents%pos#head".
func SubAnnotationPrefix(field, parent, sub string) string {
	return FieldPrefix(field, parent+subAnnotationSeparator+sub)
}

func combine(prefix, suffix string) string {
	if suffix == "" {
		return prefix
	}
	return prefix + sensitivitySeparator + suffix
}

// SanitizeName replaces the naming separators in names that come from documents, such as
// forEach instance names, so they cannot collide with other physical fields.
func SanitizeName(name string) string {
	return strings.NewReplacer(annotationSeparator, "_", subAnnotationSeparator, "_", sensitivitySeparator, "_").Replace(name)
}

// AnnotationSensitivity is one (field, annotation, sensitivity) triple.
type AnnotationSensitivity struct {
	Field         string
	Annotation    string // Top-level annotation
	SubAnnotation string // Empty for top-level annotations
	Sensitivity   MatchSensitivity
}

// AnnotationKey is how queries address an annotation: "pos" or "pos#head".
func AnnotationKey(annotation, sub string) string {
	if sub == "" {
		return annotation
	}
	return annotation + subAnnotationSeparator + sub
}

// SplitAnnotationKey inverts AnnotationKey
func SplitAnnotationKey(key string) (annotation, sub string) {
	annotation, sub, _ = strings.Cut(key, subAnnotationSeparator)
	return annotation, sub
}

// Key returns the annotation key of the triple
func (a AnnotationSensitivity) Key() string {
	return AnnotationKey(a.Annotation, a.SubAnnotation)
}

// Prefix returns the physical name shared by all sensitivity variants
func (a AnnotationSensitivity) Prefix() string {
	if a.SubAnnotation != "" {
		return SubAnnotationPrefix(a.Field, a.Annotation, a.SubAnnotation)
	}
	return FieldPrefix(a.Field, a.Annotation)
}

// PhysicalField returns the name of the index field holding this variant.
func (a AnnotationSensitivity) PhysicalField() string {
	return combine(a.Prefix(), a.Sensitivity.FieldSuffix())
}

// ParseFieldName splits a physical field name back into its parts.
func ParseFieldName(physical string) (AnnotationSensitivity, error) {
	var out AnnotationSensitivity

	field, rest, ok := strings.Cut(physical, annotationSeparator)
	if !ok || field == "" || rest == "" {
		return out, fmt.Errorf("'%s' is not an annotation field name", physical)
	}
	out.Field = field

	name, suffix, hasSuffix := strings.Cut(rest, sensitivitySeparator)
	if hasSuffix {
		m, err := ParseMatchSensitivity(suffix)
		if err != nil || suffix == "" || suffix == "s" {
			return out, fmt.Errorf("'%s' has an invalid sensitivity suffix '%s'", physical, suffix)
		}
		out.Sensitivity = m
	}
	out.Annotation, out.SubAnnotation = SplitAnnotationKey(name)
	if out.Annotation == "" {
		return out, fmt.Errorf("'%s' has an empty annotation name", physical)
	}
	return out, nil
}

// fieldSensitivity reads the sensitivity from a field name. Names outside the annotation
// scheme are treated as sensitive.
func fieldSensitivity(fieldName string) MatchSensitivity {
	a, err := ParseFieldName(fieldName)
	if err != nil {
		return Sensitive
	}
	return a.Sensitivity
}

// IsCaseSensitive reports whether values in the named physical field keep their case.
func IsCaseSensitive(fieldName string) bool {
	return fieldSensitivity(fieldName).CaseSensitive()
}

// IsDiacriticsSensitive reports whether values in the named physical field keep their diacritics.
func IsDiacriticsSensitive(fieldName string) bool {
	return fieldSensitivity(fieldName).DiacriticsSensitive()
}
