package config

// SensitivitySetting declares which sensitivity variants of an annotation get indexed.
// The physical variants themselves are defined by index.MatchSensitivity.
type SensitivitySetting string

const (
	// SensitivityDefault defers the choice to a convention based on the annotation name
	SensitivityDefault SensitivitySetting = "default"
	// SensitivityOnlySensitive indexes only the case and diacritics sensitive variant
	SensitivityOnlySensitive SensitivitySetting = "sensitive"
	// SensitivityOnlyInsensitive indexes only the fully insensitive variant
	SensitivityOnlyInsensitive SensitivitySetting = "insensitive"
	// SensitivitySensitiveAndInsensitive indexes both the sensitive and insensitive variants
	SensitivitySensitiveAndInsensitive SensitivitySetting = "sensitive_insensitive"
	// SensitivityCaseAndDiacriticsSeparate additionally indexes the case-only and diacritics-only variants
	SensitivityCaseAndDiacriticsSeparate SensitivitySetting = "case_diacritics_separate"
)

// Valid reports whether the setting is one of the known values. The empty string means default.
func (s SensitivitySetting) Valid() bool {
	switch s {
	case "", SensitivityDefault, SensitivityOnlySensitive, SensitivityOnlyInsensitive,
		SensitivitySensitiveAndInsensitive, SensitivityCaseAndDiacriticsSeparate:
		return true
	}
	return false
}

// Resolve turns the default setting into a concrete one for the annotation with the given name.
// Main-text annotations get both variants, markup gets only the sensitive one and everything else
// is searched insensitively.
func (s SensitivitySetting) Resolve(annotationName string) SensitivitySetting {
	if s != "" && s != SensitivityDefault {
		return s
	}
	switch annotationName {
	case "word", "lemma":
		return SensitivitySensitiveAndInsensitive
	case "starttag":
		return SensitivityOnlySensitive
	default:
		return SensitivityOnlyInsensitive
	}
}
