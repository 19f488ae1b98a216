package search

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/services"
)

// ConcordanceType selects where hit context is rebuilt from
type ConcordanceType string

const (
	// ForwardIndex rebuilds context from the stored word, punctuation and attribute annotations
	ForwardIndex ConcordanceType = config.ConcordanceForwardIndex
	// ContentStore joins the original markup of the context tokens
	ContentStore ConcordanceType = config.ConcordanceContentStore
)

// Unlimited disables a retrieval or count cap
const Unlimited = config.Unlimited

// HitsSettings controls how many hits are retrieved and counted and how concordances are built.
// Settings built by NewHitsSettings are bound to an index and default their concordance field to
// its main annotated field the first time it is read. Settings from UnboundHitsSettings only hold
// overrides.
type HitsSettings struct {
	MaxHitsToRetrieve int
	MaxHitsToCount    int
	ConcordanceType   ConcordanceType
	ConcWordProp      string
	ConcPunctProp     string
	ConcAttrProps     []string // nil means all remaining forward indices
	ContextSize       int

	index            services.IndexReader
	concordanceField atomic.Pointer[string]
}

// NewHitsSettings creates settings bound to idx, starting from its defaults
func NewHitsSettings(idx services.IndexReader) *HitsSettings {
	s := UnboundHitsSettings(idx.Defaults())
	s.index = idx
	return s
}

// UnboundHitsSettings creates settings that belong to no index
func UnboundHitsSettings(defaults config.HitDefaults) *HitsSettings {
	return &HitsSettings{
		MaxHitsToRetrieve: defaults.MaxHitsToRetrieve,
		MaxHitsToCount:    defaults.MaxHitsToCount,
		ConcordanceType:   ConcordanceType(defaults.ConcordanceType),
		ConcWordProp:      defaults.ConcWordProp,
		ConcPunctProp:     defaults.ConcPunctProp,
		ContextSize:       defaults.ContextSize,
	}
}

// CopyHitsSettings returns a snapshot of defaults. Later changes to either side are not shared.
func CopyHitsSettings(defaults *HitsSettings) *HitsSettings {
	s := &HitsSettings{
		MaxHitsToRetrieve: defaults.MaxHitsToRetrieve,
		MaxHitsToCount:    defaults.MaxHitsToCount,
		ConcordanceType:   defaults.ConcordanceType,
		ConcWordProp:      defaults.ConcWordProp,
		ConcPunctProp:     defaults.ConcPunctProp,
		ContextSize:       defaults.ContextSize,
		index:             defaults.index,
	}
	if defaults.ConcAttrProps != nil {
		s.ConcAttrProps = append([]string{}, defaults.ConcAttrProps...)
	}
	if field := defaults.ConcordanceField(); field != "" {
		s.concordanceField.Store(&field)
	}
	return s
}

// Bound reports whether the settings belong to an index
func (s *HitsSettings) Bound() bool {
	return s.index != nil
}

// ConcordanceField returns the field concordances are built from. When unset it is resolved
// once from the bound index's main annotated field and kept from then on.
func (s *HitsSettings) ConcordanceField() string {
	if f := s.concordanceField.Load(); f != nil {
		return *f
	}
	if s.index == nil {
		return ""
	}
	main := s.index.Metadata().MainField
	if s.concordanceField.CompareAndSwap(nil, &main) {
		return main
	}
	return *s.concordanceField.Load()
}

// SetConcordanceField overrides the concordance field
func (s *HitsSettings) SetConcordanceField(field string) {
	s.concordanceField.Store(&field)
}

// SetConcordanceProperties sets the annotations used for words, punctuation and attributes
func (s *HitsSettings) SetConcordanceProperties(word, punct string, attrs []string) {
	s.ConcWordProp = word
	s.ConcPunctProp = punct
	if attrs == nil {
		s.ConcAttrProps = nil
	} else {
		s.ConcAttrProps = append([]string{}, attrs...)
	}
}

// Validate checks the values a search can not run with
func (s *HitsSettings) Validate() error {
	if s.ConcordanceType != ForwardIndex && s.ConcordanceType != ContentStore {
		return fmt.Errorf("unknown concordance type '%s'", s.ConcordanceType)
	}
	if s.MaxHitsToRetrieve < Unlimited || s.MaxHitsToCount < Unlimited {
		return fmt.Errorf("hit caps must be %d (unlimited) or positive", Unlimited)
	}
	if s.ContextSize < 0 {
		return fmt.Errorf("context size cannot be negative")
	}
	return nil
}

// concordanceKey describes the settings that change concordance output
func (s *HitsSettings) concordanceKey() string {
	attrs := "*"
	if s.ConcAttrProps != nil {
		attrs = strings.Join(s.ConcAttrProps, ",")
	}
	return fmt.Sprintf("type=%s;field=%s;word=%s;punct=%s;attrs=%s;context=%d",
		s.ConcordanceType, s.ConcordanceField(), s.ConcWordProp, s.ConcPunctProp, attrs, s.ContextSize)
}
