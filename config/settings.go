package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Concordance generation strategies
const (
	ConcordanceForwardIndex = "forward_index" // Rebuild context from the per-annotation forward indices
	ConcordanceContentStore = "content_store" // Cut the original markup from the content store
)

// Unlimited disables a hit retrieval or counting cap
const Unlimited = -1

// HitDefaults are the per-index defaults new HitsSettings start from.
type HitDefaults struct {
	MaxHitsToRetrieve int    `json:"max_hits_to_retrieve" yaml:"max_hits_to_retrieve"` // Stop retrieving hits after this many (-1 = no limit)
	MaxHitsToCount    int    `json:"max_hits_to_count" yaml:"max_hits_to_count"`       // Stop counting hits after this many (-1 = no limit)
	ContextSize       int    `json:"context_size" yaml:"context_size"`                 // Tokens of context on each side of a hit
	ConcordanceType   string `json:"concordance_type" yaml:"concordance_type"`         // forward_index or content_store
	ConcWordProp      string `json:"conc_word_prop" yaml:"conc_word_prop"`             // Annotation used as the text of each word
	ConcPunctProp     string `json:"conc_punct_prop" yaml:"conc_punct_prop"`           // Annotation used between words (empty = a space)
}

// EngineSettings contains the configuration of the corpus engine process.
type EngineSettings struct {
	DataDir             string       `json:"data_dir" yaml:"data_dir"`                           // Where indexes and formats are persisted
	InMemory            bool         `json:"in_memory" yaml:"in_memory"`                         // Keep stores in memory only (tests, one-shot runs)
	FormatDirs          []string     `json:"format_dirs" yaml:"format_dirs"`                     // Directories scanned for *.blf.yaml / *.blf.json at startup
	ExtractionWorkers   int          `json:"extraction_workers" yaml:"extraction_workers"`       // Documents extracted concurrently
	JobWorkers          int          `json:"job_workers" yaml:"job_workers"`                     // Concurrent background jobs (async indexing and searches)
	SearchCacheSize     int          `json:"search_cache_size" yaml:"search_cache_size"`         // Cached search results per index
	SkipFailedDocuments bool         `json:"skip_failed_documents" yaml:"skip_failed_documents"` // Log and skip documents that fail extraction instead of aborting the batch
	Tagger              *ProcessStep `json:"tagger,omitempty" yaml:"tagger,omitempty"`           // Optional "tag" step run over every input before extraction
	Hits                HitDefaults  `json:"hits" yaml:"hits"`
}

// DefaultEngineSettings returns settings with all defaults applied
func DefaultEngineSettings() EngineSettings {
	var s EngineSettings
	s.ApplyDefaults()
	return s
}

// LoadEngineSettings reads YAML settings from path and applies defaults for anything left unset.
func LoadEngineSettings(path string) (EngineSettings, error) {
	var s EngineSettings
	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the operator
	if err != nil {
		return s, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	s.ApplyDefaults()
	return s, nil
}

// ApplyDefaults applies default values to the engine settings
func (s *EngineSettings) ApplyDefaults() {
	if s.DataDir == "" {
		s.DataDir = "./corpus_data"
	}
	if s.ExtractionWorkers <= 0 {
		s.ExtractionWorkers = 4
	}
	if s.JobWorkers <= 0 {
		s.JobWorkers = 4
	}
	if s.SearchCacheSize <= 0 {
		s.SearchCacheSize = 256
	}
	if s.FormatDirs == nil {
		s.FormatDirs = []string{}
	}
	if s.Hits.MaxHitsToRetrieve == 0 {
		s.Hits.MaxHitsToRetrieve = 1000000
	}
	if s.Hits.MaxHitsToCount == 0 {
		s.Hits.MaxHitsToCount = 10000000
	}
	if s.Hits.ContextSize == 0 {
		s.Hits.ContextSize = 5
	}
	if s.Hits.ConcordanceType == "" {
		s.Hits.ConcordanceType = ConcordanceForwardIndex
	}
	if s.Hits.ConcWordProp == "" {
		s.Hits.ConcWordProp = "word"
	}
	if s.Hits.ConcPunctProp == "" {
		s.Hits.ConcPunctProp = "punct"
	}
}

// Validate returns a list of problems with the settings; an empty list means they are usable.
func (s *EngineSettings) Validate() []string {
	var errors []string

	if strings.TrimSpace(s.DataDir) == "" && !s.InMemory {
		errors = append(errors, "data_dir cannot be empty unless in_memory is set")
	}
	if s.Hits.ConcordanceType != ConcordanceForwardIndex && s.Hits.ConcordanceType != ConcordanceContentStore {
		errors = append(errors, "Invalid concordance_type '"+s.Hits.ConcordanceType+"' (must be 'forward_index' or 'content_store')")
	}
	if s.Hits.MaxHitsToRetrieve < Unlimited {
		errors = append(errors, "max_hits_to_retrieve must be -1 (unlimited) or positive")
	}
	if s.Hits.MaxHitsToCount < Unlimited {
		errors = append(errors, "max_hits_to_count must be -1 (unlimited) or positive")
	}
	if s.Hits.ContextSize < 0 {
		errors = append(errors, "context_size cannot be negative")
	}

	if s.Tagger != nil && s.Tagger.Method != "tag" {
		errors = append(errors, "tagger must be a 'tag' process step, got '"+s.Tagger.Method+"'")
	}

	seen := make(map[string]bool)
	for _, dir := range s.FormatDirs {
		if seen[dir] {
			errors = append(errors, "Duplicate directory '"+dir+"' found in format_dirs")
		}
		seen[dir] = true
	}
	return errors
}
