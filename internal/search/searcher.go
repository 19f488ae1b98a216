package search

import (
	"fmt"
	"log/slog"

	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/services"
)

const defaultCacheSize = 256

// Searcher builds search recipes for one index and executes them through a shared cache.
type Searcher struct {
	index  services.IndexReader
	cache  *Cache
	jobs   JobSubmitter
	logger *slog.Logger
}

// Option configures a Searcher
type Option func(*Searcher)

// WithLogger sets the logger of the searcher
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithJobs enables ExecuteAsync by running recipes as background jobs
func WithJobs(jobs JobSubmitter) Option {
	return func(s *Searcher) {
		s.jobs = jobs
	}
}

// WithCache shares an existing result cache
func WithCache(cache *Cache) Option {
	return func(s *Searcher) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// NewSearcher creates a searcher for idx
func NewSearcher(idx services.IndexReader, opts ...Option) (*Searcher, error) {
	if idx == nil {
		return nil, fmt.Errorf("index cannot be nil")
	}
	s := &Searcher{index: idx, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		cache, err := NewCache(defaultCacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// Cache returns the result cache of the searcher
func (s *Searcher) Cache() *Cache {
	return s.cache
}

// Invalidate drops cached results. Call it after the index changed.
func (s *Searcher) Invalidate() {
	s.cache.Purge()
}

// Find starts a recipe finding the hits of pattern in field (the main annotated field when empty),
// with caps taken from settings (the index defaults when nil).
func (s *Searcher) Find(pattern TextPattern, field string, m index.MatchSensitivity, settings *HitsSettings) *FindHits {
	if settings == nil {
		settings = NewHitsSettings(s.index)
	}
	info := NewQueryInfo(s.index, field)
	_ = info.SetResultsObjectID(nextResultsObjectID()) // a fresh QueryInfo accepts its first id

	f := &FindHits{
		pattern:     pattern,
		sensitivity: m,
		maxRetrieve: settings.MaxHitsToRetrieve,
		maxCount:    settings.MaxHitsToCount,
	}
	f.node = node{searcher: s, info: info, self: f}
	return f
}

// Request describes a complete search: a pattern plus the optional steps applied to its hits.
type Request struct {
	Pattern     TextPattern
	Field       string
	Sensitivity index.MatchSensitivity
	Settings    *HitsSettings // nil for the index defaults

	Sort    HitProperty // optional
	Reverse bool

	Group           HitProperty // optional; grouping ends the recipe
	MaxHitsPerGroup int

	First  int
	Number int // 0 keeps all hits

	Count        bool // only count hits and documents
	Concordances bool // build concordances for the (windowed) hits
}

// Build assembles the recipe of a request. The order of steps is
// find, sort, then group, count or window followed by concordances.
func (s *Searcher) Build(req Request) Search {
	var hits HitsSearch = s.Find(req.Pattern, req.Field, req.Sensitivity, req.Settings)
	if req.Sort != nil {
		hits = hits.Sort(req.Sort, req.Reverse)
	}
	switch {
	case req.Group != nil:
		return hits.Group(req.Group, req.MaxHitsPerGroup)
	case req.Count:
		return hits.Count()
	}
	if req.First > 0 || req.Number > 0 {
		number := req.Number
		if number == 0 {
			number = int(^uint(0) >> 1)
		}
		hits = hits.Window(req.First, number)
	}
	if req.Concordances {
		return hits.Concordances(req.Settings)
	}
	return hits
}
