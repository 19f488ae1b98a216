package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
)

// Search is an immutable recipe for one step of a query pipeline. Recipes describing the same
// computation have the same Key, compare Equal and share cached results.
// The set of implementations is closed: *FindHits, *SortHits, *WindowHits, *GroupHits,
// *CountHits and *MakeConcordances.
type Search interface {
	// Execute runs the recipe, or returns the cached result of an equal recipe
	Execute(ctx context.Context) (Result, error)
	// ExecuteAsync runs the recipe in a background job. It returns nil when the searcher
	// was built without a job submitter.
	ExecuteAsync() *Future
	// QueryInfo is the same for every step of one recipe
	QueryInfo() *QueryInfo
	Key() string
	Equal(other Search) bool
	Hash() uint64

	run(ctx context.Context) (Result, error)
}

// HitsSearch is a recipe producing a *HitsResult, which further steps can be chained to.
type HitsSearch interface {
	Search
	Sort(p HitProperty, reverse bool) *SortHits
	Window(first, number int) *WindowHits
	Group(p HitProperty, maxHitsPerGroup int) *GroupHits
	Count() *CountHits
	Concordances(settings *HitsSettings) *MakeConcordances
}

// node holds what every recipe step shares. self is the step embedding it.
type node struct {
	searcher *Searcher
	info     *QueryInfo
	self     Search
}

func (n *node) Execute(ctx context.Context) (Result, error) {
	return n.searcher.cache.Get(ctx, n.self.Key(), n.self.run)
}

func (n *node) ExecuteAsync() *Future {
	return executeAsync(n.self, n.searcher)
}

func (n *node) QueryInfo() *QueryInfo {
	return n.info
}

func (n *node) Equal(other Search) bool {
	return other != nil && n.self.Key() == other.Key()
}

func (n *node) Hash() uint64 {
	return xxhash.Sum64String(n.self.Key())
}

func (n *node) provenance() provenance {
	return provenance{info: n.info, id: uuid.New().String()}
}

// hitsNode adds the chaining methods of steps that produce hits
type hitsNode struct {
	node
}

func (h *hitsNode) source() HitsSearch {
	return h.self.(HitsSearch)
}

// Sort orders hits by a property; equal values keep their order
func (h *hitsNode) Sort(p HitProperty, reverse bool) *SortHits {
	s := &SortHits{src: h.source(), property: p, reverse: reverse}
	s.node = node{searcher: h.searcher, info: h.info, self: s}
	return s
}

// Window keeps number hits starting at first
func (h *hitsNode) Window(first, number int) *WindowHits {
	w := &WindowHits{src: h.source(), first: first, number: number}
	w.node = node{searcher: h.searcher, info: h.info, self: w}
	return w
}

// Group groups hits by a property, storing at most maxHitsPerGroup hits per group (Unlimited for all)
func (h *hitsNode) Group(p HitProperty, maxHitsPerGroup int) *GroupHits {
	g := &GroupHits{src: h.source(), property: p, maxHitsPerGroup: maxHitsPerGroup}
	g.node = node{searcher: h.searcher, info: h.info, self: g}
	return g
}

// Count reports hit and document totals
func (h *hitsNode) Count() *CountHits {
	c := &CountHits{src: h.source()}
	c.node = node{searcher: h.searcher, info: h.info, self: c}
	return c
}

// Concordances builds the context of every hit. Nil settings use the index defaults. The
// settings are copied, so changing them afterwards does not change the recipe.
func (h *hitsNode) Concordances(settings *HitsSettings) *MakeConcordances {
	if settings == nil {
		settings = NewHitsSettings(h.info.Index())
	}
	c := &MakeConcordances{src: h.source(), settings: CopyHitsSettings(settings)}
	c.node = node{searcher: h.searcher, info: h.info, self: c}
	return c
}

func sourceHits(ctx context.Context, src Search) (*HitsResult, error) {
	r, err := src.Execute(ctx)
	if err != nil {
		return nil, err
	}
	hits, ok := r.(*HitsResult)
	if !ok {
		return nil, fmt.Errorf("recipe %s does not produce hits", src.Key())
	}
	return hits, nil
}

// FindHits finds the hits of a pattern
type FindHits struct {
	hitsNode
	pattern     TextPattern
	sensitivity index.MatchSensitivity
	maxRetrieve int
	maxCount    int
}

func (f *FindHits) Key() string {
	return fmt.Sprintf("find(index=%s;field=%s;pattern=%s;sensitivity=%s;retrieve=%d;count=%d)",
		f.info.Index().Name(), f.info.Field(), patternString(f.pattern), f.sensitivity, f.maxRetrieve, f.maxCount)
}

func (f *FindHits) run(ctx context.Context) (Result, error) {
	idx := f.info.Index()
	q, err := Translate(f.pattern, NewExecutionContext(idx.Metadata(), f.info.Field(), f.sensitivity))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := idx.Search(q)

	res := &HitsResult{provenance: f.provenance()}
	counted := hits
	if f.maxCount != Unlimited && len(counted) > f.maxCount {
		counted = counted[:f.maxCount]
		res.MaxHitsCounted = true
	}
	retrieved := counted
	if f.maxRetrieve != Unlimited && len(retrieved) > f.maxRetrieve {
		retrieved = retrieved[:f.maxRetrieve]
		res.MaxHitsRetrieved = true
	}
	res.Hits = retrieved
	res.HitsCounted = len(counted)
	res.DocsCounted = countDocs(counted)
	f.searcher.logger.Debug("Executed pattern", "index", idx.Name(), "query", q.String(), "hits", len(hits))
	return res, nil
}

// SortHits orders the hits of its source
type SortHits struct {
	hitsNode
	src      HitsSearch
	property HitProperty
	reverse  bool
}

func (s *SortHits) Key() string {
	return fmt.Sprintf("sort(%s;by=%s;reverse=%t)", s.src.Key(), s.property.Name(), s.reverse)
}

func (s *SortHits) run(ctx context.Context) (Result, error) {
	src, err := sourceHits(ctx, s.src)
	if err != nil {
		return nil, err
	}
	values, err := propertyValues(ctx, s.info, s.property, src.Hits)
	if err != nil {
		return nil, err
	}
	order := make([]int, len(src.Hits))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if s.reverse {
			return values[order[a]] > values[order[b]]
		}
		return values[order[a]] < values[order[b]]
	})
	hits := make([]index.Hit, len(order))
	for i, o := range order {
		hits[i] = src.Hits[o]
	}
	return &HitsResult{
		provenance:       s.provenance(),
		Hits:             hits,
		HitsCounted:      src.HitsCounted,
		DocsCounted:      src.DocsCounted,
		MaxHitsRetrieved: src.MaxHitsRetrieved,
		MaxHitsCounted:   src.MaxHitsCounted,
	}, nil
}

// WindowHits keeps a page of the hits of its source
type WindowHits struct {
	hitsNode
	src    HitsSearch
	first  int
	number int
}

func (w *WindowHits) Key() string {
	return fmt.Sprintf("window(%s;first=%d;number=%d)", w.src.Key(), w.first, w.number)
}

func (w *WindowHits) run(ctx context.Context) (Result, error) {
	if w.first < 0 || w.number < 0 {
		return nil, errors.NewInvalidQueryError(w.Key(), "window start and size cannot be negative")
	}
	src, err := sourceHits(ctx, w.src)
	if err != nil {
		return nil, err
	}
	start := min(w.first, len(src.Hits))
	end := len(src.Hits)
	if w.number < end-start {
		end = start + w.number
	}
	return &HitsResult{
		provenance:       w.provenance(),
		Hits:             src.Hits[start:end:end],
		HitsCounted:      src.HitsCounted,
		DocsCounted:      src.DocsCounted,
		MaxHitsRetrieved: src.MaxHitsRetrieved,
		MaxHitsCounted:   src.MaxHitsCounted,
		Window:           &WindowStats{First: w.first, Requested: w.number, HasNext: end < len(src.Hits)},
	}, nil
}

// GroupHits groups the hits of its source by a property
type GroupHits struct {
	node
	src             HitsSearch
	property        HitProperty
	maxHitsPerGroup int
}

func (g *GroupHits) Key() string {
	return fmt.Sprintf("group(%s;by=%s;max=%d)", g.src.Key(), g.property.Name(), g.maxHitsPerGroup)
}

func (g *GroupHits) run(ctx context.Context) (Result, error) {
	src, err := sourceHits(ctx, g.src)
	if err != nil {
		return nil, err
	}
	values, err := propertyValues(ctx, g.info, g.property, src.Hits)
	if err != nil {
		return nil, err
	}
	var groups []HitGroup
	byIdentity := make(map[string]int)
	for i, hit := range src.Hits {
		gi, ok := byIdentity[values[i]]
		if !ok {
			gi = len(groups)
			byIdentity[values[i]] = gi
			groups = append(groups, HitGroup{Identity: values[i], Hits: []index.Hit{}})
		}
		groups[gi].Size++
		if g.maxHitsPerGroup == Unlimited || len(groups[gi].Hits) < g.maxHitsPerGroup {
			groups[gi].Hits = append(groups[gi].Hits, hit)
		}
	}
	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].Size != groups[b].Size {
			return groups[a].Size > groups[b].Size
		}
		return groups[a].Identity < groups[b].Identity
	})
	return &GroupsResult{provenance: g.provenance(), Property: g.property.Name(), Groups: groups}, nil
}

// CountHits counts the hits and documents of its source
type CountHits struct {
	node
	src HitsSearch
}

func (c *CountHits) Key() string {
	return fmt.Sprintf("count(%s)", c.src.Key())
}

func (c *CountHits) run(ctx context.Context) (Result, error) {
	src, err := sourceHits(ctx, c.src)
	if err != nil {
		return nil, err
	}
	return &CountResult{
		provenance:     c.provenance(),
		Hits:           src.HitsCounted,
		Docs:           src.DocsCounted,
		MaxHitsCounted: src.MaxHitsCounted,
	}, nil
}

// MakeConcordances builds the context of the hits of its source
type MakeConcordances struct {
	node
	src      HitsSearch
	settings *HitsSettings
}

func (m *MakeConcordances) Key() string {
	return fmt.Sprintf("concordances(%s;%s)", m.src.Key(), m.settings.concordanceKey())
}

// Settings returns a copy of the settings the concordances are built with
func (m *MakeConcordances) Settings() *HitsSettings {
	return CopyHitsSettings(m.settings)
}

func (m *MakeConcordances) run(ctx context.Context) (Result, error) {
	if err := m.settings.Validate(); err != nil {
		return nil, errors.NewInvalidQueryError(m.Key(), err.Error())
	}
	src, err := sourceHits(ctx, m.src)
	if err != nil {
		return nil, err
	}
	field := m.settings.ConcordanceField()
	if field == "" {
		field = m.info.Field()
	}
	concs, err := buildConcordances(ctx, m.info.Index(), field, m.settings, src.Hits)
	if err != nil {
		return nil, err
	}
	return &ConcordancesResult{provenance: m.provenance(), Type: m.settings.ConcordanceType, Concordances: concs}, nil
}

func propertyValues(ctx context.Context, info *QueryInfo, p HitProperty, hits []index.Hit) ([]string, error) {
	values := make([]string, len(hits))
	for i, hit := range hits {
		v, err := p.value(ctx, info.Index(), info.Field(), hit)
		if err != nil {
			return nil, fmt.Errorf("failed to read property %s: %w", p.Name(), err)
		}
		values[i] = v
	}
	return values, nil
}
