package search

import (
	"github.com/gcbaptista/go-corpus-engine/index"
)

// Result is the materialized outcome of a search recipe.
// The set of implementations is closed: *HitsResult, *GroupsResult, *CountResult and
// *ConcordancesResult. Results may be shared between callers and must not be modified.
type Result interface {
	// QueryInfo returns the context of the recipe that produced the result
	QueryInfo() *QueryInfo
	// QueryID identifies this execution
	QueryID() string
}

type provenance struct {
	info *QueryInfo
	id   string
}

func (p provenance) QueryInfo() *QueryInfo { return p.info }
func (p provenance) QueryID() string       { return p.id }

// HitsResult is an ordered list of hits
type HitsResult struct {
	provenance
	Hits             []index.Hit  `json:"hits"`
	HitsCounted      int          `json:"hits_counted"`
	DocsCounted      int          `json:"docs_counted"`
	MaxHitsRetrieved bool         `json:"max_hits_retrieved"` // Retrieval stopped at the cap
	MaxHitsCounted   bool         `json:"max_hits_counted"`   // Counting stopped at the cap
	Window           *WindowStats `json:"window,omitempty"`
}

// WindowStats describes the part of a hit list a window kept
type WindowStats struct {
	First     int  `json:"first"`
	Requested int  `json:"requested"`
	HasNext   bool `json:"has_next"`
}

// HitGroup is the set of hits sharing one property value
type HitGroup struct {
	Identity string      `json:"identity"`
	Size     int         `json:"size"`
	Hits     []index.Hit `json:"hits"`
}

// GroupsResult lists groups by descending size
type GroupsResult struct {
	provenance
	Property string     `json:"property"`
	Groups   []HitGroup `json:"groups"`
}

// CountResult holds hit and document totals
type CountResult struct {
	provenance
	Hits           int  `json:"hits"`
	Docs           int  `json:"docs"`
	MaxHitsCounted bool `json:"max_hits_counted"`
}

// Concordance is one hit with its surrounding context
type Concordance struct {
	PID   string `json:"pid"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Left  string `json:"left"`
	Match string `json:"match"`
	Right string `json:"right"`
}

// ConcordancesResult holds one concordance per hit, in hit order
type ConcordancesResult struct {
	provenance
	Type         ConcordanceType `json:"type"`
	Concordances []Concordance   `json:"concordances"`
}

func countDocs(hits []index.Hit) int {
	docs := make(map[uint32]struct{})
	for _, h := range hits {
		docs[h.DocID] = struct{}{}
	}
	return len(docs)
}
