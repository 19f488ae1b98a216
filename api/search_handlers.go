package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/internal/search"
	"github.com/gcbaptista/go-corpus-engine/services"
)

// SearchRequest defines the JSON form of a search.
// The pattern is either a structured pattern tree or a simple query string.
type SearchRequest struct {
	Pattern         json.RawMessage `json:"pattern,omitempty"`
	Query           string          `json:"query,omitempty"`
	Field           string          `json:"field,omitempty"`       // The main annotated field when empty
	Sensitivity     string          `json:"sensitivity,omitempty"` // Defaults to insensitive
	Sort            string          `json:"sort,omitempty"`        // A hit property, e.g. "hit:word" or "doc:year"
	Reverse         bool            `json:"reverse,omitempty"`
	Group           string          `json:"group,omitempty"`
	MaxHitsPerGroup int             `json:"max_hits_per_group,omitempty"`
	First           int             `json:"first,omitempty"`
	Number          int             `json:"number,omitempty"`
	Count           bool            `json:"count,omitempty"`
	Concordances    bool            `json:"concordances,omitempty"`
	Settings        *SearchSettings `json:"settings,omitempty"`
	Async           bool            `json:"async,omitempty"` // Run as a background job and return its ID
}

// SearchSettings overrides the hit defaults of the index for one search
type SearchSettings struct {
	MaxHitsToRetrieve *int     `json:"max_hits_to_retrieve,omitempty"`
	MaxHitsToCount    *int     `json:"max_hits_to_count,omitempty"`
	ContextSize       *int     `json:"context_size,omitempty"`
	ConcordanceType   string   `json:"concordance_type,omitempty"`
	ConcordanceField  string   `json:"concordance_field,omitempty"`
	WordProperty      *string  `json:"word_property,omitempty"`
	PunctProperty     *string  `json:"punct_property,omitempty"`
	AttrProperties    []string `json:"attr_properties,omitempty"`
}

// HitJSON is a hit with its document identified by PID
type HitJSON struct {
	PID   string `json:"pid"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// GroupJSON is a hit group with PID-identified hits
type GroupJSON struct {
	Identity string    `json:"identity"`
	Size     int       `json:"size"`
	Hits     []HitJSON `json:"hits"`
}

// SearchHandler handles search requests to an index.
func (api *API) SearchHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	idx, err := api.engine.Index(indexName)
	if err != nil {
		SendEngineError(c, "search", err)
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	if result := ValidateSearchRequest(&req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	sreq, err := req.toSearch(idx)
	if err != nil {
		SendEngineError(c, "search", err)
		return
	}

	if req.Async {
		future, err := api.engine.SearchAsync(indexName, sreq)
		if err != nil {
			SendJobExecutionError(c, "search", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Search started for index '" + indexName + "'",
			"job_id":  future.JobID(),
		})
		return
	}

	result, err := api.engine.Search(c.Request.Context(), indexName, sreq)
	if err != nil {
		SendEngineError(c, "search", err)
		return
	}
	c.JSON(http.StatusOK, renderResult(idx, result))
}

// toSearch resolves the request against an index
func (r *SearchRequest) toSearch(idx services.IndexReader) (search.Request, error) {
	var sreq search.Request
	var err error

	if len(r.Pattern) > 0 {
		if sreq.Pattern, err = search.ParsePattern(r.Pattern); err != nil {
			return sreq, err
		}
	} else {
		sreq.Pattern = search.SimplePattern(r.Query)
	}

	sreq.Sensitivity = index.Insensitive
	if r.Sensitivity != "" {
		if sreq.Sensitivity, err = index.ParseMatchSensitivity(r.Sensitivity); err != nil {
			return sreq, errors.NewInvalidQueryError(r.Sensitivity, err.Error())
		}
	}

	if r.Sort != "" {
		if sreq.Sort, err = search.ParseHitProperty(r.Sort); err != nil {
			return sreq, errors.NewInvalidQueryError(r.Sort, err.Error())
		}
	}
	if r.Group != "" {
		if sreq.Group, err = search.ParseHitProperty(r.Group); err != nil {
			return sreq, errors.NewInvalidQueryError(r.Group, err.Error())
		}
	}

	sreq.Field = r.Field
	sreq.Reverse = r.Reverse
	sreq.MaxHitsPerGroup = r.MaxHitsPerGroup
	sreq.First = r.First
	sreq.Number = r.Number
	sreq.Count = r.Count
	sreq.Concordances = r.Concordances

	if r.Settings != nil {
		sreq.Settings = r.Settings.apply(search.NewHitsSettings(idx))
		if err := sreq.Settings.Validate(); err != nil {
			return sreq, errors.NewValidationError("settings", err.Error())
		}
	}
	return sreq, nil
}

func (s *SearchSettings) apply(settings *search.HitsSettings) *search.HitsSettings {
	if s.MaxHitsToRetrieve != nil {
		settings.MaxHitsToRetrieve = *s.MaxHitsToRetrieve
	}
	if s.MaxHitsToCount != nil {
		settings.MaxHitsToCount = *s.MaxHitsToCount
	}
	if s.ContextSize != nil {
		settings.ContextSize = *s.ContextSize
	}
	if s.ConcordanceType != "" {
		settings.ConcordanceType = search.ConcordanceType(s.ConcordanceType)
	}
	if s.ConcordanceField != "" {
		settings.SetConcordanceField(s.ConcordanceField)
	}
	if s.WordProperty != nil || s.PunctProperty != nil || s.AttrProperties != nil {
		word, punct := settings.ConcWordProp, settings.ConcPunctProp
		if s.WordProperty != nil {
			word = *s.WordProperty
		}
		if s.PunctProperty != nil {
			punct = *s.PunctProperty
		}
		settings.SetConcordanceProperties(word, punct, s.AttrProperties)
	}
	return settings
}

// renderResult converts a search result to its JSON response, identifying documents by PID
func renderResult(idx services.IndexReader, r search.Result) gin.H {
	resp := gin.H{
		"query_id":   r.QueryID(),
		"query_info": r.QueryInfo(),
	}
	switch res := r.(type) {
	case *search.HitsResult:
		resp["type"] = "hits"
		resp["hits"] = hitsJSON(idx, res.Hits)
		resp["summary"] = gin.H{
			"hits_counted":       res.HitsCounted,
			"docs_counted":       res.DocsCounted,
			"max_hits_retrieved": res.MaxHitsRetrieved,
			"max_hits_counted":   res.MaxHitsCounted,
		}
		if res.Window != nil {
			resp["window"] = res.Window
		}
	case *search.GroupsResult:
		groups := make([]GroupJSON, len(res.Groups))
		for i, g := range res.Groups {
			groups[i] = GroupJSON{Identity: g.Identity, Size: g.Size, Hits: hitsJSON(idx, g.Hits)}
		}
		resp["type"] = "groups"
		resp["property"] = res.Property
		resp["groups"] = groups
	case *search.CountResult:
		resp["type"] = "count"
		resp["count"] = res
	case *search.ConcordancesResult:
		resp["type"] = "concordances"
		resp["concordance_type"] = res.Type
		resp["concordances"] = res.Concordances
	default:
		resp["type"] = fmt.Sprintf("%T", r)
	}
	return resp
}

func hitsJSON(idx services.IndexReader, hits []index.Hit) []HitJSON {
	out := make([]HitJSON, len(hits))
	for i, h := range hits {
		out[i] = HitJSON{Start: h.Start, End: h.End}
		if info, ok := idx.Document(h.DocID); ok {
			out[i].PID = info.PID
		}
	}
	return out
}
