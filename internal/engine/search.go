package engine

import (
	"context"
	"time"

	"github.com/gcbaptista/go-corpus-engine/internal/search"
	"github.com/gcbaptista/go-corpus-engine/model"
)

// Search builds the recipe for req against an index and executes it. Identical requests
// share one cached execution until the index changes. Every executed search is recorded
// in the engine analytics.
func (e *Engine) Search(ctx context.Context, indexName string, req search.Request) (search.Result, error) {
	instance, err := e.instance(indexName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := instance.searcher.Build(req).Execute(ctx)
	e.trackSearch(indexName, req, result, err, time.Since(start))
	return result, err
}

// SearchAsync starts executing req in a background job. A cached result completes the
// job immediately.
func (e *Engine) SearchAsync(indexName string, req search.Request) (*search.Future, error) {
	instance, err := e.instance(indexName)
	if err != nil {
		return nil, err
	}
	return instance.searcher.Build(req).ExecuteAsync(), nil
}

// TokensPerMetadataValue sums the tokens of an annotated field per value of a metadata field
func (e *Engine) TokensPerMetadataValue(indexName, metadataField, field string) (map[string]int, error) {
	instance, err := e.instance(indexName)
	if err != nil {
		return nil, err
	}
	return instance.TokensPerMetadataValue(metadataField, field)
}

func (e *Engine) trackSearch(indexName string, req search.Request, result search.Result, err error, elapsed time.Duration) {
	event := model.SearchEvent{
		IndexName:    indexName,
		ResponseTime: elapsed,
		Failed:       err != nil,
	}
	if req.Pattern != nil {
		event.Pattern = req.Pattern.String()
	}
	switch r := result.(type) {
	case *search.HitsResult:
		event.ResultType, event.ResultCount = "hits", len(r.Hits)
	case *search.GroupsResult:
		event.ResultType, event.ResultCount = "groups", len(r.Groups)
	case *search.CountResult:
		event.ResultType, event.ResultCount = "count", r.Hits
	case *search.ConcordancesResult:
		event.ResultType, event.ResultCount = "concordances", len(r.Concordances)
	}
	e.analytics.TrackSearchEvent(event)
}
