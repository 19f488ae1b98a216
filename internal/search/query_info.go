package search

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/services"
)

// ResultsObjectIDUnset is reported until a results object id is set
const ResultsObjectIDUnset = -1

var lastResultsObjectID atomic.Int64

// nextResultsObjectID hands out process-wide unique debugging ids
func nextResultsObjectID() int {
	return int(lastResultsObjectID.Add(1))
}

// QueryInfo is the context shared by every step of one search recipe: the index searched
// and the annotated field hits come from.
type QueryInfo struct {
	index           services.IndexReader
	field           string
	resultsObjectID atomic.Pointer[int]
}

// NewQueryInfo creates the query context. An empty field means the index's main annotated field.
func NewQueryInfo(idx services.IndexReader, field string) *QueryInfo {
	if field == "" {
		field = idx.Metadata().MainField
	}
	return &QueryInfo{index: idx, field: field}
}

// Index returns the index that is searched
func (q *QueryInfo) Index() services.IndexReader {
	return q.index
}

// Field returns the annotated field that is searched
func (q *QueryInfo) Field() string {
	return q.field
}

// ResultsObjectID returns the debugging id of the original query, or ResultsObjectIDUnset
func (q *QueryInfo) ResultsObjectID() int {
	if id := q.resultsObjectID.Load(); id != nil {
		return *id
	}
	return ResultsObjectIDUnset
}

// SetResultsObjectID sets the debugging id of the original query. It can be set exactly once;
// of two concurrent callers only one succeeds.
func (q *QueryInfo) SetResultsObjectID(id int) error {
	if id == ResultsObjectIDUnset {
		return errors.NewUnsupportedOperationError("SetResultsObjectID", fmt.Sprintf("invalid results object id %d", id))
	}
	if !q.resultsObjectID.CompareAndSwap(nil, &id) {
		return errors.NewUnsupportedOperationError("SetResultsObjectID", "results object id is already set")
	}
	return nil
}

// MarshalJSON describes the query context in responses
func (q *QueryInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index           string `json:"index"`
		Field           string `json:"field"`
		ResultsObjectID int    `json:"results_object_id"`
	}{q.index.Name(), q.field, q.ResultsObjectID()})
}
