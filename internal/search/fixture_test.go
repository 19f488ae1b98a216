package search

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/extraction"
	"github.com/gcbaptista/go-corpus-engine/internal/indexing"
	"github.com/gcbaptista/go-corpus-engine/internal/xmlpath"
	"github.com/gcbaptista/go-corpus-engine/model"
	"github.com/gcbaptista/go-corpus-engine/store"
)

const corpus = `<corpus>
  <doc><pid>A1</pid><w lemma="the" pos="DET">The</w><w lemma="cat" pos="NOU">Cats</w><w lemma="sit" pos="VRB">sat</w></doc>
  <doc><pid>A2</pid><w lemma="a" pos="DET">A</w><w lemma="cat" pos="NOU">cat</w><w lemma="café" pos="NOU">Café</w></doc>
</corpus>`

func testFormat() *config.InputFormat {
	f := config.NewInputFormat("test")
	f.DocumentPath = "//doc"
	f.AddMetadataField(&config.MetadataField{Name: extraction.PIDField, ValuePath: "pid"})
	field := config.NewAnnotatedField("contents", ".//w")
	field.AddAnnotation(config.NewAnnotation("word", "."))
	field.AddAnnotation(config.NewAnnotation("lemma", "@lemma"))
	field.AddAnnotation(config.NewAnnotation("pos", "@pos"))
	f.AddAnnotatedField(field)
	return f
}

// testIndex serves an index built by the real extraction and indexing code.
type testIndex struct {
	metadata *index.Metadata
	ii       *index.InvertedIndex
	docs     *store.DocumentStore
	forward  *store.ForwardIndex
	content  *store.ContentStore
	defaults config.HitDefaults

	searches atomic.Int64
	gate     chan struct{} // Search blocks until it is closed, when set
}

func newTestIndex(t *testing.T) *testIndex {
	t.Helper()
	format := testFormat()
	backend, err := store.OpenBackend("", true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	idx := &testIndex{
		metadata: index.NewMetadata("test_index", format),
		ii:       index.NewInvertedIndex(),
		docs:     store.NewDocumentStore(),
		forward:  store.NewForwardIndex(backend),
		content:  store.NewContentStore(backend),
		defaults: config.DefaultEngineSettings().Hits,
	}
	service, err := indexing.NewService(idx.metadata, idx.ii, idx.docs, idx.forward, idx.content)
	require.NoError(t, err)

	eval, err := xmlpath.NewEvaluator(0)
	require.NoError(t, err)
	ex, err := extraction.New(format, eval)
	require.NoError(t, err)
	docs, err := ex.ExtractDocuments(context.Background(), []byte(corpus))
	require.NoError(t, err)
	require.NoError(t, service.AddDocuments(context.Background(), docs))
	return idx
}

func (ti *testIndex) Name() string                 { return ti.metadata.Name }
func (ti *testIndex) Metadata() *index.Metadata    { return ti.metadata }
func (ti *testIndex) Defaults() config.HitDefaults { return ti.defaults }

func (ti *testIndex) Search(q index.SpanQuery) []index.Hit {
	ti.searches.Add(1)
	if ti.gate != nil {
		<-ti.gate
	}
	return ti.ii.Search(q)
}

func (ti *testIndex) ForwardValues(ctx context.Context, docID uint32, field, annotation string, start, end int) ([][]string, error) {
	info, ok := ti.metadata.Annotation(field, annotation)
	if !ok {
		return nil, fmt.Errorf("unknown annotation %s", annotation)
	}
	return ti.forward.Get(ctx, docID, info.Variant(index.Sensitive).Prefix(), start, end)
}

func (ti *testIndex) TokenMarkup(ctx context.Context, docID uint32, field string, start, end int) ([]string, error) {
	return ti.content.Tokens(ctx, docID, field, start, end)
}

func (ti *testIndex) Document(docID uint32) (*model.DocumentInfo, bool) {
	return ti.docs.Get(docID)
}

func (ti *testIndex) DocumentLength(docID uint32, field string) int {
	if info, ok := ti.docs.Get(docID); ok {
		return info.TokenCounts[field]
	}
	return 0
}

func (ti *testIndex) pids(hits []index.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		info, _ := ti.docs.Get(h.DocID)
		out[i] = fmt.Sprintf("%s:%d", info.PID, h.Start)
	}
	return out
}

func newTestSearcher(t *testing.T, opts ...Option) (*Searcher, *testIndex) {
	t.Helper()
	idx := newTestIndex(t)
	s, err := NewSearcher(idx, opts...)
	require.NoError(t, err)
	return s, idx
}
