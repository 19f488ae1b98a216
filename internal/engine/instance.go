package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/internal/extraction"
	"github.com/gcbaptista/go-corpus-engine/internal/indexing"
	"github.com/gcbaptista/go-corpus-engine/internal/search"
	"github.com/gcbaptista/go-corpus-engine/internal/tokenizer"
	"github.com/gcbaptista/go-corpus-engine/internal/typoutil"
	"github.com/gcbaptista/go-corpus-engine/model"
	"github.com/gcbaptista/go-corpus-engine/services"
	"github.com/gcbaptista/go-corpus-engine/store"
)

// IndexInstance holds all components and services for a single corpus index.
// It implements the services.IndexAccessor interface.
type IndexInstance struct {
	name          string
	format        *config.InputFormat
	metadata      *index.Metadata
	InvertedIndex *index.InvertedIndex
	DocumentStore *store.DocumentStore
	backend       *store.Backend
	forwardIndex  *store.ForwardIndex
	contentStore  *store.ContentStore
	settings      config.EngineSettings
	indexer       *indexing.Service
	extractor     *extraction.Extractor
	searcher      *search.Searcher
	logger        *slog.Logger
}

var _ services.IndexAccessor = (*IndexInstance)(nil)

// instanceParts are the loaded or freshly created structures an instance is assembled from
type instanceParts struct {
	name     string
	format   *config.InputFormat
	metadata *index.Metadata
	ii       *index.InvertedIndex
	docs     *store.DocumentStore
	backend  *store.Backend
}

// newIndexInstance wires the services of one index. The backend is owned by the instance
// from here on and closed by Close.
func (e *Engine) newIndexInstance(p instanceParts) (*IndexInstance, error) {
	logger := e.logger.With("index", p.name)
	inst := &IndexInstance{
		name:          p.name,
		format:        p.format,
		metadata:      p.metadata,
		InvertedIndex: p.ii,
		DocumentStore: p.docs,
		backend:       p.backend,
		forwardIndex:  store.NewForwardIndex(p.backend),
		contentStore:  store.NewContentStore(p.backend),
		settings:      e.settings,
		logger:        logger,
	}

	var err error
	inst.indexer, err = indexing.NewService(p.metadata, p.ii, p.docs, inst.forwardIndex, inst.contentStore,
		indexing.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer service: %w", err)
	}

	exOpts := []extraction.Option{extraction.WithLogger(logger)}
	if e.tagger != nil {
		exOpts = append(exOpts, extraction.WithTagger(e.tagger))
	}
	inst.extractor, err = extraction.New(p.format, e.evaluator, exOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile format '%s': %w", p.format.Name, err)
	}

	cache, err := search.NewCache(e.settings.SearchCacheSize)
	if err != nil {
		return nil, err
	}
	inst.searcher, err = search.NewSearcher(inst,
		search.WithLogger(logger), search.WithJobs(e.jobManager), search.WithCache(cache))
	if err != nil {
		return nil, fmt.Errorf("failed to create searcher: %w", err)
	}
	return inst, nil
}

// Name returns the index name
func (i *IndexInstance) Name() string {
	return i.name
}

// Metadata returns the description of what was indexed
func (i *IndexInstance) Metadata() *index.Metadata {
	return i.metadata
}

// Defaults returns the hit defaults new HitsSettings start from
func (i *IndexInstance) Defaults() config.HitDefaults {
	return i.settings.Hits
}

// Format returns the index's private copy of its input format
func (i *IndexInstance) Format() *config.InputFormat {
	return i.extractor.Format()
}

// Searcher returns the searcher running recipes against this index
func (i *IndexInstance) Searcher() *search.Searcher {
	return i.searcher
}

// Search runs a span query against the inverted index
func (i *IndexInstance) Search(q index.SpanQuery) []index.Hit {
	return i.InvertedIndex.Search(q)
}

// ForwardValues returns the values of one annotation at positions [start, end)
func (i *IndexInstance) ForwardValues(ctx context.Context, docID uint32, field, annotation string, start, end int) ([][]string, error) {
	info, ok := i.metadata.Annotation(field, annotation)
	if !ok {
		return nil, errors.NewInvalidQueryError(annotation, fmt.Sprintf("field '%s' has no annotation '%s'", field, annotation))
	}
	if !info.ForwardIndex {
		return nil, errors.NewUnsupportedOperationError("forward values", fmt.Sprintf("annotation '%s' has no forward index", annotation))
	}
	return i.forwardIndex.Get(ctx, docID, info.Variant(index.Sensitive).Prefix(), start, end)
}

// TokenMarkup returns the stored markup of positions [start, end)
func (i *IndexInstance) TokenMarkup(ctx context.Context, docID uint32, field string, start, end int) ([]string, error) {
	return i.contentStore.Tokens(ctx, docID, field, start, end)
}

// Document returns the stored information of a document
func (i *IndexInstance) Document(docID uint32) (*model.DocumentInfo, bool) {
	return i.DocumentStore.Get(docID)
}

// DocumentLength returns the number of token positions of a document in field
func (i *IndexInstance) DocumentLength(docID uint32, field string) int {
	if info, ok := i.DocumentStore.Get(docID); ok {
		return info.TokenCounts[field]
	}
	return 0
}

// DocumentByPID looks a document up by its persistent identifier
func (i *IndexInstance) DocumentByPID(pid string) (*model.DocumentInfo, error) {
	info, ok := i.DocumentStore.ByPID(pid)
	if !ok {
		return nil, errors.NewDocumentNotFoundError(i.name, pid)
	}
	return info, nil
}

// DocumentMarkup returns the original markup of a document
func (i *IndexInstance) DocumentMarkup(ctx context.Context, pid string) (string, error) {
	info, err := i.DocumentByPID(pid)
	if err != nil {
		return "", err
	}
	markup, found, err := i.contentStore.Document(ctx, info.DocID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.NewDocumentNotFoundError(i.name, pid)
	}
	return markup, nil
}

// AddDocuments indexes already extracted documents.
// This satisfies a part of the services.IndexAccessor interface.
func (i *IndexInstance) AddDocuments(ctx context.Context, docs []*model.ExtractedDocument) error {
	defer i.searcher.Invalidate()
	return i.indexer.AddDocuments(ctx, docs)
}

// DeleteDocument removes a document by PID.
// This satisfies a part of the services.IndexAccessor interface.
func (i *IndexInstance) DeleteDocument(ctx context.Context, pid string) error {
	defer i.searcher.Invalidate()
	return i.indexer.DeleteDocument(ctx, pid)
}

// IndexInput extracts and indexes every document of one input file. progress may be nil.
func (i *IndexInstance) IndexInput(ctx context.Context, input []byte, progress func(processed, total int, message string)) (*indexing.BulkResult, error) {
	bulk, err := indexing.NewBulkIndexer(i.indexer, i.extractor, indexing.BulkIndexingConfig{
		BatchSize:           indexing.DefaultBulkIndexingConfig().BatchSize,
		WorkerCount:         i.settings.ExtractionWorkers,
		SkipFailedDocuments: i.settings.SkipFailedDocuments,
		ProgressCallback:    progress,
	})
	if err != nil {
		return nil, err
	}
	defer bulk.Release()
	defer i.searcher.Invalidate()
	return bulk.IndexInput(ctx, input)
}

// IndexStats summarizes an index
type IndexStats struct {
	Name           string              `json:"name"`
	Format         string              `json:"format"`
	Documents      int                 `json:"documents"`
	MainField      string              `json:"main_field"`
	Fields         map[string]int      `json:"tokens_per_field"`
	Annotations    map[string][]string `json:"annotations"` // Field -> annotation keys
	CachedSearches int                 `json:"cached_searches"`
}

// Stats returns document, token and annotation counts of the index
func (i *IndexInstance) Stats() IndexStats {
	stats := IndexStats{
		Name:           i.name,
		Format:         i.format.Name,
		Documents:      i.DocumentStore.Count(),
		Fields:         i.metadata.TokenCounts(),
		Annotations:    make(map[string][]string),
		CachedSearches: i.searcher.Cache().Len(),
	}
	if main := i.metadata.MainAnnotatedField(); main != nil {
		stats.MainField = main.Name
	}
	for _, name := range i.metadata.FieldNames() {
		field, _ := i.metadata.Field(name)
		keys := make([]string, len(field.Annotations))
		for n, a := range field.Annotations {
			keys[n] = a.Key()
		}
		stats.Annotations[name] = keys
	}
	return stats
}

// TokensPerMetadataValue sums the tokens of field over all documents, grouped by the values
// of a metadata field. Documents without a value are counted under "".
func (i *IndexInstance) TokensPerMetadataValue(metadataField, field string) (map[string]int, error) {
	if field == "" {
		field = i.metadata.MainField
	}
	if _, ok := i.metadata.Field(field); !ok {
		return nil, errors.NewValidationError("field", fmt.Sprintf("index '%s' has no annotated field '%s'", i.name, field))
	}
	counts := make(map[string]int)
	for _, doc := range i.DocumentStore.All() {
		values := doc.Metadata[metadataField]
		if len(values) == 0 {
			counts[""] += doc.TokenCounts[field]
			continue
		}
		for _, v := range values {
			counts[v] += doc.TokenCounts[field]
		}
	}
	return counts, nil
}

// PIDs returns the persistent identifiers of all documents, sorted
func (i *IndexInstance) PIDs() []string {
	docs := i.DocumentStore.All()
	pids := make([]string, len(docs))
	for n, d := range docs {
		pids[n] = d.PID
	}
	sort.Strings(pids)
	return pids
}

// Close releases the stores of the index
func (i *IndexInstance) Close() error {
	return i.backend.Close()
}

// TermSuggestion is an indexed term close to a requested one
type TermSuggestion struct {
	Term      string `json:"term"`
	Distance  int    `json:"distance"`
	Frequency int    `json:"frequency"`
}

// SimilarTerms finds the indexed values of an annotation within maxDistance edits of term.
// The term is desensitized like a search for the same sensitivity. An empty field or
// annotation uses the main one.
func (i *IndexInstance) SimilarTerms(field, annotation, term string, sensitivity index.MatchSensitivity, maxDistance, maxResults int) ([]TermSuggestion, error) {
	if field == "" {
		field = i.metadata.MainField
	}
	fieldInfo, ok := i.metadata.Field(field)
	if !ok {
		return nil, errors.NewValidationError("field", fmt.Sprintf("index '%s' has no annotated field '%s'", i.name, field))
	}
	var info *index.AnnotationInfo
	if annotation == "" {
		info = fieldInfo.MainAnnotation()
	} else {
		info, _ = fieldInfo.Annotation(annotation)
	}
	if info == nil {
		return nil, errors.NewValidationError("annotation", fmt.Sprintf("field '%s' has no annotation '%s'", field, annotation))
	}
	if !info.HasSensitivity(sensitivity) {
		return nil, errors.NewValidationError("sensitivity", fmt.Sprintf("annotation '%s' is not indexed %s", info.Key(), sensitivity))
	}

	physical := info.Variant(sensitivity).PhysicalField()
	term = tokenizer.For(sensitivity)(term)

	i.InvertedIndex.Mu.RLock()
	defer i.InvertedIndex.Mu.RUnlock()

	matches := typoutil.SimilarTerms(term, i.InvertedIndex.Terms(physical), maxDistance, maxResults)
	suggestions := make([]TermSuggestion, len(matches))
	for n, m := range matches {
		suggestions[n] = TermSuggestion{
			Term:      m.Term,
			Distance:  m.Distance,
			Frequency: i.InvertedIndex.Postings(physical, m.Term).Frequency(),
		}
	}
	return suggestions, nil
}
