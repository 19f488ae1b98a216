package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/gcbaptista/go-corpus-engine/internal/extraction"
	"github.com/gcbaptista/go-corpus-engine/model"
)

// BulkIndexingConfig contains configuration for bulk indexing operations
type BulkIndexingConfig struct {
	BatchSize           int  // Number of extracted documents handed to the service at once
	WorkerCount         int  // Number of documents extracted in parallel
	SkipFailedDocuments bool // Log and skip documents that fail extraction instead of aborting
	ProgressCallback    func(processed, total int, message string)
}

// DefaultBulkIndexingConfig returns sensible defaults for bulk indexing
func DefaultBulkIndexingConfig() BulkIndexingConfig {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return BulkIndexingConfig{
		BatchSize:   100,
		WorkerCount: workers,
	}
}

// BulkResult summarizes one bulk indexing run
type BulkResult struct {
	Documents int           `json:"documents"` // Document nodes found in the input
	Indexed   int           `json:"indexed"`
	Failed    int           `json:"failed"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// BulkIndexer extracts the documents of an input on a worker pool and indexes them in order.
type BulkIndexer struct {
	service   *Service
	extractor *extraction.Extractor
	config    BulkIndexingConfig
	pool      *ants.Pool
	logger    *slog.Logger
}

// NewBulkIndexer creates a new bulk indexer with the given configuration
func NewBulkIndexer(service *Service, extractor *extraction.Extractor, config BulkIndexingConfig) (*BulkIndexer, error) {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.BatchSize < 1 {
		config.BatchSize = DefaultBulkIndexingConfig().BatchSize
	}
	pool, err := ants.NewPool(config.WorkerCount)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction pool: %w", err)
	}
	return &BulkIndexer{
		service:   service,
		extractor: extractor,
		config:    config,
		pool:      pool,
		logger:    service.logger,
	}, nil
}

// Release stops the worker pool
func (bi *BulkIndexer) Release() {
	bi.pool.Release()
}

// IndexInput extracts and indexes every document of one input file. Extraction failures
// abort the whole input unless SkipFailedDocuments is set, in which case they are counted
// in the result.
func (bi *BulkIndexer) IndexInput(ctx context.Context, input []byte) (*BulkResult, error) {
	start := time.Now()
	nodes, err := bi.extractor.SplitDocuments(ctx, input)
	if err != nil {
		return nil, err
	}
	result := &BulkResult{Documents: len(nodes)}
	bi.logger.Info("Starting bulk indexing", "index", bi.service.name, "documents", len(nodes), "workers", bi.config.WorkerCount)

	docs := make([]*model.ExtractedDocument, len(nodes))
	errs := make([]error, len(nodes))
	var wg sync.WaitGroup
	for i, node := range nodes {
		wg.Add(1)
		if submitErr := bi.pool.Submit(func() {
			defer wg.Done()
			docs[i], errs[i] = bi.extractor.Extract(ctx, i, node)
		}); submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("failed to schedule extraction: %w", submitErr)
		}
	}
	wg.Wait()

	extracted := make([]*model.ExtractedDocument, 0, len(docs))
	for i, doc := range docs {
		if errs[i] == nil {
			extracted = append(extracted, doc)
			continue
		}
		if !bi.config.SkipFailedDocuments {
			return nil, errs[i]
		}
		bi.logger.Warn("Skipping document that failed extraction", "index", bi.service.name, "document", i, "error", errs[i])
		result.Failed++
		result.Errors = append(result.Errors, errs[i].Error())
	}
	bi.progress(0, len(extracted), "extracted")

	for i := 0; i < len(extracted); i += bi.config.BatchSize {
		end := i + bi.config.BatchSize
		if end > len(extracted) {
			end = len(extracted)
		}
		if err := bi.service.AddDocuments(ctx, extracted[i:end]); err != nil {
			return nil, err
		}
		result.Indexed = end
		bi.progress(end, len(extracted), fmt.Sprintf("indexed %d of %d documents", end, len(extracted)))
	}

	result.Duration = time.Since(start)
	bi.logger.Info("Bulk indexing completed", "index", bi.service.name, "indexed", result.Indexed,
		"failed", result.Failed, "duration", result.Duration)
	return result, nil
}

func (bi *BulkIndexer) progress(processed, total int, message string) {
	if bi.config.ProgressCallback != nil {
		bi.config.ProgressCallback(processed, total, message)
	}
}
