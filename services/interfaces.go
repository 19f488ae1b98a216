package services

import (
	"context"
	"io"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/model"
)

// Node is an opaque document node owned by a NodeEvaluator
type Node any

// NodeEvaluator evaluates paths against a document tree. Extraction only talks to documents
// through this interface.
type NodeEvaluator interface {
	// Parse reads a document and returns its root node
	Parse(r io.Reader) (Node, error)
	// Select returns the nodes matched by path relative to ctx, in document order
	Select(ctx Node, path string, namespaces map[string]string) ([]Node, error)
	// EvaluateStrings returns the string value of each matched node, or the single scalar
	// result when path evaluates to a string, number or boolean
	EvaluateStrings(ctx Node, path string, namespaces map[string]string) ([]string, error)
	// Text returns the text content of a node
	Text(n Node) string
	// Markup serializes a node including its own tag
	Markup(n Node) string
}

// FormatRegistry holds the validated input formats known to the engine.
type FormatRegistry interface {
	RegisterFormat(format *config.InputFormat) error
	RegisterUserFormat(user string, format *config.InputFormat) (string, error) // Returns "user:name"
	GetFormat(name string) (*config.InputFormat, error)
	ListFormats() []string
	RemoveFormat(name string) error
}

// IndexReader is the read side of one index, used to execute searches.
type IndexReader interface {
	Name() string
	Metadata() *index.Metadata
	Defaults() config.HitDefaults
	Search(q index.SpanQuery) []index.Hit
	// ForwardValues returns the values of annotation key ("word", "pos#head") at positions [start, end)
	ForwardValues(ctx context.Context, docID uint32, field, annotation string, start, end int) ([][]string, error)
	// TokenMarkup returns the stored markup of positions [start, end)
	TokenMarkup(ctx context.Context, docID uint32, field string, start, end int) ([]string, error)
	Document(docID uint32) (*model.DocumentInfo, bool)
	DocumentLength(docID uint32, field string) int
}

// Indexer defines operations for adding data to an index
type Indexer interface {
	AddDocuments(ctx context.Context, docs []*model.ExtractedDocument) error
	DeleteDocument(ctx context.Context, pid string) error
}

// IndexAccessor combines the read and write side of an index
type IndexAccessor interface {
	IndexReader
	Indexer
	Format() *config.InputFormat
	DocumentMarkup(ctx context.Context, pid string) (string, error)
}

// IndexManager manages the lifecycle of indices
type IndexManager interface {
	CreateIndex(name, formatName string) error
	GetIndex(name string) (IndexAccessor, error)
	DeleteIndex(name string) error
	ListIndexes() []string
	PersistIndexData(indexName string) error
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(indexName string, status *model.JobStatus) []*model.Job
}
