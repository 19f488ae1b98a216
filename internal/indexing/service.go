package indexing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/internal/tokenizer"
	"github.com/gcbaptista/go-corpus-engine/model"
	"github.com/gcbaptista/go-corpus-engine/store"
)

// microBatchSize bounds how many documents are written under one inverted index lock
const microBatchSize = 10

// Service implements the indexing logic for a single index.
// It fulfills the services.Indexer interface.
type Service struct {
	name          string
	metadata      *index.Metadata
	invertedIndex *index.InvertedIndex
	documentStore *store.DocumentStore
	forwardIndex  *store.ForwardIndex
	contentStore  *store.ContentStore
	logger        *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger of the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new indexing Service writing into the given index structures.
func NewService(
	metadata *index.Metadata,
	invertedIndex *index.InvertedIndex,
	documentStore *store.DocumentStore,
	forwardIndex *store.ForwardIndex,
	contentStore *store.ContentStore,
	opts ...Option,
) (*Service, error) {
	if metadata == nil {
		return nil, fmt.Errorf("index metadata cannot be nil")
	}
	if invertedIndex == nil {
		return nil, fmt.Errorf("inverted index cannot be nil")
	}
	if documentStore == nil {
		return nil, fmt.Errorf("document store cannot be nil")
	}
	if forwardIndex == nil || contentStore == nil {
		return nil, fmt.Errorf("forward index and content store cannot be nil")
	}
	s := &Service{
		name:          metadata.Name,
		metadata:      metadata,
		invertedIndex: invertedIndex,
		documentStore: documentStore,
		forwardIndex:  forwardIndex,
		contentStore:  contentStore,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// posting is one term occurrence in a physical field
type posting struct {
	field    string
	position int
	term     string
}

// preparedDocument holds everything derived from one extracted document before it is written
type preparedDocument struct {
	info     *model.DocumentInfo
	postings []posting
	forward  map[string][][]string // annotation prefix -> values by position
	markup   map[string][]string   // annotated field -> token markup by position
	source   string
}

// AddDocuments indexes a batch of extracted documents. Documents whose PID is already
// indexed replace the old version.
func (s *Service) AddDocuments(ctx context.Context, docs []*model.ExtractedDocument) error {
	for i := 0; i < len(docs); i += microBatchSize {
		end := i + microBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.addMicroBatch(ctx, docs[i:end]); err != nil {
			return fmt.Errorf("failed to add document micro-batch starting at index %d: %w", i, err)
		}
	}
	return nil
}

func (s *Service) addMicroBatch(ctx context.Context, docs []*model.ExtractedDocument) error {
	prepared := make([]*preparedDocument, 0, len(docs))
	for _, doc := range docs {
		prepared = append(prepared, s.prepare(doc))
	}

	type replacement struct {
		docID  uint32
		counts map[string]int
	}
	var replaced []replacement

	s.invertedIndex.Mu.Lock()
	for _, p := range prepared {
		if old, ok := s.documentStore.ByPID(p.info.PID); ok && p.info.PID != "" {
			replaced = append(replaced, replacement{docID: old.DocID, counts: old.TokenCounts})
		}
		docID, oldID, hadPrevious := s.documentStore.Add(p.info)
		if hadPrevious {
			s.invertedIndex.RemoveDocument(oldID)
		}
		for _, post := range p.postings {
			s.invertedIndex.Add(post.field, docID, post.position, post.term)
		}
		s.invertedIndex.SetDocumentLength(docID, p.info.TokenCounts[s.metadata.MainField])
	}
	s.invertedIndex.Mu.Unlock()

	for _, r := range replaced {
		if err := s.deleteStored(ctx, r.docID); err != nil {
			return err
		}
		s.metadata.AddDocuments(-1, negate(r.counts))
	}

	tokens := make(map[string]int)
	for _, p := range prepared {
		for field, n := range p.info.TokenCounts {
			tokens[field] += n
		}
		docID := p.info.DocID
		if _, current := s.documentStore.Get(docID); !current {
			// Superseded by a later document with the same PID in this batch
			continue
		}
		if err := s.forwardIndex.PutAll(ctx, docID, p.forward); err != nil {
			return fmt.Errorf("failed to store forward index of document %s: %w", p.info.PID, err)
		}
		for field, markup := range p.markup {
			if err := s.contentStore.PutTokens(ctx, docID, field, markup); err != nil {
				return fmt.Errorf("failed to store content of document %s: %w", p.info.PID, err)
			}
		}
		if err := s.contentStore.PutDocument(ctx, docID, p.source); err != nil {
			return fmt.Errorf("failed to store content of document %s: %w", p.info.PID, err)
		}
		s.logger.Debug("Indexed document", "index", s.name, "pid", p.info.PID, "doc_id", docID, "postings", len(p.postings))
	}
	s.metadata.AddDocuments(len(prepared), tokens)
	return nil
}

// prepare fans every annotation value out to the physical fields of its sensitivity variants.
// Dynamic forEach names are registered in the index metadata on first sight.
func (s *Service) prepare(doc *model.ExtractedDocument) *preparedDocument {
	p := &preparedDocument{
		info: &model.DocumentInfo{
			PID:         doc.PID,
			Metadata:    doc.Metadata,
			TokenCounts: doc.TokenCounts(),
		},
		forward: make(map[string][][]string),
		markup:  make(map[string][]string),
		source:  doc.Markup,
	}

	for _, field := range doc.Fields {
		markup := make([]string, len(field.Tokens))
		for _, tok := range field.Tokens {
			markup[tok.Position] = tok.Markup
			for i := range tok.Values {
				tv := &tok.Values[i]
				info, ok := s.annotationInfo(field.Name, tv)
				if !ok {
					if tv.Dynamic {
						s.logger.Warn("Skipping forEach instance whose name is taken", "index", s.name, "field", field.Name, "annotation", tv.Key(), "template", tv.Template)
					} else {
						s.logger.Warn("Skipping values of unknown annotation", "index", s.name, "field", field.Name, "annotation", tv.Key())
					}
					continue
				}
				for _, m := range info.Sensitivities {
					physical := info.Variant(m).PhysicalField()
					transform := tokenizer.For(m)
					for _, v := range tv.Values {
						if term := transform(v); term != "" {
							p.postings = append(p.postings, posting{field: physical, position: tok.Position, term: term})
						}
					}
				}
				if info.ForwardIndex {
					prefix := info.Variant(index.Sensitive).Prefix()
					values, ok := p.forward[prefix]
					if !ok {
						values = make([][]string, len(field.Tokens))
						p.forward[prefix] = values
					}
					values[tok.Position] = append(values[tok.Position], tv.Values...)
				}
			}
		}
		p.markup[field.Name] = markup
	}
	return p
}

func (s *Service) annotationInfo(field string, tv *model.TokenValues) (*index.AnnotationInfo, bool) {
	if tv.Dynamic {
		return s.metadata.RegisterDynamic(field, tv.Annotation, tv.Template, tv.SubAnnotation)
	}
	return s.metadata.Annotation(field, tv.Key())
}

// DeleteDocument removes a document by its persistent identifier.
// This satisfies the services.Indexer interface.
func (s *Service) DeleteDocument(ctx context.Context, pid string) error {
	info, ok := s.documentStore.ByPID(pid)
	if !ok {
		return errors.NewDocumentNotFoundError(s.name, pid)
	}

	s.invertedIndex.Mu.Lock()
	s.documentStore.Delete(pid)
	s.invertedIndex.RemoveDocument(info.DocID)
	s.invertedIndex.Mu.Unlock()

	if err := s.deleteStored(ctx, info.DocID); err != nil {
		return err
	}
	s.metadata.AddDocuments(-1, negate(info.TokenCounts))
	s.logger.Info("Deleted document", "index", s.name, "pid", pid, "doc_id", info.DocID)
	return nil
}

func (s *Service) deleteStored(ctx context.Context, docID uint32) error {
	if err := s.forwardIndex.Delete(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete forward index of document %d: %w", docID, err)
	}
	if err := s.contentStore.Delete(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete content of document %d: %w", docID, err)
	}
	return nil
}

func negate(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[k] = -v
	}
	return out
}
