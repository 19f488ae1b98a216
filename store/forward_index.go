package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"
)

// ForwardIndex stores the values of an annotation per document, indexed by token position.
// It is keyed by the annotation's physical prefix ("contents%lemma"), since concordances show
// the original, not desensitized, values.
type ForwardIndex struct {
	backend *Backend
}

// NewForwardIndex creates a forward index on backend
func NewForwardIndex(backend *Backend) *ForwardIndex {
	return &ForwardIndex{backend: backend}
}

// Put stores the per-position values of annotation in docID, replacing earlier values.
func (f *ForwardIndex) Put(ctx context.Context, docID uint32, annotation string, values [][]string) error {
	data, err := marshalGob(values)
	if err != nil {
		return err
	}
	return f.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeDocFieldKey(forwardIndexPrefix, docID, annotation), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// PutAll stores several annotations of one document in a single transaction.
func (f *ForwardIndex) PutAll(ctx context.Context, docID uint32, annotations map[string][][]string) error {
	return f.backend.WithTx(func(tx *badger.Txn) error {
		for annotation, values := range annotations {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := marshalGob(values)
			if err != nil {
				return err
			}
			if err := tx.Set(makeDocFieldKey(forwardIndexPrefix, docID, annotation), data); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Get returns the values at positions [start, end) of annotation in docID, clamped to the
// document length. A document or annotation without stored values yields nil.
func (f *ForwardIndex) Get(ctx context.Context, docID uint32, annotation string, start, end int) ([][]string, error) {
	var values [][]string
	err := f.backend.WithTx(func(tx *badger.Txn) error {
		_, err := getValue(tx, makeDocFieldKey(forwardIndexPrefix, docID, annotation), func(val []byte) error {
			return unmarshalGob(val, &values)
		})
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return clampRange(values, start, end), nil
}

// Length returns the number of positions stored for annotation in docID
func (f *ForwardIndex) Length(ctx context.Context, docID uint32, annotation string) (int, error) {
	values, err := f.Get(ctx, docID, annotation, 0, -1)
	return len(values), err
}

// Delete removes every annotation of docID
func (f *ForwardIndex) Delete(ctx context.Context, docID uint32) error {
	return f.backend.DeletePrefix(makeDocPrefix(forwardIndexPrefix, docID))
}

// clampRange returns s[start:end] clamped to the slice bounds. A negative end means the rest.
func clampRange[T any](s []T, start, end int) []T {
	if start < 0 {
		start = 0
	}
	if end < 0 || end > len(s) {
		end = len(s)
	}
	if start >= end {
		return nil
	}
	return s[start:end]
}
