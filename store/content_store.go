package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"
)

// ContentStore keeps the original markup of indexed documents: the serialized node of every
// token position per field, and the whole document.
type ContentStore struct {
	backend *Backend
}

// NewContentStore creates a content store on backend
func NewContentStore(backend *Backend) *ContentStore {
	return &ContentStore{backend: backend}
}

// PutTokens stores the markup of each token of field in docID
func (c *ContentStore) PutTokens(ctx context.Context, docID uint32, field string, markup []string) error {
	data, err := marshalGob(markup)
	if err != nil {
		return err
	}
	return c.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeDocFieldKey(tokenMarkupPrefix, docID, field), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Tokens returns the markup of token positions [start, end) of field in docID
func (c *ContentStore) Tokens(ctx context.Context, docID uint32, field string, start, end int) ([]string, error) {
	var markup []string
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		_, err := getValue(tx, makeDocFieldKey(tokenMarkupPrefix, docID, field), func(val []byte) error {
			return unmarshalGob(val, &markup)
		})
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return clampRange(markup, start, end), nil
}

// PutDocument stores the full markup of docID
func (c *ContentStore) PutDocument(ctx context.Context, docID uint32, markup string) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeDocumentKey(docID), []byte(markup)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Document returns the full markup of docID. found is false when nothing was stored.
func (c *ContentStore) Document(ctx context.Context, docID uint32) (markup string, found bool, err error) {
	err = c.backend.WithTx(func(tx *badger.Txn) error {
		var getErr error
		found, getErr = getValue(tx, makeDocumentKey(docID), func(val []byte) error {
			markup = string(val)
			return nil
		})
		return getErr
	}, false)
	return markup, found, err
}

// Delete removes all content of docID
func (c *ContentStore) Delete(ctx context.Context, docID uint32) error {
	return c.backend.DeletePrefix(makeDocPrefix(tokenMarkupPrefix, docID), makeDocumentKey(docID))
}
