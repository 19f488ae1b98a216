package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/persistence"
	"github.com/gcbaptista/go-corpus-engine/store"
)

const (
	dataDirPerm       = 0750
	indexesDir        = "indexes"
	formatFile        = "format.blf.yaml"
	metadataFile      = "metadata.gob"
	invertedIndexFile = "inverted_index.gob"
	documentStoreFile = "document_store.gob"
	storeDir          = "store"
	analyticsFile     = "analytics.gob"
)

func (e *Engine) indexesDir() string {
	return filepath.Join(e.settings.DataDir, indexesDir)
}

func (e *Engine) indexPath(name string) string {
	return filepath.Join(e.indexesDir(), name)
}

// openBackend opens the forward index and content store of an index
func (e *Engine) openBackend(name string) (*store.Backend, error) {
	if e.settings.InMemory {
		return store.OpenBackend("", true, e.logger)
	}
	return store.OpenBackend(filepath.Join(e.indexPath(name), storeDir), false, e.logger)
}

// loadIndexesFromDisk loads all indexes from the data directory.
// Indexes that cannot be loaded are logged and skipped.
func (e *Engine) loadIndexesFromDisk() {
	e.logger.Info("Loading indexes from disk", "dir", e.indexesDir())

	items, err := os.ReadDir(e.indexesDir())
	if err != nil {
		e.logger.Warn("Failed to read data directory, no indexes loaded", "dir", e.indexesDir(), "error", err)
		return
	}

	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		name := item.Name()
		instance, err := e.loadIndex(name)
		if err != nil {
			e.logger.Warn("Skipping index that failed to load", "index", name, "error", err)
			continue
		}
		e.indexes[name] = instance
		e.logger.Info("Loaded index", "index", name, "documents", instance.DocumentStore.Count())
	}
}

func (e *Engine) loadIndex(name string) (*IndexInstance, error) {
	path := e.indexPath(name)

	data, err := os.ReadFile(filepath.Join(path, formatFile)) // #nosec G304 -- path is under the data directory
	if err != nil {
		return nil, fmt.Errorf("failed to read stored format: %w", err)
	}
	format, err := config.LoadFormat(bytes.NewReader(data), config.EncodingYAML)
	if err != nil {
		return nil, fmt.Errorf("stored format is invalid: %w", err)
	}

	metadata := &index.Metadata{}
	if err := persistence.LoadGob(filepath.Join(path, metadataFile), metadata); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		metadata = index.NewMetadata(name, format)
	}
	if metadata.Name != name {
		return nil, fmt.Errorf("index name in metadata ('%s') does not match directory name ('%s')", metadata.Name, name)
	}

	// The inverted index and document store must agree with each other, so neither is
	// silently reset when the other loads
	ii := index.NewInvertedIndex()
	if err := persistence.LoadGob(filepath.Join(path, invertedIndexFile), ii); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		e.logger.Info("Inverted index file not found, initializing empty index", "index", name)
		ii = index.NewInvertedIndex()
	}
	docs := store.NewDocumentStore()
	if err := persistence.LoadGob(filepath.Join(path, documentStoreFile), docs); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		e.logger.Info("Document store file not found, initializing empty store", "index", name)
		docs = store.NewDocumentStore()
	}

	backend, err := e.openBackend(name)
	if err != nil {
		return nil, err
	}
	instance, err := e.newIndexInstance(instanceParts{
		name: name, format: format, metadata: metadata, ii: ii, docs: docs, backend: backend,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return instance, nil
}

// PersistIndexData persists the data for a specific index to disk.
func (e *Engine) PersistIndexData(indexName string) error {
	instance, err := e.instance(indexName)
	if err != nil {
		return err
	}
	return e.persistIndexUnsafe(instance)
}

// persistIndexUnsafe writes the gob state and format of an index. The forward index and
// content store are persisted by their backend. Does nothing for in-memory engines.
func (e *Engine) persistIndexUnsafe(instance *IndexInstance) error {
	if e.settings.InMemory {
		return nil
	}
	path := e.indexPath(instance.name)
	if err := os.MkdirAll(path, dataDirPerm); err != nil {
		return fmt.Errorf("failed to create directory for index %s: %w", instance.name, err)
	}

	data, err := instance.format.Marshal(config.EncodingYAML)
	if err != nil {
		return fmt.Errorf("failed to serialize format of index %s: %w", instance.name, err)
	}
	if err := os.WriteFile(filepath.Join(path, formatFile), data, 0600); err != nil {
		return fmt.Errorf("failed to save format of index %s: %w", instance.name, err)
	}
	if err := persistence.SaveGob(filepath.Join(path, metadataFile), instance.metadata); err != nil {
		return fmt.Errorf("failed to save metadata for index %s: %w", instance.name, err)
	}
	if err := persistence.SaveGob(filepath.Join(path, invertedIndexFile), instance.InvertedIndex); err != nil {
		return fmt.Errorf("failed to save inverted index for %s: %w", instance.name, err)
	}
	if err := persistence.SaveGob(filepath.Join(path, documentStoreFile), instance.DocumentStore); err != nil {
		return fmt.Errorf("failed to save document store for %s: %w", instance.name, err)
	}
	return nil
}
