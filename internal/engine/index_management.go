package engine

import (
	"fmt"
	"os"
	"regexp"

	"github.com/gcbaptista/go-corpus-engine/index"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/services"
	"github.com/gcbaptista/go-corpus-engine/store"
)

// indexNameRegex keeps index names usable as directory names and URL segments
var indexNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_\-]*$`)

// ValidIndexName reports whether name can be used for a new index
func ValidIndexName(name string) bool {
	return indexNameRegex.MatchString(name)
}

// CreateIndex creates a new, empty index for documents of the named format and persists it.
// The index keeps its own copy of the format.
func (e *Engine) CreateIndex(name, formatName string) error {
	if !ValidIndexName(name) {
		return errors.NewValidationError("name", fmt.Sprintf("invalid index name '%s' (letters, digits, '_' and '-' only)", name))
	}
	format, err := e.formats.GetFormat(formatName)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indexes[name]; exists {
		return errors.NewIndexAlreadyExistsError(name)
	}
	if !e.settings.InMemory {
		if _, err := os.Stat(e.indexPath(name)); err == nil {
			return errors.NewIndexAlreadyExistsError(name)
		}
	}

	format = format.Copy()
	backend, err := e.openBackend(name)
	if err != nil {
		return fmt.Errorf("failed to open stores for index '%s': %w", name, err)
	}
	instance, err := e.newIndexInstance(instanceParts{
		name:     name,
		format:   format,
		metadata: index.NewMetadata(name, format),
		ii:       index.NewInvertedIndex(),
		docs:     store.NewDocumentStore(),
		backend:  backend,
	})
	if err != nil {
		_ = backend.Close()
		_ = e.removeIndexDir(name)
		return fmt.Errorf("failed to create new index instance for '%s': %w", name, err)
	}

	if err := e.persistIndexUnsafe(instance); err != nil {
		_ = instance.Close()
		_ = e.removeIndexDir(name)
		return fmt.Errorf("failed to persist new index '%s': %w", name, err)
	}

	e.indexes[name] = instance
	e.logger.Info("Index created", "index", name, "format", formatName)
	return nil
}

// GetIndex returns the index with the given name
func (e *Engine) GetIndex(name string) (services.IndexAccessor, error) {
	return e.instance(name)
}

// Index returns the concrete instance of an index, for callers needing more than
// services.IndexAccessor
func (e *Engine) Index(name string) (*IndexInstance, error) {
	return e.instance(name)
}

func (e *Engine) instance(name string) (*IndexInstance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return nil, errors.NewIndexNotFoundError(name)
	}
	return instance, nil
}

// DeleteIndex removes an index from memory and its data from disk
func (e *Engine) DeleteIndex(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.indexes[name]
	if !exists {
		return errors.NewIndexNotFoundError(name)
	}
	delete(e.indexes, name)

	if err := instance.Close(); err != nil {
		e.logger.Warn("Failed to close index stores", "index", name, "error", err)
	}
	if err := e.removeIndexDir(name); err != nil {
		return fmt.Errorf("failed to remove index directory %s: %w", e.indexPath(name), err)
	}

	e.logger.Info("Index deleted", "index", name)
	return nil
}

func (e *Engine) removeIndexDir(name string) error {
	if e.settings.InMemory {
		return nil
	}
	return os.RemoveAll(e.indexPath(name))
}
