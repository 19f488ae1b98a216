package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/services"
)

// userNameRegex limits user names to characters that are safe in a format name and a path
var userNameRegex = regexp.MustCompile(`^[\w\-@][\w.\-@]*$`)

// userFormatSeparator joins the user and format identifier of a user format: "jan:tei"
const userFormatSeparator = ":"

// FormatRegistry holds validated input formats by name. Registered formats are never
// mutated; user variants are registered as copies.
type FormatRegistry struct {
	mu      sync.RWMutex
	formats map[string]*config.InputFormat
}

var _ services.FormatRegistry = (*FormatRegistry)(nil)

// NewFormatRegistry creates an empty registry
func NewFormatRegistry() *FormatRegistry {
	return &FormatRegistry{formats: make(map[string]*config.InputFormat)}
}

// RegisterFormat validates format and registers it under its own name, replacing a format
// with the same name.
func (r *FormatRegistry) RegisterFormat(format *config.InputFormat) error {
	if format == nil {
		return errors.NewValidationError("format", "format cannot be nil")
	}
	if strings.TrimSpace(format.Name) == "" {
		return errors.NewValidationError("name", "format name cannot be empty")
	}
	if err := format.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats[format.Name] = format
	return nil
}

// RegisterUserFormat registers a copy of format owned by user and returns its name.
func (r *FormatRegistry) RegisterUserFormat(user string, format *config.InputFormat) (string, error) {
	if !userNameRegex.MatchString(user) {
		return "", errors.NewValidationError("user", fmt.Sprintf("invalid user name '%s'", user))
	}
	if format == nil {
		return "", errors.NewValidationError("format", "format cannot be nil")
	}
	if strings.Contains(format.Name, userFormatSeparator) {
		return "", errors.NewValidationError("name", fmt.Sprintf("format name '%s' cannot contain '%s'", format.Name, userFormatSeparator))
	}
	variant := format.Copy()
	variant.Name = UserFormatName(user, format.Name)
	if err := r.RegisterFormat(variant); err != nil {
		return "", err
	}
	return variant.Name, nil
}

// GetFormat returns the format registered under name
func (r *FormatRegistry) GetFormat(name string) (*config.InputFormat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	format, ok := r.formats[name]
	if !ok {
		return nil, errors.NewFormatNotFoundError(name)
	}
	return format, nil
}

// ListFormats returns the names of all registered formats, sorted
func (r *FormatRegistry) ListFormats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveFormat unregisters a format. Indexes created from it keep their own copy.
func (r *FormatRegistry) RemoveFormat(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.formats[name]; !ok {
		return errors.NewFormatNotFoundError(name)
	}
	delete(r.formats, name)
	return nil
}

// UserFormatName returns the registry name of a user's format
func UserFormatName(user, identifier string) string {
	return user + userFormatSeparator + identifier
}

// SplitUserFormatName splits "user:identifier"; ok is false for shared formats.
func SplitUserFormatName(name string) (user, identifier string, ok bool) {
	return strings.Cut(name, userFormatSeparator)
}
