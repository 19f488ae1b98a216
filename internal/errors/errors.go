package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrConfiguration is returned when an input format definition is invalid
	ErrConfiguration = errors.New("configuration error")

	// ErrExtraction is returned when a document cannot be turned into annotation values
	ErrExtraction = errors.New("extraction error")

	// ErrInvalidQuery is returned when a pattern cannot be translated into an executable query
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnsupportedOperation is returned when a programming contract is violated
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrIndexNotFound is returned when an index is not found
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexAlreadyExists is returned when trying to create an index that already exists
	ErrIndexAlreadyExists = errors.New("index already exists")

	// ErrFormatNotFound is returned when an input format is not registered
	ErrFormatNotFound = errors.New("format not found")

	// ErrDocumentNotFound is returned when a document is not in an index
	ErrDocumentNotFound = errors.New("document not found")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrJobCancelled is returned when a job is cancelled before it runs
	ErrJobCancelled = errors.New("job cancelled")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)

// ConfigurationError describes an invalid input format definition.
// Object is the kind of schema node ("annotation", "annotatedField", ...),
// Name identifies it and Attribute names the offending setting.
type ConfigurationError struct {
	Object    string
	Name      string
	Attribute string
	Message   string
}

func (e *ConfigurationError) Error() string {
	subject := e.Object
	if e.Name != "" {
		subject = fmt.Sprintf("%s '%s'", e.Object, e.Name)
	}
	if e.Attribute != "" {
		return fmt.Sprintf("configuration error in %s, attribute '%s': %s", subject, e.Attribute, e.Message)
	}
	return fmt.Sprintf("configuration error in %s: %s", subject, e.Message)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(object, name, attribute, message string) *ConfigurationError {
	return &ConfigurationError{Object: object, Name: name, Attribute: attribute, Message: message}
}

// NewMissingAttributeError reports a required attribute that was left empty
func NewMissingAttributeError(object, name, attribute string) *ConfigurationError {
	return NewConfigurationError(object, name, attribute, "missing required value")
}

// ExtractionError describes a failure while extracting annotation values from a document.
type ExtractionError struct {
	Document   int
	Field      string
	Annotation string
	Position   int
	Message    string
	Err        error
}

func (e *ExtractionError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg != "" {
			msg = msg + ": " + e.Err.Error()
		} else {
			msg = e.Err.Error()
		}
	}
	if e.Annotation != "" {
		return fmt.Sprintf("extraction error in document %d, field '%s', annotation '%s' at position %d: %s",
			e.Document, e.Field, e.Annotation, e.Position, msg)
	}
	if e.Field != "" {
		return fmt.Sprintf("extraction error in document %d, field '%s': %s", e.Document, e.Field, msg)
	}
	return fmt.Sprintf("extraction error in document %d: %s", e.Document, msg)
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// InvalidQueryError describes a pattern that cannot be executed on an index.
type InvalidQueryError struct {
	Pattern string
	Reason  string
}

func (e *InvalidQueryError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("invalid query %s: %s", e.Pattern, e.Reason)
	}
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

func (e *InvalidQueryError) Is(target error) bool {
	return target == ErrInvalidQuery
}

// NewInvalidQueryError creates a new InvalidQueryError
func NewInvalidQueryError(pattern, reason string) *InvalidQueryError {
	return &InvalidQueryError{Pattern: pattern, Reason: reason}
}

// UnsupportedOperationError is a programming contract violation.
type UnsupportedOperationError struct {
	Operation string
	Reason    string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation '%s': %s", e.Operation, e.Reason)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// NewUnsupportedOperationError creates a new UnsupportedOperationError
func NewUnsupportedOperationError(operation, reason string) *UnsupportedOperationError {
	return &UnsupportedOperationError{Operation: operation, Reason: reason}
}

// IndexNotFoundError represents an index not found error with context
type IndexNotFoundError struct {
	IndexName string
}

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("index named '%s' not found", e.IndexName)
}

func (e *IndexNotFoundError) Is(target error) bool {
	return target == ErrIndexNotFound
}

// NewIndexNotFoundError creates a new IndexNotFoundError
func NewIndexNotFoundError(indexName string) *IndexNotFoundError {
	return &IndexNotFoundError{IndexName: indexName}
}

// IndexAlreadyExistsError represents an index already exists error with context
type IndexAlreadyExistsError struct {
	IndexName string
}

func (e *IndexAlreadyExistsError) Error() string {
	return fmt.Sprintf("index named '%s' already exists", e.IndexName)
}

func (e *IndexAlreadyExistsError) Is(target error) bool {
	return target == ErrIndexAlreadyExists
}

// NewIndexAlreadyExistsError creates a new IndexAlreadyExistsError
func NewIndexAlreadyExistsError(indexName string) *IndexAlreadyExistsError {
	return &IndexAlreadyExistsError{IndexName: indexName}
}

// FormatNotFoundError represents an unknown input format
type FormatNotFoundError struct {
	FormatName string
}

func (e *FormatNotFoundError) Error() string {
	return fmt.Sprintf("input format '%s' not found", e.FormatName)
}

func (e *FormatNotFoundError) Is(target error) bool {
	return target == ErrFormatNotFound
}

// NewFormatNotFoundError creates a new FormatNotFoundError
func NewFormatNotFoundError(formatName string) *FormatNotFoundError {
	return &FormatNotFoundError{FormatName: formatName}
}

// DocumentNotFoundError represents a document missing from an index
type DocumentNotFoundError struct {
	IndexName string
	PID       string
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("document '%s' not found in index '%s'", e.PID, e.IndexName)
}

func (e *DocumentNotFoundError) Is(target error) bool {
	return target == ErrDocumentNotFound
}

// NewDocumentNotFoundError creates a new DocumentNotFoundError
func NewDocumentNotFoundError(indexName, pid string) *DocumentNotFoundError {
	return &DocumentNotFoundError{IndexName: indexName, PID: pid}
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
