// Package api provides the HTTP interface of the corpus engine.
package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-corpus-engine/internal/engine"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateIndexName validates an index name parameter
func ValidateIndexName(indexName string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if indexName == "" {
		result.AddError("name", "Index name is required")
		return result
	}

	if strings.TrimSpace(indexName) != indexName {
		result.AddError("name", "Index name cannot have leading or trailing whitespace")
		return result
	}

	if !engine.ValidIndexName(indexName) {
		result.AddError("name", "Index name may only contain letters, digits, '_' and '-', and must start with a letter or digit")
	}

	return result
}

// ValidatePID validates a document PID
func ValidatePID(pid string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if pid == "" {
		result.AddError("pid", "Document PID is required")
		return result
	}

	if strings.TrimSpace(pid) != pid {
		result.AddError("pid", "Document PID cannot have leading or trailing whitespace")
	}

	return result
}

// ValidateUserName validates the owner of user formats
func ValidateUserName(user string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if user == "" {
		result.AddError("user", "User name is required")
		return result
	}

	if strings.Contains(user, ":") || strings.Contains(user, "/") || strings.HasPrefix(user, ".") {
		result.AddError("user", "User name cannot contain ':' or '/' or start with '.'")
	}

	return result
}

// ValidateSearchRequest checks a search request for conflicting or out of range options
func ValidateSearchRequest(req *SearchRequest) *ValidationResult {
	result := &ValidationResult{Valid: true}

	hasPattern := len(req.Pattern) > 0
	hasQuery := strings.TrimSpace(req.Query) != ""
	switch {
	case hasPattern && hasQuery:
		result.AddError("pattern", "Specify either 'pattern' or 'query', not both")
	case !hasPattern && !hasQuery:
		result.AddError("query", "Either 'pattern' or 'query' is required")
	}

	if req.First < 0 {
		result.AddError("first", "First must be non-negative")
	}
	if req.Number < 0 {
		result.AddError("number", "Number must be non-negative")
	}
	if req.MaxHitsPerGroup < 0 {
		result.AddError("max_hits_per_group", "Max hits per group must be non-negative")
	}

	if req.Group != "" && (req.Count || req.Concordances) {
		result.AddError("group", "Grouping cannot be combined with 'count' or 'concordances'")
	}
	if req.Count && req.Concordances {
		result.AddError("count", "Counting cannot be combined with 'concordances'")
	}
	if req.Group == "" && req.MaxHitsPerGroup > 0 {
		result.AddError("max_hits_per_group", "Max hits per group requires 'group'")
	}

	return result
}

// ValidateOffsetLimit parses pagination query parameters, applying defaults and the maximum page size
func ValidateOffsetLimit(offsetParam, limitParam string) (int, int, *ValidationResult) {
	result := &ValidationResult{Valid: true}
	offset, limit := 0, defaultPageSize

	if offsetParam != "" {
		n, err := strconv.Atoi(offsetParam)
		if err != nil || n < 0 {
			result.AddError("offset", "Offset must be a non-negative integer")
		} else {
			offset = n
		}
	}
	if limitParam != "" {
		n, err := strconv.Atoi(limitParam)
		if err != nil || n < 1 {
			result.AddError("limit", "Limit must be a positive integer")
		} else {
			limit = min(n, maxPageSize)
		}
	}
	return offset, limit, result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}
