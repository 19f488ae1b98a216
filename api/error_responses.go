package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	engerrors "github.com/gcbaptista/go-corpus-engine/internal/errors"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrorCodeIndexNotFound     ErrorCode = "INDEX_NOT_FOUND"
	ErrorCodeFormatNotFound    ErrorCode = "FORMAT_NOT_FOUND"
	ErrorCodeDocumentNotFound  ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrorCodeJobNotFound       ErrorCode = "JOB_NOT_FOUND"
	ErrorCodeIndexExists       ErrorCode = "INDEX_ALREADY_EXISTS"
	ErrorCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidJSON       ErrorCode = "INVALID_JSON"
	ErrorCodeInvalidQuery      ErrorCode = "INVALID_QUERY"
	ErrorCodeInvalidFormat     ErrorCode = "INVALID_FORMAT"
	ErrorCodeUnsupported       ErrorCode = "UNSUPPORTED_OPERATION"
	ErrorCodeExtractionFailed  ErrorCode = "EXTRACTION_FAILED"
	ErrorCodeRequestTooLarge   ErrorCode = "REQUEST_TOO_LARGE"
	ErrorCodeMissingUploadFile ErrorCode = "MISSING_UPLOAD_FILE"

	// Server Error Codes (5xx)
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeSearchFailed       ErrorCode = "SEARCH_FAILED"
	ErrorCodeJobExecutionFailed ErrorCode = "JOB_EXECUTION_FAILED"
)

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIErrorResponse creates a standardized error response
func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	errorResponse := APIErrorResponse(code, message, details...)

	if requestID, exists := c.Get(requestIDKey); exists {
		if id, ok := requestID.(string); ok {
			errorResponse.RequestID = id
		}
	}

	c.JSON(statusCode, errorResponse)
}

// SendStructuredValidationError sends a validation error with structured details
func SendStructuredValidationError(c *gin.Context, result *ValidationResult) {
	details := make([]ErrorDetail, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = ErrorDetail{
			Field:   err.Field,
			Message: err.Message,
			Code:    "VALIDATION_ERROR",
		}
	}

	SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", details...)
}

// SendInvalidJSONError sends a standardized invalid JSON error
func SendInvalidJSONError(c *gin.Context, err error) {
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON,
		"Invalid JSON in request body: "+err.Error())
}

// SendJobExecutionError sends a standardized job execution error
func SendJobExecutionError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeJobExecutionFailed,
		"Failed to start "+operation+" job: "+err.Error())
}

// SendEngineError maps an error returned by the engine to a status code and error code.
// Unknown errors are reported as internal errors of operation.
func SendEngineError(c *gin.Context, operation string, err error) {
	var status int
	var code ErrorCode
	switch {
	case errors.Is(err, engerrors.ErrIndexNotFound):
		status, code = http.StatusNotFound, ErrorCodeIndexNotFound
	case errors.Is(err, engerrors.ErrFormatNotFound):
		status, code = http.StatusNotFound, ErrorCodeFormatNotFound
	case errors.Is(err, engerrors.ErrDocumentNotFound):
		status, code = http.StatusNotFound, ErrorCodeDocumentNotFound
	case errors.Is(err, engerrors.ErrJobNotFound):
		status, code = http.StatusNotFound, ErrorCodeJobNotFound
	case errors.Is(err, engerrors.ErrIndexAlreadyExists):
		status, code = http.StatusConflict, ErrorCodeIndexExists
	case errors.Is(err, engerrors.ErrInvalidInput):
		status, code = http.StatusBadRequest, ErrorCodeValidationFailed
	case errors.Is(err, engerrors.ErrConfiguration):
		status, code = http.StatusBadRequest, ErrorCodeInvalidFormat
	case errors.Is(err, engerrors.ErrInvalidQuery):
		status, code = http.StatusBadRequest, ErrorCodeInvalidQuery
	case errors.Is(err, engerrors.ErrUnsupportedOperation):
		status, code = http.StatusBadRequest, ErrorCodeUnsupported
	case errors.Is(err, engerrors.ErrExtraction):
		status, code = http.StatusUnprocessableEntity, ErrorCodeExtractionFailed
	default:
		SendError(c, http.StatusInternalServerError, ErrorCodeInternalError,
			"Internal error during "+operation+": "+err.Error())
		return
	}
	SendError(c, status, code, err.Error())
}
