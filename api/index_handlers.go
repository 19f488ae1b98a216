package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-corpus-engine/index"
)

const (
	defaultSimilarDistance = 2
	maxSimilarDistance     = 3
	defaultSimilarLimit    = 10
)

// CreateIndexRequest names a new index and the format its input is read with
type CreateIndexRequest struct {
	Name   string `json:"name"`
	Format string `json:"format"`
}

// CreateIndexHandler handles the request to create a new index.
func (api *API) CreateIndexHandler(c *gin.Context) {
	var req CreateIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	result := ValidateIndexName(req.Name)
	if req.Format == "" {
		result.AddError("format", "Format name is required")
	}
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.CreateIndex(req.Name, req.Format); err != nil {
		SendEngineError(c, "index creation", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Index '" + req.Name + "' created successfully",
		"name":    req.Name,
		"format":  req.Format,
	})
}

// ListIndexesHandler lists all available indexes.
func (api *API) ListIndexesHandler(c *gin.Context) {
	names := api.engine.ListIndexes()
	c.JSON(http.StatusOK, gin.H{"indexes": names, "count": len(names)})
}

// GetIndexHandler returns the statistics of an index.
func (api *API) GetIndexHandler(c *gin.Context) {
	idx, err := api.engine.Index(c.Param("indexName"))
	if err != nil {
		SendEngineError(c, "index lookup", err)
		return
	}
	c.JSON(http.StatusOK, idx.Stats())
}

// DeleteIndexHandler handles deleting an index.
func (api *API) DeleteIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if err := api.engine.DeleteIndex(indexName); err != nil {
		SendEngineError(c, "index deletion", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Index '" + indexName + "' deleted successfully"})
}

// TokenCountHandler sums the tokens of a field per value of a metadata field.
// Query parameters: metadata (required) and field (the main field when omitted).
func (api *API) TokenCountHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	metadataField := c.Query("metadata")
	if metadataField == "" {
		result := &ValidationResult{Valid: true}
		result.AddError("metadata", "Metadata field is required")
		SendValidationError(c, result)
		return
	}

	counts, err := api.engine.TokensPerMetadataValue(indexName, metadataField, c.Query("field"))
	if err != nil {
		SendEngineError(c, "token count", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"index":    indexName,
		"metadata": metadataField,
		"tokens":   counts,
	})
}

// SimilarTermsHandler lists indexed spelling variants of a term
func (api *API) SimilarTermsHandler(c *gin.Context) {
	result := &ValidationResult{Valid: true}
	term := c.Query("term")
	if term == "" {
		result.AddError("term", "Term is required")
	}
	distance, err := strconv.Atoi(c.DefaultQuery("max_distance", strconv.Itoa(defaultSimilarDistance)))
	if err != nil || distance < 1 || distance > maxSimilarDistance {
		result.AddError("max_distance", "Max distance must be between 1 and "+strconv.Itoa(maxSimilarDistance))
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultSimilarLimit)))
	if err != nil || limit < 1 || limit > maxPageSize {
		result.AddError("limit", "Limit must be between 1 and "+strconv.Itoa(maxPageSize))
	}
	sensitivity := index.Insensitive
	if s := c.Query("sensitivity"); s != "" {
		if sensitivity, err = index.ParseMatchSensitivity(s); err != nil {
			result.AddError("sensitivity", err.Error())
		}
	}
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	idx, err := api.engine.Index(c.Param("indexName"))
	if err != nil {
		SendEngineError(c, "similar terms", err)
		return
	}
	suggestions, err := idx.SimilarTerms(c.Query("field"), c.Query("annotation"), term, sensitivity, distance, limit)
	if err != nil {
		SendEngineError(c, "similar terms", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"term":        term,
		"suggestions": suggestions,
	})
}
