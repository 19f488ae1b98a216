package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AddDocumentsHandler indexes an XML input with the format of the index.
// The input is the raw request body or a file in the "data" multipart field.
// By default indexing runs as a background job; ?wait=true indexes before responding.
func (api *API) AddDocumentsHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if _, err := api.engine.Index(indexName); err != nil {
		SendEngineError(c, "document indexing", err)
		return
	}

	input, ok := readInput(c)
	if !ok {
		return
	}
	if len(input) == 0 {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "No input provided")
		return
	}

	if c.Query("wait") == "true" {
		result, err := api.engine.IndexDocuments(c.Request.Context(), indexName, input)
		if err != nil {
			SendEngineError(c, "document indexing", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("%d document(s) indexed in '%s'", result.Indexed, indexName),
			"result":  result,
		})
		return
	}

	jobID, err := api.engine.AddDocumentsAsync(indexName, input)
	if err != nil {
		SendJobExecutionError(c, "document indexing", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": fmt.Sprintf("Indexing started for index '%s' (%d bytes)", indexName, len(input)),
		"job_id":  jobID,
	})
}

// GetDocumentsHandler lists the PIDs of an index, paginated with offset and limit
func (api *API) GetDocumentsHandler(c *gin.Context) {
	idx, err := api.engine.Index(c.Param("indexName"))
	if err != nil {
		SendEngineError(c, "document listing", err)
		return
	}

	offset, limit, result := ValidateOffsetLimit(c.Query("offset"), c.Query("limit"))
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	pids := idx.PIDs()
	total := len(pids)
	start := min(offset, total)
	end := min(start+limit, total)
	c.JSON(http.StatusOK, gin.H{
		"documents": pids[start:end],
		"total":     total,
		"offset":    offset,
		"limit":     limit,
	})
}

// GetDocumentHandler returns the stored information of a document.
// ?markup=true adds the original markup from the content store.
func (api *API) GetDocumentHandler(c *gin.Context) {
	pid := c.Param("pid")
	if result := ValidatePID(pid); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	idx, err := api.engine.Index(c.Param("indexName"))
	if err != nil {
		SendEngineError(c, "document lookup", err)
		return
	}

	info, err := idx.DocumentByPID(pid)
	if err != nil {
		SendEngineError(c, "document lookup", err)
		return
	}
	resp := gin.H{"document": info}
	if c.Query("markup") == "true" {
		markup, err := idx.DocumentMarkup(c.Request.Context(), pid)
		if err != nil {
			SendEngineError(c, "document markup", err)
			return
		}
		resp["markup"] = markup
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteDocumentHandler removes a document in a background job
func (api *API) DeleteDocumentHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	pid := c.Param("pid")
	if result := ValidatePID(pid); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	jobID, err := api.engine.DeleteDocumentAsync(indexName, pid)
	if err != nil {
		SendEngineError(c, "document deletion", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": fmt.Sprintf("Deletion of document '%s' started", pid),
		"job_id":  jobID,
	})
}

// readInput returns the uploaded input of a request. It writes an error response and
// returns false when the body cannot be read.
func readInput(c *gin.Context) ([]byte, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		_, data, ok := readUpload(c)
		return data, ok
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		sendReadError(c, err)
		return nil, false
	}
	return data, true
}
