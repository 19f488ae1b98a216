package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/internal/engine"
)

// uploadField is the multipart field carrying uploaded files
const uploadField = "data"

// FormatSummary describes a registered format in listings
type FormatSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	MainField   string `json:"main_field,omitempty"`
}

func summarizeFormat(f *config.InputFormat) FormatSummary {
	s := FormatSummary{Name: f.Name, DisplayName: f.DisplayName, Description: f.Description}
	if main := f.MainAnnotatedField(); main != nil {
		s.MainField = main.Name
	}
	return s
}

// ListFormatsHandler lists all registered formats, user formats included
func (api *API) ListFormatsHandler(c *gin.Context) {
	api.listFormats(c, func(string) bool { return true })
}

// ListUserFormatsHandler lists the formats uploaded by one user
func (api *API) ListUserFormatsHandler(c *gin.Context) {
	user := c.Param("user")
	if result := ValidateUserName(user); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	api.listFormats(c, func(name string) bool {
		owner, _, ok := engine.SplitUserFormatName(name)
		return ok && owner == user
	})
}

func (api *API) listFormats(c *gin.Context, keep func(name string) bool) {
	registry := api.engine.Formats()
	formats := make([]FormatSummary, 0)
	for _, name := range registry.ListFormats() {
		if !keep(name) {
			continue
		}
		f, err := registry.GetFormat(name)
		if err != nil {
			continue // removed concurrently
		}
		formats = append(formats, summarizeFormat(f))
	}
	c.JSON(http.StatusOK, gin.H{"formats": formats, "count": len(formats)})
}

// GetFormatHandler returns the definition of a format, as JSON or as YAML with ?encoding=yaml
func (api *API) GetFormatHandler(c *gin.Context) {
	f, err := api.engine.Formats().GetFormat(c.Param("formatName"))
	if err != nil {
		SendEngineError(c, "format lookup", err)
		return
	}

	kind := config.EncodingKind(c.DefaultQuery("encoding", string(config.EncodingJSON)))
	contentType := "application/json"
	switch kind {
	case config.EncodingJSON:
	case config.EncodingYAML:
		contentType = "application/x-yaml"
	default:
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "encoding must be 'json' or 'yaml'")
		return
	}

	data, err := f.Marshal(kind)
	if err != nil {
		SendEngineError(c, "format serialization", err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// ValidateFormatHandler parses an uploaded format file and reports whether it is valid.
// Nothing is registered.
func (api *API) ValidateFormatHandler(c *gin.Context) {
	fileName, data, ok := readUpload(c)
	if !ok {
		return
	}
	if !config.ValidFormatFileName(fileName) {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest,
			"format file name must end in .yaml, .yml or .json")
		return
	}
	f, err := config.LoadFormat(bytes.NewReader(data), config.EncodingForFile(fileName))
	if err != nil {
		SendEngineError(c, "format validation", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "format": summarizeFormat(f)})
}

// UploadUserFormatHandler registers an uploaded format file for a user
func (api *API) UploadUserFormatHandler(c *gin.Context) {
	user := c.Param("user")
	if result := ValidateUserName(user); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	fileName, data, ok := readUpload(c)
	if !ok {
		return
	}

	name, err := api.engine.AddUserFormat(user, fileName, data)
	if err != nil {
		SendEngineError(c, "format upload", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Format '" + name + "' registered",
		"format":  name,
	})
}

// DeleteUserFormatHandler removes a user format
func (api *API) DeleteUserFormatHandler(c *gin.Context) {
	user := c.Param("user")
	if result := ValidateUserName(user); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	identifier := c.Param("identifier")
	if err := api.engine.DeleteUserFormat(user, identifier); err != nil {
		SendEngineError(c, "format deletion", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Format '" + engine.UserFormatName(user, identifier) + "' deleted"})
}

// readUpload returns the file of the "data" multipart field. It writes an error response
// and returns false when the request carries no file.
func readUpload(c *gin.Context) (string, []byte, bool) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeMissingUploadFile,
			"expected a file in multipart field '"+uploadField+"'")
		return "", nil, false
	}
	file, err := header.Open()
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "failed to open upload: "+err.Error())
		return "", nil, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		sendReadError(c, err)
		return "", nil, false
	}
	return filepath.Base(header.Filename), data, true
}

// sendReadError reports a failure reading a request body, distinguishing oversized bodies
func sendReadError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		SendError(c, http.StatusRequestEntityTooLarge, ErrorCodeRequestTooLarge, "request body too large")
		return
	}
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "failed to read request body: "+err.Error())
}
