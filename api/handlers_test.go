package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/internal/engine"
)

const testFormatYAML = `
displayName: Simple
documentPath: //doc
annotatedFields:
  - name: contents
    wordPath: .//w
    annotations:
      - name: word
        valuePath: .
      - name: lemma
        valuePath: "@lemma"
metadataFields:
  - name: pid
    valuePath: pid
  - name: year
    valuePath: "@year"
`

const testInput = `<corpus>
  <doc year="1900"><pid>A1</pid><w lemma="the">The</w><w lemma="cat">Cats</w><w lemma="sit">sat</w></doc>
  <doc year="2000"><pid>A2</pid><w lemma="a">A</w><w lemma="cat">cat</w><w lemma="sit">sat</w><w lemma="down">down</w></doc>
</corpus>`

func setupTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	formatDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(formatDir, "simple.blf.yaml"), []byte(testFormatYAML), 0600))

	settings := config.DefaultEngineSettings()
	settings.InMemory = true
	settings.FormatDirs = []string{formatDir}
	settings.JobWorkers = 2

	eng, err := engine.New(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func setupTestRouter(eng *engine.Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	SetupRoutes(router, eng)
	return router
}

// setupIndexedRouter returns a router over an engine with index "corpus" holding the test input
func setupIndexedRouter(t *testing.T) (*engine.Engine, *gin.Engine) {
	t.Helper()
	eng := setupTestEngine(t)
	require.NoError(t, eng.CreateIndex("corpus", "simple"))
	router := setupTestRouter(eng)
	w := perform(router, http.MethodPut, "/indexes/corpus/documents?wait=true", strings.NewReader(testInput), "application/xml")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return eng, router
}

func perform(router *gin.Engine, method, path string, body *strings.Reader, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func performJSON(router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(payload)
	return perform(router, method, path, strings.NewReader(string(data)), "application/json")
}

func performUpload(t *testing.T, router *gin.Engine, path, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(uploadField, fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func waitForJobStatus(t *testing.T, router *gin.Engine, jobID string) string {
	t.Helper()
	var status string
	require.Eventually(t, func() bool {
		w := perform(router, http.MethodGet, "/jobs/"+jobID, nil, "")
		if w.Code != http.StatusOK {
			return false
		}
		var job map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
			return false
		}
		status, _ = job["status"].(string)
		return status != "pending" && status != "running"
	}, 5*time.Second, 10*time.Millisecond)
	return status
}

func TestHealthCheckHandler(t *testing.T) {
	router := setupTestRouter(setupTestEngine(t))

	w := perform(router, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "go-corpus-engine", body["service"])
}

func TestCreateIndexHandler(t *testing.T) {
	eng := setupTestEngine(t)
	router := setupTestRouter(eng)
	require.NoError(t, eng.CreateIndex("existing", "simple"))

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{
			name:           "valid index creation",
			requestBody:    CreateIndexRequest{Name: "test_index_create", Format: "simple"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeInvalidJSON,
		},
		{
			name:           "missing index name",
			requestBody:    CreateIndexRequest{Format: "simple"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "invalid index name",
			requestBody:    CreateIndexRequest{Name: "no spaces", Format: "simple"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "unknown format",
			requestBody:    CreateIndexRequest{Name: "other", Format: "tei"},
			expectedStatus: http.StatusNotFound,
			expectedCode:   ErrorCodeFormatNotFound,
		},
		{
			name:           "duplicate index",
			requestBody:    CreateIndexRequest{Name: "existing", Format: "simple"},
			expectedStatus: http.StatusConflict,
			expectedCode:   ErrorCodeIndexExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(router, http.MethodPost, "/indexes", tt.requestBody)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, string(tt.expectedCode), decode(t, w)["code"])
			}
		})
	}

	assert.Equal(t, []string{"existing", "test_index_create"}, eng.ListIndexes())
}

func TestIndexHandlers(t *testing.T) {
	_, router := setupIndexedRouter(t)

	w := perform(router, http.MethodGet, "/indexes", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = perform(router, http.MethodGet, "/indexes/corpus", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)
	assert.Equal(t, float64(2), stats["documents"])
	assert.Equal(t, "contents", stats["main_field"])

	w = perform(router, http.MethodGet, "/indexes/corpus/tokens?metadata=year", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"1900": float64(3), "2000": float64(4)}, decode(t, w)["tokens"])

	w = perform(router, http.MethodGet, "/indexes/corpus/tokens", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodGet, "/indexes/corpus/tokens?metadata=year&field=notes", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodGet, "/indexes/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(ErrorCodeIndexNotFound), decode(t, w)["code"])

	w = perform(router, http.MethodDelete, "/indexes/corpus", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = perform(router, http.MethodDelete, "/indexes/corpus", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimilarTermsHandler(t *testing.T) {
	_, router := setupIndexedRouter(t)

	w := perform(router, http.MethodGet, "/indexes/corpus/similar_terms?term=CAT&max_distance=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, []any{
		map[string]any{"term": "cats", "distance": float64(1), "frequency": float64(1)},
		map[string]any{"term": "sat", "distance": float64(1), "frequency": float64(2)},
	}, body["suggestions"])

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"missing term", "", http.StatusBadRequest},
		{"distance too large", "term=cat&max_distance=9", http.StatusBadRequest},
		{"bad sensitivity", "term=cat&sensitivity=loud", http.StatusBadRequest},
		{"unknown annotation", "term=cat&annotation=pos", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodGet, "/indexes/corpus/similar_terms?"+tt.query, nil, "")
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w = perform(router, http.MethodGet, "/indexes/missing/similar_terms?term=cat", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddDocumentsHandler(t *testing.T) {
	eng := setupTestEngine(t)
	require.NoError(t, eng.CreateIndex("corpus", "simple"))
	router := setupTestRouter(eng)

	t.Run("async indexing", func(t *testing.T) {
		w := perform(router, http.MethodPut, "/indexes/corpus/documents", strings.NewReader(testInput), "application/xml")
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		jobID, _ := decode(t, w)["job_id"].(string)
		require.NotEmpty(t, jobID)
		assert.Equal(t, "completed", waitForJobStatus(t, router, jobID))

		w = perform(router, http.MethodGet, "/indexes/corpus/jobs?status=completed", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), decode(t, w)["total"])
	})

	t.Run("multipart upload", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile(uploadField, "corpus.xml")
		require.NoError(t, err)
		_, _ = part.Write([]byte(testInput))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPut, "/indexes/corpus/documents?wait=true", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result, _ := decode(t, w)["result"].(map[string]any)
		assert.Equal(t, float64(2), result["indexed"])
	})

	tests := []struct {
		name           string
		path           string
		body           string
		expectedStatus int
	}{
		{"empty body", "/indexes/corpus/documents", "", http.StatusBadRequest},
		{"unknown index", "/indexes/missing/documents", testInput, http.StatusNotFound},
		{"malformed input", "/indexes/corpus/documents?wait=true", "<corpus><doc></corpus>", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodPut, tt.path, strings.NewReader(tt.body), "application/xml")
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestDocumentHandlers(t *testing.T) {
	_, router := setupIndexedRouter(t)

	w := perform(router, http.MethodGet, "/indexes/corpus/documents?limit=1&offset=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, []any{"A2"}, page["documents"])
	assert.Equal(t, float64(2), page["total"])

	w = perform(router, http.MethodGet, "/indexes/corpus/documents?limit=zero", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodGet, "/indexes/corpus/documents/A1?markup=true", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode(t, w)
	info, _ := doc["document"].(map[string]any)
	assert.Equal(t, "A1", info["pid"])
	assert.Contains(t, doc["markup"], "Cats")

	w = perform(router, http.MethodGet, "/indexes/corpus/documents/A9", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(ErrorCodeDocumentNotFound), decode(t, w)["code"])

	w = perform(router, http.MethodDelete, "/indexes/corpus/documents/A1", nil, "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	jobID, _ := decode(t, w)["job_id"].(string)
	assert.Equal(t, "completed", waitForJobStatus(t, router, jobID))

	w = perform(router, http.MethodGet, "/indexes/corpus/documents", nil, "")
	assert.Equal(t, []any{"A2"}, decode(t, w)["documents"])
}

func TestSearchHandler(t *testing.T) {
	_, router := setupIndexedRouter(t)

	tests := []struct {
		name           string
		requestBody    string
		expectedStatus int
		check          func(t *testing.T, body map[string]any)
	}{
		{
			name:           "simple query",
			requestBody:    `{"query": "cats"}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "hits", body["type"])
				assert.Equal(t, []any{map[string]any{"pid": "A1", "start": float64(1), "end": float64(2)}}, body["hits"])
				assert.NotEmpty(t, body["query_id"])
				info, _ := body["query_info"].(map[string]any)
				assert.Equal(t, "corpus", info["index"])
			},
		},
		{
			name:           "sensitive query misses different case",
			requestBody:    `{"query": "cats", "sensitivity": "sensitive"}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Empty(t, body["hits"])
			},
		},
		{
			name:           "structured pattern with window",
			requestBody:    `{"pattern": {"term": {"annotation": "lemma", "value": "cat"}}, "sort": "doc:year", "reverse": true, "first": 0, "number": 1}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				hits, _ := body["hits"].([]any)
				require.Len(t, hits, 1)
				assert.Equal(t, "A2", hits[0].(map[string]any)["pid"])
				window, _ := body["window"].(map[string]any)
				assert.Equal(t, true, window["has_next"])
			},
		},
		{
			name:           "count",
			requestBody:    `{"pattern": {"term": {"annotation": "lemma", "value": "sit"}}, "count": true}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				count, _ := body["count"].(map[string]any)
				assert.Equal(t, float64(2), count["hits"])
				assert.Equal(t, float64(2), count["docs"])
			},
		},
		{
			name:           "group by metadata",
			requestBody:    `{"query": "sat", "group": "doc:year"}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "doc:year", body["property"])
				assert.Len(t, body["groups"], 2)
			},
		},
		{
			name:           "concordances",
			requestBody:    `{"query": "cat", "concordances": true, "settings": {"context_size": 1}}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				concs, _ := body["concordances"].([]any)
				require.Len(t, concs, 1)
				conc := concs[0].(map[string]any)
				assert.Equal(t, "A2", conc["pid"])
				assert.Equal(t, `<w lemma="a">A</w>`, conc["left"])
				assert.Equal(t, `<w lemma="cat">cat</w>`, conc["match"])
				assert.Equal(t, `<w lemma="sit">sat</w>`, conc["right"])
			},
		},
		{
			name:           "pattern and query",
			requestBody:    `{"query": "cat", "pattern": {"term": {"value": "cat"}}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "no pattern",
			requestBody:    `{}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown annotation",
			requestBody:    `{"pattern": {"term": {"annotation": "gloss", "value": "cat"}}}`,
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, string(ErrorCodeInvalidQuery), body["code"])
			},
		},
		{
			name:           "unknown sensitivity",
			requestBody:    `{"query": "cat", "sensitivity": "fuzzy"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid hit property",
			requestBody:    `{"query": "cat", "sort": "title"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid settings",
			requestBody:    `{"query": "cat", "concordances": true, "settings": {"concordance_type": "kwic"}}`,
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, string(ErrorCodeValidationFailed), body["code"])
			},
		},
		{
			name:           "group with count",
			requestBody:    `{"query": "cat", "group": "doc", "count": true}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodPost, "/indexes/corpus/_search", strings.NewReader(tt.requestBody), "application/json")
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.check != nil {
				tt.check(t, decode(t, w))
			}
		})
	}
}

func TestSearchHandler_Async(t *testing.T) {
	_, router := setupIndexedRouter(t)

	w := perform(router, http.MethodPost, "/indexes/corpus/_search", strings.NewReader(`{"query": "sat", "async": true}`), "application/json")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	jobID, _ := decode(t, w)["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "completed", waitForJobStatus(t, router, jobID))

	w = perform(router, http.MethodPost, "/indexes/missing/_search", strings.NewReader(`{"query": "sat"}`), "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFormatHandlers(t *testing.T) {
	router := setupTestRouter(setupTestEngine(t))

	w := perform(router, http.MethodGet, "/formats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	formats, _ := decode(t, w)["formats"].([]any)
	require.Len(t, formats, 1)
	assert.Equal(t, "simple", formats[0].(map[string]any)["name"])
	assert.Equal(t, "Simple", formats[0].(map[string]any)["display_name"])

	w = perform(router, http.MethodGet, "/formats/simple", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "simple", decode(t, w)["name"])

	w = perform(router, http.MethodGet, "/formats/simple?encoding=yaml", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "documentPath: //doc")

	w = perform(router, http.MethodGet, "/formats/simple?encoding=xml", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodGet, "/formats/tei", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performUpload(t, router, "/formats/_validate", "check.blf.yaml", testFormatYAML)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["valid"])

	w = performUpload(t, router, "/formats/_validate", "check.blf.yaml", "documentPath: [")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(ErrorCodeInvalidFormat), decode(t, w)["code"])
}

func TestUserFormatHandlers(t *testing.T) {
	eng := setupTestEngine(t)
	router := setupTestRouter(eng)

	w := performUpload(t, router, "/users/jan/formats", "mine.blf.yaml", testFormatYAML)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "jan:mine", decode(t, w)["format"])

	w = perform(router, http.MethodGet, "/users/jan/formats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = perform(router, http.MethodGet, "/users/piet/formats", nil, "")
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = performJSON(router, http.MethodPost, "/indexes", CreateIndexRequest{Name: "private", Format: "jan:mine"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = performUpload(t, router, "/users/jan/formats", "notes.txt", testFormatYAML)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodPost, "/users/jan/formats", strings.NewReader("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(ErrorCodeMissingUploadFile), decode(t, w)["code"])

	w = perform(router, http.MethodDelete, "/users/jan/formats/mine", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = perform(router, http.MethodDelete, "/users/jan/formats/mine", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(router, http.MethodGet, "/users/.hidden/formats", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobHandlers(t *testing.T) {
	_, router := setupIndexedRouter(t)

	w := perform(router, http.MethodGet, "/jobs/does-not-exist", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, string(ErrorCodeJobNotFound), body["code"])
	assert.NotEmpty(t, body["request_id"])

	w = perform(router, http.MethodGet, "/jobs/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	metrics := decode(t, w)
	assert.Contains(t, metrics, "metrics")
	assert.Contains(t, metrics, "success_rate")
	assert.Contains(t, metrics, "current_workload")
}

func TestAnalyticsHandler(t *testing.T) {
	_, router := setupIndexedRouter(t)

	for _, query := range []string{"sat", "sat", "cat"} {
		w := perform(router, http.MethodPost, "/indexes/corpus/_search", strings.NewReader(`{"query": "`+query+`", "count": true}`), "application/json")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := perform(router, http.MethodGet, "/analytics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["total_searches"])
	assert.Equal(t, float64(2), body["total_documents"])
	assert.Equal(t, float64(1), body["active_indexes"])
	assert.Equal(t, map[string]any{"count": float64(3)}, body["result_types"])

	popular, ok := body["popular_patterns"].([]any)
	require.True(t, ok)
	require.Len(t, popular, 2)
	assert.Equal(t, float64(2), popular[0].(map[string]any)["search_count"])
}

func TestMiddleware(t *testing.T) {
	eng := setupTestEngine(t)
	require.NoError(t, eng.CreateIndex("corpus", "simple"))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware(), CORSMiddleware(), RequestSizeLimitMiddleware(64), LoggingMiddleware(nil))
	SetupRoutes(router, eng)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get(requestIDHeader))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(router, http.MethodOptions, "/indexes", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = perform(router, http.MethodPut, "/indexes/corpus/documents?wait=true", strings.NewReader(testInput), "application/xml")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, string(ErrorCodeRequestTooLarge), decode(t, w)["code"])
}
