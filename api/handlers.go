package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-corpus-engine/internal/engine"
)

// API holds dependencies for API handlers, primarily the corpus engine.
type API struct {
	engine *engine.Engine
}

// NewAPI creates a new API handler structure.
func NewAPI(eng *engine.Engine) *API {
	return &API{engine: eng}
}

// SetupRoutes defines all the API routes of the corpus engine.
func SetupRoutes(router *gin.Engine, eng *engine.Engine) {
	apiHandler := NewAPI(eng)

	// Health check route
	router.GET("/health", apiHandler.HealthCheckHandler)

	// Search analytics dashboard
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)

	// Format routes
	formatRoutes := router.Group("/formats")
	{
		formatRoutes.GET("", apiHandler.ListFormatsHandler)              // List registered formats
		formatRoutes.GET("/:formatName", apiHandler.GetFormatHandler)    // Get a format definition
		formatRoutes.POST("/_validate", apiHandler.ValidateFormatHandler) // Check a format file without registering it
	}

	// User format routes
	userRoutes := router.Group("/users/:user/formats")
	{
		userRoutes.GET("", apiHandler.ListUserFormatsHandler)
		userRoutes.POST("", apiHandler.UploadUserFormatHandler)
		userRoutes.DELETE("/:identifier", apiHandler.DeleteUserFormatHandler)
	}

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)         // Get job status by ID
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler) // Get job performance metrics
	}

	// Index management routes
	indexRoutes := router.Group("/indexes")
	{
		indexRoutes.POST("", apiHandler.CreateIndexHandler)                 // Create a new index
		indexRoutes.GET("", apiHandler.ListIndexesHandler)                  // List all indexes
		indexRoutes.GET("/:indexName", apiHandler.GetIndexHandler)          // Get index statistics
		indexRoutes.DELETE("/:indexName", apiHandler.DeleteIndexHandler)    // Delete an index
		indexRoutes.GET("/:indexName/jobs", apiHandler.ListJobsHandler)     // List jobs for an index
		indexRoutes.GET("/:indexName/tokens", apiHandler.TokenCountHandler) // Tokens per metadata value
		indexRoutes.GET("/:indexName/similar_terms", apiHandler.SimilarTermsHandler)

		// Document management routes per index
		docRoutes := indexRoutes.Group("/:indexName/documents")
		{
			docRoutes.PUT("", apiHandler.AddDocumentsHandler)           // Index an XML input
			docRoutes.GET("", apiHandler.GetDocumentsHandler)           // List document PIDs with pagination
			docRoutes.GET("/:pid", apiHandler.GetDocumentHandler)       // Get document info and markup
			docRoutes.DELETE("/:pid", apiHandler.DeleteDocumentHandler) // Delete a document
		}

		// Search route per index
		indexRoutes.POST("/:indexName/_search", apiHandler.SearchHandler)
	}
}

// HealthCheckHandler reports that the service is up
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "go-corpus-engine",
		"indexes":   len(api.engine.ListIndexes()),
		"timestamp": time.Now().UTC(),
	})
}
