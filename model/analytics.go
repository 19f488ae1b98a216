package model

import "time"

// SearchEvent records one executed search
type SearchEvent struct {
	IndexName    string        `json:"index_name"`
	Pattern      string        `json:"pattern"`     // Canonical form of the pattern
	ResultType   string        `json:"result_type"` // hits, groups, count or concordances
	ResponseTime time.Duration `json:"response_time"`
	ResultCount  int           `json:"result_count"` // Hits, groups or concordances returned
	Failed       bool          `json:"failed"`
	Timestamp    time.Time     `json:"timestamp"`
}

// AnalyticsDashboard summarizes the searches of the last 24 hours; SearchesChangePercent compares
// them with the 24 hours before.
type AnalyticsDashboard struct {
	TotalSearches            int                      `json:"total_searches"`
	SearchesChangePercent    float64                  `json:"searches_change_percent"`
	FailedSearches           int                      `json:"failed_searches"`
	AvgResponseTime          int64                    `json:"avg_response_time_ms"`
	TotalDocuments           int                      `json:"total_documents"`
	ActiveIndexes            int                      `json:"active_indexes"`
	PopularPatterns          []PopularPattern         `json:"popular_patterns"`
	IndexUsage               []IndexUsage             `json:"index_usage"`
	ResultTypes              map[string]int           `json:"result_types"`
	ResponseTimeDistribution ResponseTimeDistribution `json:"response_time_distribution"`
	SystemHealth             SystemHealth             `json:"system_health"`
}

// PopularPattern is a pattern with the number of times it was searched
type PopularPattern struct {
	Pattern     string `json:"pattern"`
	SearchCount int    `json:"search_count"`
}

// IndexUsage holds the search load of one index
type IndexUsage struct {
	IndexName     string `json:"index_name"`
	DocumentCount int    `json:"document_count"`
	SearchCount   int    `json:"search_count"`
}

// ResponseTimeDistribution buckets response times
type ResponseTimeDistribution struct {
	Bucket0To25ms     int     `json:"bucket_0_25ms"`
	Bucket25To100ms   int     `json:"bucket_25_100ms"`
	Bucket100To1000ms int     `json:"bucket_100_1000ms"`
	Bucket1000msPlus  int     `json:"bucket_1000ms_plus"`
	Percentage0To25   float64 `json:"percentage_0_25"`
	Percentage25To100 float64 `json:"percentage_25_100"`
	Percentage100To1s float64 `json:"percentage_100_1000"`
	Percentage1sPlus  float64 `json:"percentage_1000_plus"`
}

// SystemHealth reports process resource usage
type SystemHealth struct {
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	MemoryUsage float64 `json:"memory_usage"` // Heap in use as a percentage of memory obtained from the OS
	Goroutines  int     `json:"goroutines"`
}
