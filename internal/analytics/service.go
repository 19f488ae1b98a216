package analytics

import (
	"errors"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gcbaptista/go-corpus-engine/internal/persistence"
	"github.com/gcbaptista/go-corpus-engine/model"
)

const (
	maxEventsToKeep    = 10000 // Oldest events are dropped beyond this
	popularPatternsTop = 5
)

// IndexCatalog is the view of the engine the dashboard needs
type IndexCatalog interface {
	ListIndexes() []string
	DocumentCount(indexName string) int
}

// Service records search events and summarizes them
type Service struct {
	mutex        sync.RWMutex
	events       []model.SearchEvent
	catalog      IndexCatalog
	dataFilePath string // Empty keeps events in memory only
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger of the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates an analytics service. Events persisted at dataFile by an earlier Flush
// are loaded; a missing file starts empty.
func NewService(catalog IndexCatalog, dataFile string, opts ...Option) *Service {
	s := &Service{
		events:       make([]model.SearchEvent, 0),
		catalog:      catalog,
		dataFilePath: dataFile,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if dataFile != "" {
		if err := persistence.LoadGob(dataFile, &s.events); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to load analytics data", "path", dataFile, "error", err)
			s.events = make([]model.SearchEvent, 0)
		}
	}
	return s
}

// TrackSearchEvent records a search. A zero Timestamp is set to the current time.
func (s *Service) TrackSearchEvent(event model.SearchEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.events = append(s.events, event)
	if len(s.events) > maxEventsToKeep {
		s.events = s.events[len(s.events)-maxEventsToKeep:]
	}
}

// EventCount returns the number of retained events
func (s *Service) EventCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.events)
}

// Flush writes the retained events to the data file
func (s *Service) Flush() error {
	if s.dataFilePath == "" {
		return nil
	}
	s.mutex.RLock()
	events := make([]model.SearchEvent, len(s.events))
	copy(events, s.events)
	s.mutex.RUnlock()

	return persistence.SaveGob(s.dataFilePath, events)
}

// GetDashboardData summarizes the last 24 hours of searches
func (s *Service) GetDashboardData() model.AnalyticsDashboard {
	s.mutex.RLock()
	now := s.now()
	last24h := filterEventsByTimeRange(s.events, now.Add(-24*time.Hour), now)
	previous24h := filterEventsByTimeRange(s.events, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	s.mutex.RUnlock()

	indexes := s.catalog.ListIndexes()
	dashboard := model.AnalyticsDashboard{
		TotalSearches:            len(last24h),
		SearchesChangePercent:    calculateChangePercent(len(last24h), len(previous24h)),
		AvgResponseTime:          calculateAvgResponseTime(last24h),
		ActiveIndexes:            len(indexes),
		PopularPatterns:          popularPatterns(last24h),
		IndexUsage:               s.indexUsage(indexes, last24h),
		ResultTypes:              make(map[string]int),
		ResponseTimeDistribution: responseTimeDistribution(last24h),
		SystemHealth:             systemHealth(),
	}
	for _, usage := range dashboard.IndexUsage {
		dashboard.TotalDocuments += usage.DocumentCount
	}
	for _, event := range last24h {
		if event.Failed {
			dashboard.FailedSearches++
			continue
		}
		dashboard.ResultTypes[event.ResultType]++
	}
	return dashboard
}

// filterEventsByTimeRange returns the events in (start, end]
func filterEventsByTimeRange(events []model.SearchEvent, start, end time.Time) []model.SearchEvent {
	var filtered []model.SearchEvent
	for _, event := range events {
		if event.Timestamp.After(start) && !event.Timestamp.After(end) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func calculateChangePercent(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(current-previous) / float64(previous) * 100.0
}

// calculateAvgResponseTime returns the mean response time in milliseconds
func calculateAvgResponseTime(events []model.SearchEvent) int64 {
	if len(events) == 0 {
		return 0
	}
	var total time.Duration
	for _, event := range events {
		total += event.ResponseTime
	}
	return (total / time.Duration(len(events))).Milliseconds()
}

// popularPatterns returns the most searched patterns, ties broken alphabetically
func popularPatterns(events []model.SearchEvent) []model.PopularPattern {
	counts := make(map[string]int)
	for _, event := range events {
		if event.Pattern != "" {
			counts[event.Pattern]++
		}
	}

	popular := make([]model.PopularPattern, 0, len(counts))
	for pattern, count := range counts {
		popular = append(popular, model.PopularPattern{Pattern: pattern, SearchCount: count})
	}
	sort.Slice(popular, func(i, j int) bool {
		if popular[i].SearchCount != popular[j].SearchCount {
			return popular[i].SearchCount > popular[j].SearchCount
		}
		return popular[i].Pattern < popular[j].Pattern
	})
	if len(popular) > popularPatternsTop {
		popular = popular[:popularPatternsTop]
	}
	return popular
}

func (s *Service) indexUsage(indexes []string, events []model.SearchEvent) []model.IndexUsage {
	searchCounts := make(map[string]int)
	for _, event := range events {
		searchCounts[event.IndexName]++
	}

	usage := make([]model.IndexUsage, 0, len(indexes))
	for _, name := range indexes {
		usage = append(usage, model.IndexUsage{
			IndexName:     name,
			DocumentCount: s.catalog.DocumentCount(name),
			SearchCount:   searchCounts[name],
		})
	}
	return usage
}

func responseTimeDistribution(events []model.SearchEvent) model.ResponseTimeDistribution {
	dist := model.ResponseTimeDistribution{}
	total := len(events)
	if total == 0 {
		return dist
	}

	for _, event := range events {
		ms := event.ResponseTime.Milliseconds()
		switch {
		case ms < 25:
			dist.Bucket0To25ms++
		case ms < 100:
			dist.Bucket25To100ms++
		case ms < 1000:
			dist.Bucket100To1000ms++
		default:
			dist.Bucket1000msPlus++
		}
	}

	dist.Percentage0To25 = float64(dist.Bucket0To25ms) / float64(total) * 100
	dist.Percentage25To100 = float64(dist.Bucket25To100ms) / float64(total) * 100
	dist.Percentage100To1s = float64(dist.Bucket100To1000ms) / float64(total) * 100
	dist.Percentage1sPlus = float64(dist.Bucket1000msPlus) / float64(total) * 100
	return dist
}

func systemHealth() model.SystemHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	health := model.SystemHealth{
		HeapAllocMB: float64(m.HeapAlloc) / (1 << 20),
		Goroutines:  runtime.NumGoroutine(),
	}
	if m.HeapSys > 0 {
		health.MemoryUsage = float64(m.HeapInuse) / float64(m.HeapSys) * 100
	}
	return health
}
