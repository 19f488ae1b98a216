package analytics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gcbaptista/go-corpus-engine/model"
)

// MockIndexCatalog is a simple mock for testing
type MockIndexCatalog struct {
	documents map[string]int
	indexes   []string
}

func (m *MockIndexCatalog) ListIndexes() []string              { return m.indexes }
func (m *MockIndexCatalog) DocumentCount(indexName string) int { return m.documents[indexName] }

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(catalog IndexCatalog, dataFile string) *Service {
	s := NewService(catalog, dataFile)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestAnalyticsService_TrackSearchEvent(t *testing.T) {
	service := newTestService(&MockIndexCatalog{indexes: []string{"corpus"}}, "")

	event := model.SearchEvent{
		IndexName:    "corpus",
		Pattern:      `term(word,"cat")`,
		ResultType:   "hits",
		ResponseTime: 50 * time.Millisecond,
		ResultCount:  10,
	}
	service.TrackSearchEvent(event)

	if len(service.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(service.events))
	}

	stored := service.events[0]
	if stored.Pattern != event.Pattern {
		t.Errorf("Expected Pattern %s, got %s", event.Pattern, stored.Pattern)
	}
	if !stored.Timestamp.Equal(fixedNow) {
		t.Errorf("Expected Timestamp %v, got %v", fixedNow, stored.Timestamp)
	}
}

func TestAnalyticsService_KeepsLatestEvents(t *testing.T) {
	service := newTestService(&MockIndexCatalog{}, "")

	for i := 0; i < maxEventsToKeep+5; i++ {
		service.TrackSearchEvent(model.SearchEvent{IndexName: "corpus", ResultCount: i})
	}

	if got := service.EventCount(); got != maxEventsToKeep {
		t.Fatalf("Expected %d events, got %d", maxEventsToKeep, got)
	}
	if first := service.events[0].ResultCount; first != 5 {
		t.Errorf("Expected the oldest 5 events to be dropped, first event has count %d", first)
	}
}

func TestAnalyticsService_GetDashboardData(t *testing.T) {
	catalog := &MockIndexCatalog{
		indexes:   []string{"corpus1", "corpus2"},
		documents: map[string]int{"corpus1": 3, "corpus2": 7},
	}
	service := newTestService(catalog, "")

	events := []model.SearchEvent{
		{IndexName: "corpus1", Pattern: "cat", ResultType: "hits", ResponseTime: 10 * time.Millisecond, Timestamp: fixedNow.Add(-1 * time.Hour)},
		{IndexName: "corpus1", Pattern: "cat", ResultType: "count", ResponseTime: 30 * time.Millisecond, Timestamp: fixedNow.Add(-2 * time.Hour)},
		{IndexName: "corpus2", Pattern: "dog", ResultType: "groups", ResponseTime: 200 * time.Millisecond, Timestamp: fixedNow.Add(-3 * time.Hour)},
		{IndexName: "corpus2", Pattern: "dog", Failed: true, ResponseTime: 2 * time.Second, Timestamp: fixedNow.Add(-4 * time.Hour)},
		// Previous day
		{IndexName: "corpus1", Pattern: "old", ResultType: "hits", Timestamp: fixedNow.Add(-30 * time.Hour)},
		{IndexName: "corpus1", Pattern: "old", ResultType: "hits", Timestamp: fixedNow.Add(-40 * time.Hour)},
		// Too old to count at all
		{IndexName: "corpus1", Pattern: "ancient", ResultType: "hits", Timestamp: fixedNow.Add(-72 * time.Hour)},
	}
	for _, event := range events {
		service.TrackSearchEvent(event)
	}

	dashboard := service.GetDashboardData()

	if dashboard.TotalSearches != 4 {
		t.Errorf("Expected 4 searches, got %d", dashboard.TotalSearches)
	}
	if dashboard.SearchesChangePercent != 100.0 {
		t.Errorf("Expected change of 100%%, got %v", dashboard.SearchesChangePercent)
	}
	if dashboard.FailedSearches != 1 {
		t.Errorf("Expected 1 failed search, got %d", dashboard.FailedSearches)
	}
	if dashboard.AvgResponseTime != 560 {
		t.Errorf("Expected average of 560ms, got %d", dashboard.AvgResponseTime)
	}
	if dashboard.ActiveIndexes != 2 || dashboard.TotalDocuments != 10 {
		t.Errorf("Expected 2 indexes with 10 documents, got %d and %d", dashboard.ActiveIndexes, dashboard.TotalDocuments)
	}

	if len(dashboard.PopularPatterns) != 2 {
		t.Fatalf("Expected 2 popular patterns, got %v", dashboard.PopularPatterns)
	}
	if dashboard.PopularPatterns[0].Pattern != "cat" || dashboard.PopularPatterns[0].SearchCount != 2 {
		t.Errorf("Expected 'cat' searched twice first, got %+v", dashboard.PopularPatterns[0])
	}

	if len(dashboard.IndexUsage) != 2 || dashboard.IndexUsage[1].SearchCount != 2 || dashboard.IndexUsage[1].DocumentCount != 7 {
		t.Errorf("Unexpected index usage %+v", dashboard.IndexUsage)
	}

	wantTypes := map[string]int{"hits": 1, "count": 1, "groups": 1}
	for resultType, want := range wantTypes {
		if got := dashboard.ResultTypes[resultType]; got != want {
			t.Errorf("Expected %d %s results, got %d", want, resultType, got)
		}
	}

	dist := dashboard.ResponseTimeDistribution
	if dist.Bucket0To25ms != 1 || dist.Bucket25To100ms != 1 || dist.Bucket100To1000ms != 1 || dist.Bucket1000msPlus != 1 {
		t.Errorf("Unexpected distribution %+v", dist)
	}
	if dist.Percentage0To25 != 25.0 {
		t.Errorf("Expected 25%% of searches under 25ms, got %v", dist.Percentage0To25)
	}

	if dashboard.SystemHealth.Goroutines == 0 {
		t.Error("Expected the goroutine count to be reported")
	}
}

func TestAnalyticsService_TopPatternsOnly(t *testing.T) {
	service := newTestService(&MockIndexCatalog{}, "")
	for _, pattern := range []string{"a", "b", "c", "d", "e", "f", "f"} {
		service.TrackSearchEvent(model.SearchEvent{Pattern: pattern})
	}

	popular := service.GetDashboardData().PopularPatterns
	if len(popular) != popularPatternsTop {
		t.Fatalf("Expected %d popular patterns, got %d", popularPatternsTop, len(popular))
	}
	if popular[0].Pattern != "f" || popular[1].Pattern != "a" {
		t.Errorf("Expected 'f' then 'a', got %+v", popular)
	}
}

func TestAnalyticsService_FlushAndReload(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "analytics.gob")
	catalog := &MockIndexCatalog{}

	service := newTestService(catalog, dataFile)
	service.TrackSearchEvent(model.SearchEvent{IndexName: "corpus", Pattern: "cat", ResultType: "hits"})
	service.TrackSearchEvent(model.SearchEvent{IndexName: "corpus", Pattern: "dog", ResultType: "count"})
	if err := service.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	reloaded := newTestService(catalog, dataFile)
	if got := reloaded.EventCount(); got != 2 {
		t.Fatalf("Expected 2 reloaded events, got %d", got)
	}
	if reloaded.events[1].Pattern != "dog" {
		t.Errorf("Expected second event pattern 'dog', got %s", reloaded.events[1].Pattern)
	}
}

func TestAnalyticsService_InMemoryFlush(t *testing.T) {
	service := newTestService(&MockIndexCatalog{}, "")
	service.TrackSearchEvent(model.SearchEvent{Pattern: "cat"})
	if err := service.Flush(); err != nil {
		t.Errorf("Expected in-memory flush to be a no-op, got %v", err)
	}
}
