package jobs

import (
	"sync"
	"time"

	"github.com/gcbaptista/go-corpus-engine/model"
)

// recentWindow is the number of execution times kept per job type for the rolling average
const recentWindow = 100

// TypeMetrics holds the counters of one job type
type TypeMetrics struct {
	Created              int64         `json:"created"`
	Completed            int64         `json:"completed"`
	Failed               int64         `json:"failed"`
	AverageExecutionTime time.Duration `json:"average_execution_time_ns"` // Over the most recent finished jobs
}

// JobMetricsData is a point in time copy of the job metrics
type JobMetricsData struct {
	JobsCreated          int64                         `json:"jobs_created"`
	JobsCompleted        int64                         `json:"jobs_completed"`
	JobsFailed           int64                         `json:"jobs_failed"`
	TotalExecutionTime   time.Duration                 `json:"total_execution_time_ns"`
	AverageExecutionTime time.Duration                 `json:"average_execution_time_ns"`
	ByType               map[model.JobType]TypeMetrics `json:"by_type"`
	JobsByStatus         map[model.JobStatus]int64     `json:"jobs_by_status"`
	LastUpdated          time.Time                     `json:"last_updated"`
}

type typeCounters struct {
	created, completed, failed int64
	recent                     []time.Duration
}

func (c *typeCounters) finished(executionTime time.Duration) {
	c.recent = append(c.recent, executionTime)
	if len(c.recent) > recentWindow {
		c.recent = c.recent[1:]
	}
}

func (c *typeCounters) average() time.Duration {
	if len(c.recent) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range c.recent {
		total += d
	}
	return total / time.Duration(len(c.recent))
}

// JobMetrics collects counters and execution times of the jobs of a manager
type JobMetrics struct {
	mu            sync.RWMutex
	created       int64
	completed     int64
	failed        int64
	totalExecTime time.Duration
	byType        map[model.JobType]*typeCounters
	byStatus      map[model.JobStatus]int64
	lastUpdated   time.Time
}

// NewJobMetrics creates an empty metrics collector
func NewJobMetrics() *JobMetrics {
	return &JobMetrics{
		byType:      make(map[model.JobType]*typeCounters),
		byStatus:    make(map[model.JobStatus]int64),
		lastUpdated: time.Now(),
	}
}

// counters returns the counters of a job type. The caller must hold the write lock.
func (m *JobMetrics) counters(jobType model.JobType) *typeCounters {
	c, ok := m.byType[jobType]
	if !ok {
		c = &typeCounters{}
		m.byType[jobType] = c
	}
	return c
}

// RecordJobCreated counts a new pending job
func (m *JobMetrics) RecordJobCreated(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.created++
	m.counters(jobType).created++
	m.byStatus[model.JobStatusPending]++
	m.lastUpdated = time.Now()
}

// RecordJobStatusChange moves one job between status counters
func (m *JobMetrics) RecordJobStatusChange(oldStatus, newStatus model.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldStatus == newStatus {
		return
	}
	if oldStatus != "" && m.byStatus[oldStatus] > 0 {
		m.byStatus[oldStatus]--
	}
	m.byStatus[newStatus]++
	m.lastUpdated = time.Now()
}

// RecordJobCompleted records a successful execution
func (m *JobMetrics) RecordJobCompleted(jobType model.JobType, executionTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.completed++
	m.totalExecTime += executionTime
	c := m.counters(jobType)
	c.completed++
	c.finished(executionTime)
	m.lastUpdated = time.Now()
}

// RecordJobFailed records a failed execution. Failed jobs count towards the per-type
// average but not towards the total execution time.
func (m *JobMetrics) RecordJobFailed(jobType model.JobType, executionTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failed++
	c := m.counters(jobType)
	c.failed++
	c.finished(executionTime)
	m.lastUpdated = time.Now()
}

// GetMetrics returns a copy of the current metrics
func (m *JobMetrics) GetMetrics() JobMetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data := JobMetricsData{
		JobsCreated:        m.created,
		JobsCompleted:      m.completed,
		JobsFailed:         m.failed,
		TotalExecutionTime: m.totalExecTime,
		ByType:             make(map[model.JobType]TypeMetrics, len(m.byType)),
		JobsByStatus:       make(map[model.JobStatus]int64, len(m.byStatus)),
		LastUpdated:        m.lastUpdated,
	}
	if m.completed > 0 {
		data.AverageExecutionTime = m.totalExecTime / time.Duration(m.completed)
	}
	for jobType, c := range m.byType {
		data.ByType[jobType] = TypeMetrics{
			Created:              c.created,
			Completed:            c.completed,
			Failed:               c.failed,
			AverageExecutionTime: c.average(),
		}
	}
	for status, n := range m.byStatus {
		data.JobsByStatus[status] = n
	}
	return data
}

// GetSuccessRate returns the share of finished jobs that completed, 1.0 before any finished
func (m *JobMetrics) GetSuccessRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	finished := m.completed + m.failed
	if finished == 0 {
		return 1.0
	}
	return float64(m.completed) / float64(finished)
}

// GetCurrentWorkload returns the number of pending and running jobs
func (m *JobMetrics) GetCurrentWorkload() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.byStatus[model.JobStatusPending] + m.byStatus[model.JobStatusRunning]
}
