package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/model"
)

// Manager handles background job execution and tracking
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*model.Job
	workers  chan struct{} // Limits concurrent jobs
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	metrics  *JobMetrics
	logger   *slog.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for job lifecycle events
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new job manager with specified worker count
func NewManager(maxWorkers int, opts ...Option) *Manager {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	m := &Manager{
		jobs:     make(map[string]*model.Job),
		workers:  make(chan struct{}, maxWorkers),
		stopChan: make(chan struct{}),
		metrics:  NewJobMetrics(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins the job manager and starts background cleanup
func (m *Manager) Start() {
	m.logger.Info("job manager started", "max_workers", cap(m.workers))

	// Start cleanup routine
	go m.cleanupRoutine()
}

// Stop gracefully shuts down the job manager. Jobs still waiting for a worker slot are cancelled.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
	m.logger.Info("job manager stopped")
}

// CreateJob creates a new job and returns its ID
func (m *Manager) CreateJob(jobType model.JobType, indexName string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		IndexName: indexName,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	m.jobs[job.ID] = job
	m.metrics.RecordJobCreated(jobType)
	m.logger.Debug("created job", "job_id", job.ID, "type", job.Type, "index", job.IndexName)
	return job.ID
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns all jobs for a specific index, optionally filtered by status
func (m *Manager) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Job
	for _, job := range m.jobs {
		if job.IndexName == indexName {
			if status == nil || job.Status == *status {
				result = append(result, copyJob(job))
			}
		}
	}
	return result
}

func copyJob(job *model.Job) *model.Job {
	jobCopy := *job
	if job.Progress != nil {
		progressCopy := *job.Progress
		jobCopy.Progress = &progressCopy
	}
	if job.Metadata != nil {
		jobCopy.Metadata = make(map[string]string, len(job.Metadata))
		for k, v := range job.Metadata {
			jobCopy.Metadata[k] = v
		}
	}
	return &jobCopy
}

// ExecuteJob runs a job function in a goroutine with proper tracking.
// It returns immediately; the job waits for a free worker slot in its own goroutine.
func (m *Manager) ExecuteJob(jobID string, jobFunc func(ctx context.Context, job *model.Job) error) error {
	return m.execute(jobID, jobFunc, nil)
}

func (m *Manager) execute(jobID string, jobFunc func(ctx context.Context, job *model.Job) error, onCancel func(error)) error {
	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return errors.NewJobNotFoundError(jobID)
	}

	if job.Status != model.JobStatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, job.Status)
	}
	jobType := job.Type
	m.mu.Unlock()

	select {
	case <-m.stopChan:
		m.cancelJob(jobID, onCancel)
		return fmt.Errorf("job manager is shutting down: %w", errors.ErrJobCancelled)
	default:
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		// Acquire worker slot
		select {
		case m.workers <- struct{}{}:
		case <-m.stopChan:
			m.cancelJob(jobID, onCancel)
			return
		}
		defer func() {
			<-m.workers // Release worker slot
		}()

		m.markRunning(jobID)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		startTime := time.Now()

		// Execute the job function
		err := jobFunc(ctx, job)

		executionTime := time.Since(startTime)

		// Update job status and metrics based on result
		if err != nil {
			m.updateJobStatus(jobID, model.JobStatusFailed, err.Error())
			m.metrics.RecordJobFailed(jobType, executionTime)
			m.logger.Warn("job failed", "job_id", jobID, "duration", executionTime, "err", err)
		} else {
			m.updateJobStatus(jobID, model.JobStatusCompleted, "")
			m.metrics.RecordJobCompleted(jobType, executionTime)
			m.logger.Debug("job completed", "job_id", jobID, "duration", executionTime)
		}
	}()

	return nil
}

// cancelJob marks a job that never ran as cancelled and reports it to onCancel
func (m *Manager) cancelJob(jobID string, onCancel func(error)) {
	m.updateJobStatus(jobID, model.JobStatusCancelled, "Job manager shutting down")
	m.logger.Debug("job cancelled", "job_id", jobID)
	if onCancel != nil {
		onCancel(fmt.Errorf("job %s: %w: job manager shutting down", jobID, errors.ErrJobCancelled))
	}
}

// Submit creates a job and executes it
func (m *Manager) Submit(jobType model.JobType, indexName string, metadata map[string]string, jobFunc func(ctx context.Context, job *model.Job) error) (string, error) {
	return m.SubmitWithCancel(jobType, indexName, metadata, jobFunc, nil)
}

// SubmitWithCancel is Submit with a hook called instead of jobFunc when the job is
// cancelled before it runs. The hook receives an error wrapping errors.ErrJobCancelled.
func (m *Manager) SubmitWithCancel(jobType model.JobType, indexName string, metadata map[string]string, jobFunc func(ctx context.Context, job *model.Job) error, onCancel func(error)) (string, error) {
	jobID := m.CreateJob(jobType, indexName, metadata)
	if err := m.execute(jobID, jobFunc, onCancel); err != nil {
		return jobID, err
	}
	return jobID, nil
}

func (m *Manager) markRunning(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	oldStatus := job.Status
	job.Status = model.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	m.metrics.RecordJobStatusChange(oldStatus, job.Status)
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}

	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}

	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

// SetJobMetadata records a key/value result on a job
func (m *Manager) SetJobMetadata(jobID, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	if job.Metadata == nil {
		job.Metadata = make(map[string]string)
	}
	job.Metadata[key] = value
}

// updateJobStatus updates the status of a job (internal method)
func (m *Manager) updateJobStatus(jobID string, status model.JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}

	oldStatus := job.Status
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	if status == model.JobStatusCompleted || status == model.JobStatusFailed || status == model.JobStatusCancelled {
		now := time.Now()
		job.CompletedAt = &now
	}

	m.metrics.RecordJobStatusChange(oldStatus, status)
}

// cleanupRoutine runs periodic job cleanup
func (m *Manager) cleanupRoutine() {
	ticker := time.NewTicker(1 * time.Hour) // Cleanup every hour
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Clean up completed jobs older than 24 hours
			m.CleanupOldJobs(24 * time.Hour)
		case <-m.stopChan:
			return
		}
	}
}

// CleanupOldJobs removes completed jobs older than the specified duration
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0

	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		m.logger.Info("cleaned up old jobs", "count", cleaned)
	}
}

// GetMetrics returns current job performance metrics
func (m *Manager) GetMetrics() JobMetricsData {
	return m.metrics.GetMetrics()
}

// GetJobSuccessRate returns the overall job success rate
func (m *Manager) GetJobSuccessRate() float64 {
	return m.metrics.GetSuccessRate()
}

// GetCurrentWorkload returns the number of currently active jobs
func (m *Manager) GetCurrentWorkload() int64 {
	return m.metrics.GetCurrentWorkload()
}
