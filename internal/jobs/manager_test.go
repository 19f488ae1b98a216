package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerrors "github.com/gcbaptista/go-corpus-engine/internal/errors"
	"github.com/gcbaptista/go-corpus-engine/model"
)

func waitForStatus(t *testing.T, m *Manager, jobID string, status model.JobStatus) *model.Job {
	t.Helper()
	var job *model.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = m.GetJob(jobID)
		return err == nil && job.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestJobManager_CreateJob(t *testing.T) {
	manager := NewManager(2)
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeIndexDocuments, "test-index", map[string]string{
		"operation": "test",
	})

	if jobID == "" {
		t.Error("Expected non-empty job ID")
	}

	job, err := manager.GetJob(jobID)
	if err != nil {
		t.Fatalf("Failed to get created job: %v", err)
	}

	if job.Type != model.JobTypeIndexDocuments {
		t.Errorf("Expected job type %s, got %s", model.JobTypeIndexDocuments, job.Type)
	}

	if job.Status != model.JobStatusPending {
		t.Errorf("Expected job status %s, got %s", model.JobStatusPending, job.Status)
	}

	if job.IndexName != "test-index" {
		t.Errorf("Expected index name 'test-index', got %s", job.IndexName)
	}
}

func TestJobManager_ExecuteJob(t *testing.T) {
	manager := NewManager(2)
	manager.Start()
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeIndexDocuments, "test-index", nil)

	// Execute a simple job that updates progress
	err := manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		manager.UpdateJobProgress(jobID, 50, 100, "Halfway done")
		time.Sleep(10 * time.Millisecond) // Simulate work
		manager.UpdateJobProgress(jobID, 100, 100, "Completed")
		manager.SetJobMetadata(jobID, "documents", "3")
		return nil
	})
	require.NoError(t, err)

	job := waitForStatus(t, manager, jobID, model.JobStatusCompleted)
	require.NotNil(t, job.Progress)
	assert.Equal(t, 100, job.Progress.Current)
	assert.Equal(t, 100, job.Progress.Total)
	assert.Equal(t, 100.0, job.Progress.GetProgressPercentage())
	assert.Equal(t, "3", job.Metadata["documents"])
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)

	err = manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error { return nil })
	assert.Error(t, err, "a finished job cannot run again")
}

func TestJobManager_FailedJob(t *testing.T) {
	manager := NewManager(1)
	defer manager.Stop()

	jobID, err := manager.Submit(model.JobTypeSearch, "test-index", nil, func(ctx context.Context, job *model.Job) error {
		return errors.New("boom")
	})
	require.NoError(t, err)

	job := waitForStatus(t, manager, jobID, model.JobStatusFailed)
	assert.Equal(t, "boom", job.Error)
	assert.Equal(t, int64(1), manager.GetMetrics().JobsFailed)
	assert.Less(t, manager.GetJobSuccessRate(), 1.0)
}

func TestJobManager_ExecuteDoesNotBlockWhenWorkersBusy(t *testing.T) {
	manager := NewManager(1)
	release := make(chan struct{})
	defer func() {
		close(release)
		manager.Stop()
	}()

	blocking := func(ctx context.Context, job *model.Job) error {
		<-release
		return nil
	}
	first, err := manager.Submit(model.JobTypeSearch, "idx", nil, blocking)
	require.NoError(t, err)
	waitForStatus(t, manager, first, model.JobStatusRunning)

	returned := make(chan struct{})
	var second string
	go func() {
		second, _ = manager.Submit(model.JobTypeSearch, "idx", nil, blocking)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("ExecuteJob blocked while all workers were busy")
	}

	job, err := manager.GetJob(second)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, job.Status, "the second job waits for a worker slot")
}

func TestJobManager_StopCancelsWaitingJobs(t *testing.T) {
	manager := NewManager(1)
	release := make(chan struct{})

	first, _ := manager.Submit(model.JobTypeSearch, "idx", nil, func(ctx context.Context, job *model.Job) error {
		<-release
		return nil
	})
	waitForStatus(t, manager, first, model.JobStatusRunning)
	second, _ := manager.Submit(model.JobTypeSearch, "idx", nil, func(ctx context.Context, job *model.Job) error {
		return nil
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	manager.Stop()

	job, err := manager.GetJob(second)
	require.NoError(t, err)
	assert.Contains(t, []model.JobStatus{model.JobStatusCancelled, model.JobStatusCompleted}, job.Status)

	_, err = manager.Submit(model.JobTypeSearch, "idx", nil, func(ctx context.Context, job *model.Job) error { return nil })
	assert.Error(t, err, "stopped manager rejects new jobs")
}

func TestJobManager_CancelHookForWaitingJob(t *testing.T) {
	manager := NewManager(1)
	release := make(chan struct{})

	first, err := manager.Submit(model.JobTypeSearch, "idx", nil, func(ctx context.Context, job *model.Job) error {
		<-release
		return nil
	})
	require.NoError(t, err)
	waitForStatus(t, manager, first, model.JobStatusRunning)

	ran := make(chan struct{}, 1)
	cancelled := make(chan error, 1)
	second, err := manager.SubmitWithCancel(model.JobTypeSearch, "idx", nil,
		func(ctx context.Context, job *model.Job) error {
			ran <- struct{}{}
			return nil
		},
		func(err error) { cancelled <- err })
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		manager.Stop()
		close(stopped)
	}()
	waitForStatus(t, manager, second, model.JobStatusCancelled)
	close(release)
	<-stopped

	select {
	case err := <-cancelled:
		assert.True(t, errors.Is(err, engerrors.ErrJobCancelled))
	default:
		t.Fatal("cancel hook was not called")
	}
	assert.Empty(t, ran, "cancelled job never runs")

	_, err = manager.SubmitWithCancel(model.JobTypeSearch, "idx", nil,
		func(ctx context.Context, job *model.Job) error { return nil },
		func(err error) { cancelled <- err })
	assert.True(t, errors.Is(err, engerrors.ErrJobCancelled))
	assert.True(t, errors.Is(<-cancelled, engerrors.ErrJobCancelled), "hook also runs when the manager is already stopped")
}

func TestJobManager_GetJobNotFound(t *testing.T) {
	manager := NewManager(1)
	defer manager.Stop()

	_, err := manager.GetJob("missing")
	assert.True(t, errors.Is(err, engerrors.ErrJobNotFound))
}

func TestJobManager_ListAndCleanup(t *testing.T) {
	manager := NewManager(2)
	defer manager.Stop()

	done, _ := manager.Submit(model.JobTypeIndexDocuments, "a", nil, func(ctx context.Context, job *model.Job) error { return nil })
	manager.CreateJob(model.JobTypeIndexDocuments, "a", nil)
	manager.CreateJob(model.JobTypeIndexDocuments, "b", nil)
	waitForStatus(t, manager, done, model.JobStatusCompleted)

	assert.Len(t, manager.ListJobs("a", nil), 2)
	pending := model.JobStatusPending
	assert.Len(t, manager.ListJobs("a", &pending), 1)

	manager.CleanupOldJobs(-time.Minute)
	_, err := manager.GetJob(done)
	assert.Error(t, err, "completed jobs are removed")
	assert.Len(t, manager.ListJobs("a", nil), 1)
}
