package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gcbaptista/go-corpus-engine/internal/indexing"
	"github.com/gcbaptista/go-corpus-engine/model"
)

// IndexDocuments extracts and indexes one input file synchronously and persists the index.
func (e *Engine) IndexDocuments(ctx context.Context, indexName string, input []byte) (*indexing.BulkResult, error) {
	instance, err := e.instance(indexName)
	if err != nil {
		return nil, err
	}
	result, err := instance.IndexInput(ctx, input, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to index documents into '%s': %w", indexName, err)
	}
	if err := e.persistIndexUnsafe(instance); err != nil {
		return result, fmt.Errorf("failed to persist updated index '%s': %w", indexName, err)
	}
	return result, nil
}

// AddDocumentsAsync indexes one input file in a background job and returns the job ID.
// Progress and the indexed and failed document counts are recorded on the job.
func (e *Engine) AddDocumentsAsync(indexName string, input []byte) (string, error) {
	if _, err := e.instance(indexName); err != nil {
		return "", err
	}

	jobID := e.jobManager.CreateJob(model.JobTypeIndexDocuments, indexName, map[string]string{
		"operation": "index_documents",
		"bytes":     strconv.Itoa(len(input)),
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeAddDocumentsJob(ctx, indexName, input, jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start index documents job: %w", err)
	}
	return jobID, nil
}

// executeAddDocumentsJob executes the add documents job.
func (e *Engine) executeAddDocumentsJob(ctx context.Context, indexName string, input []byte, jobID string) error {
	instance, err := e.instance(indexName)
	if err != nil {
		return err
	}

	e.jobManager.UpdateJobProgress(jobID, 0, 0, "Extracting documents")
	result, err := instance.IndexInput(ctx, input, func(processed, total int, message string) {
		e.jobManager.UpdateJobProgress(jobID, processed, total, message)
	})
	if err != nil {
		return fmt.Errorf("failed to add documents to index '%s': %w", indexName, err)
	}

	e.jobManager.SetJobMetadata(jobID, "documents", strconv.Itoa(result.Documents))
	e.jobManager.SetJobMetadata(jobID, "indexed", strconv.Itoa(result.Indexed))
	e.jobManager.SetJobMetadata(jobID, "failed", strconv.Itoa(result.Failed))
	e.jobManager.SetJobMetadata(jobID, "duration", result.Duration.String())

	if err := e.persistIndexUnsafe(instance); err != nil {
		return fmt.Errorf("failed to persist updated index '%s': %w", indexName, err)
	}

	e.logger.Info("Added documents (async)", "index", indexName, "indexed", result.Indexed, "failed", result.Failed)
	return nil
}

// DeleteDocumentAsync deletes a document from an index in a background job.
func (e *Engine) DeleteDocumentAsync(indexName, pid string) (string, error) {
	instance, err := e.instance(indexName)
	if err != nil {
		return "", err
	}
	if _, err := instance.DocumentByPID(pid); err != nil {
		return "", err
	}

	jobID := e.jobManager.CreateJob(model.JobTypeDeleteDocument, indexName, map[string]string{
		"operation": "delete_document",
		"pid":       pid,
	})

	err = e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeDeleteDocumentJob(ctx, indexName, pid)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start delete document job: %w", err)
	}
	return jobID, nil
}

// executeDeleteDocumentJob executes the delete document job.
func (e *Engine) executeDeleteDocumentJob(ctx context.Context, indexName, pid string) error {
	instance, err := e.instance(indexName)
	if err != nil {
		return err
	}
	if err := instance.DeleteDocument(ctx, pid); err != nil {
		return fmt.Errorf("failed to delete document '%s' from index '%s': %w", pid, indexName, err)
	}
	if err := e.persistIndexUnsafe(instance); err != nil {
		return fmt.Errorf("failed to persist updated index '%s': %w", indexName, err)
	}

	e.logger.Info("Deleted document (async)", "index", indexName, "pid", pid)
	return nil
}
