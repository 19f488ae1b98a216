package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/internal/analytics"
	"github.com/gcbaptista/go-corpus-engine/internal/jobs"
	"github.com/gcbaptista/go-corpus-engine/internal/process"
	"github.com/gcbaptista/go-corpus-engine/internal/xmlpath"
	"github.com/gcbaptista/go-corpus-engine/model"
	"github.com/gcbaptista/go-corpus-engine/services"
)

// Engine manages the formats and indexes of one corpus engine process.
// It implements the services.IndexManager and services.JobManager interfaces.
type Engine struct {
	mu         sync.RWMutex
	indexes    map[string]*IndexInstance
	settings   config.EngineSettings
	formats    *FormatRegistry
	evaluator  *xmlpath.Evaluator
	tagger     process.Tagger
	jobManager *jobs.Manager
	analytics  *analytics.Service
	logger     *slog.Logger
}

var (
	_ services.IndexManager = (*Engine)(nil)
	_ services.JobManager   = (*Engine)(nil)

	_ analytics.IndexCatalog = (*Engine)(nil)
)

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger of the engine and everything it creates
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine. It loads the formats of the configured format directories and
// the user formats and indexes persisted under the data directory.
func New(settings config.EngineSettings, opts ...Option) (*Engine, error) {
	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid engine settings: %s", strings.Join(problems, "; "))
	}

	e := &Engine{
		indexes:  make(map[string]*IndexInstance),
		settings: settings,
		formats:  NewFormatRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	e.evaluator, err = xmlpath.NewEvaluator(xmlpath.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	if settings.Tagger != nil {
		e.tagger, err = process.NewExecTagger(*settings.Tagger)
		if err != nil {
			return nil, fmt.Errorf("invalid tagger: %w", err)
		}
	}

	if !settings.InMemory {
		if err := os.MkdirAll(e.indexesDir(), dataDirPerm); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", settings.DataDir, err)
		}
	}

	for _, dir := range settings.FormatDirs {
		e.loadFormatDir(dir)
	}
	if !settings.InMemory {
		e.loadUserFormats()
	}

	e.jobManager = jobs.NewManager(settings.JobWorkers, jobs.WithLogger(e.logger))
	e.jobManager.Start()

	analyticsPath := ""
	if !settings.InMemory {
		analyticsPath = filepath.Join(settings.DataDir, analyticsFile)
	}
	e.analytics = analytics.NewService(e, analyticsPath, analytics.WithLogger(e.logger))

	if !settings.InMemory {
		e.loadIndexesFromDisk()
	}
	return e, nil
}

// Settings returns the engine settings with defaults applied
func (e *Engine) Settings() config.EngineSettings {
	return e.settings
}

// Formats returns the format registry
func (e *Engine) Formats() *FormatRegistry {
	return e.formats
}

// Analytics returns the search analytics of the engine
func (e *Engine) Analytics() *analytics.Service {
	return e.analytics
}

// Close stops background jobs and closes the stores of every index.
// Index state and search analytics are persisted first.
func (e *Engine) Close() error {
	e.jobManager.Stop()

	var firstErr error
	if err := e.analytics.Flush(); err != nil {
		e.logger.Warn("Failed to save analytics data", "error", err)
		firstErr = err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for name, instance := range e.indexes {
		if err := e.persistIndexUnsafe(instance); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := instance.Close(); err != nil {
			e.logger.Warn("Failed to close index", "index", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	e.indexes = make(map[string]*IndexInstance)
	return firstErr
}

// GetJob returns a snapshot of a background job
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs lists jobs, optionally restricted to one index and status
func (e *Engine) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(indexName, status)
}

// JobMetrics returns the job metrics collected since start
func (e *Engine) JobMetrics() jobs.JobMetricsData {
	return e.jobManager.GetMetrics()
}

// JobSuccessRate returns the share of finished jobs that completed, from 0 to 1
func (e *Engine) JobSuccessRate() float64 {
	return e.jobManager.GetJobSuccessRate()
}

// CurrentWorkload returns the number of jobs currently running
func (e *Engine) CurrentWorkload() int64 {
	return e.jobManager.GetCurrentWorkload()
}

// loadFormatDir registers every format file of dir. Invalid files are logged and skipped.
func (e *Engine) loadFormatDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		e.logger.Warn("Failed to read format directory", "dir", dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !config.ValidFormatFileName(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		format, err := config.LoadFormatFile(path)
		if err != nil {
			e.logger.Warn("Skipping invalid format file", "path", path, "error", err)
			continue
		}
		if err := e.formats.RegisterFormat(format); err != nil {
			e.logger.Warn("Skipping format", "path", path, "error", err)
			continue
		}
		e.logger.Info("Loaded format", "format", format.Name, "path", path)
	}
}

// ListIndexes returns the names of all loaded indexes, sorted
func (e *Engine) ListIndexes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.indexes))
	for name := range e.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DocumentCount returns the number of documents of an index, 0 when it does not exist
func (e *Engine) DocumentCount(indexName string) int {
	instance, err := e.instance(indexName)
	if err != nil {
		return 0
	}
	return instance.DocumentStore.Count()
}
