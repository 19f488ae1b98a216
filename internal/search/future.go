package search

import (
	"context"
	"sync"

	"github.com/gcbaptista/go-corpus-engine/model"
)

// JobSubmitter schedules background work. *jobs.Manager implements it.
type JobSubmitter interface {
	SubmitWithCancel(jobType model.JobType, indexName string, metadata map[string]string,
		jobFunc func(ctx context.Context, job *model.Job) error, onCancel func(error)) (string, error)
}

// Future is the handle of a search running in the background. The result or the failure
// is only delivered through it.
type Future struct {
	jobID  string
	done   chan struct{}
	once   sync.Once
	result Result
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(result Result, err error) {
	f.once.Do(func() {
		f.result, f.err = result, err
		close(f.done)
	})
}

// JobID identifies the background job running the search
func (f *Future) JobID() string {
	return f.jobID
}

// Done is closed when the result is available
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx ends. Ending ctx does not stop the search.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// executeAsync runs s on the searcher's job submitter. It returns nil when the searcher has none.
// A job cancelled before it runs completes the future with its cancellation error.
func executeAsync(s Search, searcher *Searcher) *Future {
	if searcher.jobs == nil {
		return nil
	}
	f := newFuture()
	jobID, err := searcher.jobs.SubmitWithCancel(model.JobTypeSearch, searcher.index.Name(), map[string]string{"recipe": s.Key()},
		func(ctx context.Context, job *model.Job) error {
			result, err := s.Execute(ctx)
			f.complete(result, err)
			return err
		},
		func(err error) { f.complete(nil, err) })
	f.jobID = jobID
	if err != nil {
		f.complete(nil, err)
	}
	return f
}
