// Package queuetest provides an in-memory queue.Enqueuer for handler tests.
package queuetest

import (
	"context"
	"sync"

	"github.com/sociallink/backend/internal/queue"
)

// Recorder keeps every job it is given. Enqueue returns Err when set.
type Recorder struct {
	mu   sync.Mutex
	jobs []queue.Job
	Err  error
}

// Enqueue records job
func (r *Recorder) Enqueue(_ context.Context, job queue.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Dispatch records job, dropping it when Err is set
func (r *Recorder) Dispatch(ctx context.Context, job queue.Job) {
	_ = r.Enqueue(ctx, job)
}

// Jobs returns the recorded jobs in order
func (r *Recorder) Jobs() []queue.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]queue.Job(nil), r.jobs...)
}

// Names returns the names of the recorded jobs in order
func (r *Recorder) Names() []string {
	jobs := r.Jobs()
	names := make([]string, len(jobs))
	for i, job := range jobs {
		names[i] = job.Name()
	}
	return names
}

// Last returns the most recent job, or nil
func (r *Recorder) Last() queue.Job {
	jobs := r.Jobs()
	if len(jobs) == 0 {
		return nil
	}
	return jobs[len(jobs)-1]
}

var _ queue.Enqueuer = (*Recorder)(nil)
