package worker

import (
	"context"

	"github.com/sociallink/backend/internal/queue"
)

// UserWorker applies profile jobs
type UserWorker struct {
	store UserStore
}

// NewUserWorker creates a user worker
func NewUserWorker(store UserStore) *UserWorker {
	return &UserWorker{store: store}
}

// Handle implements queue.HandlerFunc
func (w *UserWorker) Handle(ctx context.Context, job queue.Job) error {
	j, ok := job.(*queue.AddUserJob)
	if !ok {
		return unexpected(job)
	}
	if j.Value == nil {
		return missing(job, "user")
	}
	return w.store.Create(ctx, j.Value)
}

// AuthWorker applies credential jobs
type AuthWorker struct {
	store AuthStore
}

// NewAuthWorker creates an auth worker
func NewAuthWorker(store AuthStore) *AuthWorker {
	return &AuthWorker{store: store}
}

// Handle implements queue.HandlerFunc
func (w *AuthWorker) Handle(ctx context.Context, job queue.Job) error {
	j, ok := job.(*queue.AddAuthUserJob)
	if !ok {
		return unexpected(job)
	}
	if j.Value == nil {
		return missing(job, "auth user")
	}
	return w.store.Create(ctx, j.Value)
}
