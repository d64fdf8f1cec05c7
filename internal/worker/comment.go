package worker

import (
	"context"

	"github.com/sociallink/backend/internal/queue"
)

// CommentWorker applies comment jobs
type CommentWorker struct {
	store CommentStore
}

// NewCommentWorker creates a comment worker
func NewCommentWorker(store CommentStore) *CommentWorker {
	return &CommentWorker{store: store}
}

// Handle implements queue.HandlerFunc
func (w *CommentWorker) Handle(ctx context.Context, job queue.Job) error {
	switch j := job.(type) {
	case *queue.AddCommentJob:
		if j.Comment == nil {
			return missing(job, "comment")
		}
		return w.store.Add(ctx, j.Comment)
	case *queue.RemoveCommentJob:
		return w.store.Remove(ctx, j.PostID, j.CommentID)
	default:
		return unexpected(job)
	}
}
