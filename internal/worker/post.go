package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/sociallink/backend/internal/queue"
	"github.com/sociallink/backend/pkg/logging"
)

// PostWorker applies post jobs
type PostWorker struct {
	store  PostStore
	logger *zap.Logger
}

// NewPostWorker creates a post worker
func NewPostWorker(store PostStore) *PostWorker {
	return &PostWorker{store: store, logger: logging.WithComponent("postWorker")}
}

// Handle implements queue.HandlerFunc
func (w *PostWorker) Handle(ctx context.Context, job queue.Job) error {
	switch j := job.(type) {
	case *queue.SavePostJob:
		if j.Value == nil {
			return missing(job, "post")
		}
		if err := w.store.Create(ctx, j.Key, j.Value); err != nil {
			return err
		}
		w.logger.Debug("Post saved", zap.String("post_id", j.Value.ID), zap.String("user_id", j.Key))
	case *queue.UpdatePostJob:
		if j.Value == nil {
			return missing(job, "post")
		}
		if err := w.store.Update(ctx, j.Key, j.Value); err != nil {
			return err
		}
		w.logger.Debug("Post updated", zap.String("post_id", j.Key))
	case *queue.DeletePostJob:
		if err := w.store.Delete(ctx, j.KeyOne, j.KeyTwo); err != nil {
			return err
		}
		w.logger.Debug("Post deleted", zap.String("post_id", j.KeyOne), zap.String("user_id", j.KeyTwo))
	default:
		return unexpected(job)
	}
	return nil
}
