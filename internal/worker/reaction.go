package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/sociallink/backend/internal/queue"
	"github.com/sociallink/backend/pkg/logging"
)

// ReactionWorker applies reaction jobs
type ReactionWorker struct {
	store  ReactionStore
	logger *zap.Logger
}

// NewReactionWorker creates a reaction worker
func NewReactionWorker(store ReactionStore) *ReactionWorker {
	return &ReactionWorker{store: store, logger: logging.WithComponent("reactionWorker")}
}

// Handle implements queue.HandlerFunc
func (w *ReactionWorker) Handle(ctx context.Context, job queue.Job) error {
	switch j := job.(type) {
	case *queue.AddReactionJob:
		if j.ReactionObject == nil {
			return missing(job, "reaction")
		}
		if err := w.store.Add(ctx, j.ReactionObject, j.PreviousReaction); err != nil {
			return err
		}
		w.logger.Debug("Reaction stored",
			zap.String("post_id", j.PostID),
			zap.String("username", j.Username),
			zap.String("type", string(j.ReactionObject.Type)))
	case *queue.RemoveReactionJob:
		if err := w.store.Remove(ctx, j.PostID, j.Username, j.PreviousReaction); err != nil {
			return err
		}
		w.logger.Debug("Reaction removed", zap.String("post_id", j.PostID), zap.String("username", j.Username))
	default:
		return unexpected(job)
	}
	return nil
}
