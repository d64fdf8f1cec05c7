package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sociallink/backend/internal/db"
	"github.com/sociallink/backend/internal/models"
	"github.com/sociallink/backend/pkg/logging"
)

// ReactionService persists reactions and the per-kind counters of posts
type ReactionService struct {
	posts     *db.PostRepository
	reactions *db.ReactionRepository
	logger    *zap.Logger
}

// NewReactionService creates a reaction service
func NewReactionService(repo *db.Repository) *ReactionService {
	return &ReactionService{
		posts:     db.NewPostRepository(repo),
		reactions: db.NewReactionRepository(repo),
		logger:    logging.WithComponent("reactionService"),
	}
}

// counterMoves returns the counter writes that turn a post reacted to with stored
// into one reacted to with next. stored is empty when the user had no reaction.
func counterMoves(stored, next models.ReactionType) map[models.ReactionType]int {
	moves := make(map[models.ReactionType]int, 2)
	if stored == next {
		return moves
	}
	if stored != "" {
		moves[stored]--
	}
	if next != "" {
		moves[next]++
	}
	return moves
}

// Add stores reaction as the user's reaction on the post and moves the post counters
// from the stored reaction kind to the new one. previous is the kind the caller saw
// replaced; the stored row wins when the two disagree, so redelivery does not count
// twice. A counter write that fails after the upsert is not repeated by a retry.
func (s *ReactionService) Add(ctx context.Context, reaction *models.Reaction, previous models.ReactionType) error {
	existing, err := s.reactions.GetByUsername(ctx, reaction.PostID, reaction.Username)
	if err != nil {
		return fmt.Errorf("load reaction of %s on %s: %w", reaction.Username, reaction.PostID, err)
	}

	var stored models.ReactionType
	if existing != nil {
		stored = existing.Type
	}
	if stored != previous {
		s.logger.Debug("Stored reaction differs from replaced one",
			zap.String("post_id", reaction.PostID),
			zap.String("stored", string(stored)),
			zap.String("previous", string(previous)),
		)
	}

	// counters move only once the row records the new kind, so a failed upsert
	// leaves both for the retry
	if err := s.reactions.Upsert(ctx, reaction); err != nil {
		return fmt.Errorf("store reaction of %s on %s: %w", reaction.Username, reaction.PostID, err)
	}

	var writes []func(context.Context) error
	for kind, delta := range counterMoves(stored, reaction.Type) {
		kind, delta := kind, delta
		writes = append(writes, func(ctx context.Context) error {
			return s.posts.AddReaction(ctx, reaction.PostID, kind, delta)
		})
	}
	if err := batch(ctx, writes...); err != nil {
		return fmt.Errorf("move counters of %s on %s: %w", reaction.Username, reaction.PostID, err)
	}
	return nil
}

// Remove deletes the reaction of username on a post and decrements its counter
func (s *ReactionService) Remove(ctx context.Context, postID, username string, previous models.ReactionType) error {
	deleted, err := s.reactions.Delete(ctx, postID, username)
	if err != nil {
		return fmt.Errorf("remove reaction of %s on %s: %w", username, postID, err)
	}
	if deleted == nil {
		s.logger.Debug("No stored reaction to remove",
			zap.String("post_id", postID),
			zap.String("username", username),
			zap.String("previous", string(previous)),
		)
		return nil
	}

	if err := s.posts.AddReaction(ctx, postID, deleted.Type, -1); err != nil {
		return fmt.Errorf("decrement %s on %s: %w", deleted.Type, postID, err)
	}
	return nil
}

// ListForPost returns the reactions on a post
func (s *ReactionService) ListForPost(ctx context.Context, postID string) ([]*models.Reaction, error) {
	return s.reactions.ListForPost(ctx, postID)
}

// GetByUsername returns the reaction of username on a post, or nil
func (s *ReactionService) GetByUsername(ctx context.Context, postID, username string) (*models.Reaction, error) {
	return s.reactions.GetByUsername(ctx, postID, username)
}

// ListByUsername returns every reaction made by username
func (s *ReactionService) ListByUsername(ctx context.Context, username string) ([]*models.Reaction, error) {
	return s.reactions.ListByUsername(ctx, username)
}
