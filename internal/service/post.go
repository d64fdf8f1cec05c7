package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sociallink/backend/internal/db"
	"github.com/sociallink/backend/internal/models"
	"github.com/sociallink/backend/pkg/logging"
)

// PostService persists posts and reads them from the durable store
type PostService struct {
	posts     *db.PostRepository
	users     *db.UserRepository
	comments  *db.CommentRepository
	reactions *db.ReactionRepository
	logger    *zap.Logger
}

// NewPostService creates a post service
func NewPostService(repo *db.Repository) *PostService {
	return &PostService{
		posts:     db.NewPostRepository(repo),
		users:     db.NewUserRepository(repo),
		comments:  db.NewCommentRepository(repo),
		reactions: db.NewReactionRepository(repo),
		logger:    logging.WithComponent("postService"),
	}
}

// Create inserts post for userID and increments the user's posts counter. A
// redelivered post is not counted twice.
func (s *PostService) Create(ctx context.Context, userID string, post *models.Post) error {
	inserted, err := s.posts.Create(ctx, post)
	if err != nil {
		return fmt.Errorf("create post %s: %w", post.ID, err)
	}
	if !inserted {
		s.logger.Debug("Post already stored", zap.String("post_id", post.ID))
		return nil
	}
	if err := s.users.AddPostsCount(ctx, userID, 1); err != nil {
		return fmt.Errorf("increment posts count of %s: %w", userID, err)
	}
	return nil
}

// Update writes the editable fields of post
func (s *PostService) Update(ctx context.Context, postID string, post *models.Post) error {
	if err := s.posts.Update(ctx, postID, post); err != nil {
		return fmt.Errorf("update post %s: %w", postID, err)
	}
	return nil
}

// Delete removes a post with its comments and reactions and decrements the owner's
// posts counter. The related writes run as one best-effort batch.
func (s *PostService) Delete(ctx context.Context, postID, userID string) error {
	deleted, err := s.posts.Delete(ctx, postID)
	if err != nil {
		return fmt.Errorf("delete post %s: %w", postID, err)
	}

	writes := []func(context.Context) error{
		func(ctx context.Context) error { return s.comments.DeleteByPost(ctx, postID) },
		func(ctx context.Context) error { return s.reactions.DeleteByPost(ctx, postID) },
	}
	if deleted {
		writes = append(writes, func(ctx context.Context) error {
			return s.users.AddPostsCount(ctx, userID, -1)
		})
	}
	if err := batch(ctx, writes...); err != nil {
		return fmt.Errorf("delete post %s: %w", postID, err)
	}
	return nil
}

// List returns posts matching q, newest first
func (s *PostService) List(ctx context.Context, q db.PostQuery, skip, limit int) ([]*models.Post, error) {
	return s.posts.List(ctx, q, skip, limit)
}

// Count returns the number of posts matching q
func (s *PostService) Count(ctx context.Context, q db.PostQuery) (int64, error) {
	return s.posts.Count(ctx, q)
}

// AuthorUID returns the uId of the author with profile id userID
func (s *PostService) AuthorUID(ctx context.Context, userID string) (string, error) {
	uid, err := s.posts.AuthorUID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load uId of %s: %w", userID, err)
	}
	if uid == "" {
		return "", fmt.Errorf("no profile %s", userID)
	}
	return uid, nil
}

// Get returns a post, or nil when it does not exist
func (s *PostService) Get(ctx context.Context, postID string) (*models.Post, error) {
	return s.posts.GetByID(ctx, postID)
}
