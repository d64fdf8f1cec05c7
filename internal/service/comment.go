package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sociallink/backend/internal/db"
	"github.com/sociallink/backend/internal/models"
	"github.com/sociallink/backend/pkg/logging"
)

// CommentService persists comments and post comment counters
type CommentService struct {
	posts    *db.PostRepository
	comments *db.CommentRepository
	logger   *zap.Logger
}

// NewCommentService creates a comment service
func NewCommentService(repo *db.Repository) *CommentService {
	return &CommentService{
		posts:    db.NewPostRepository(repo),
		comments: db.NewCommentRepository(repo),
		logger:   logging.WithComponent("commentService"),
	}
}

// Add inserts comment and increments the post's comment counter once
func (s *CommentService) Add(ctx context.Context, comment *models.Comment) error {
	inserted, err := s.comments.Create(ctx, comment)
	if err != nil {
		return fmt.Errorf("create comment %s: %w", comment.ID, err)
	}
	if !inserted {
		s.logger.Debug("Comment already stored", zap.String("comment_id", comment.ID))
		return nil
	}
	if err := s.posts.AddCommentsCount(ctx, comment.PostID, 1); err != nil {
		return fmt.Errorf("increment comments count of %s: %w", comment.PostID, err)
	}
	return nil
}

// Remove deletes a comment and decrements the post's comment counter
func (s *CommentService) Remove(ctx context.Context, postID, commentID string) error {
	deleted, err := s.comments.Delete(ctx, postID, commentID)
	if err != nil {
		return fmt.Errorf("delete comment %s: %w", commentID, err)
	}
	if !deleted {
		return nil
	}
	if err := s.posts.AddCommentsCount(ctx, postID, -1); err != nil {
		return fmt.Errorf("decrement comments count of %s: %w", postID, err)
	}
	return nil
}

// ListForPost returns the comments of a post, newest first
func (s *CommentService) ListForPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	return s.comments.ListForPost(ctx, postID)
}

// Names returns the number of comments on a post and their authors
func (s *CommentService) Names(ctx context.Context, postID string) (*models.CommentNameList, error) {
	comments, err := s.comments.ListForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return nameList(comments), nil
}

// Get returns one comment of a post, or nil
func (s *CommentService) Get(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	return s.comments.GetByID(ctx, postID, commentID)
}

func nameList(comments []*models.Comment) *models.CommentNameList {
	list := &models.CommentNameList{Count: len(comments), Names: make([]string, 0, len(comments))}
	for _, c := range comments {
		list.Names = append(list.Names, c.Username)
	}
	return list
}
