// Package worker holds the job handlers that apply queued changes to the durable
// store and deliver emails.
package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/sociallink/backend/internal/models"
	"github.com/sociallink/backend/internal/queue"
)

// PostStore persists post changes
type PostStore interface {
	Create(ctx context.Context, userID string, post *models.Post) error
	Update(ctx context.Context, postID string, post *models.Post) error
	Delete(ctx context.Context, postID, userID string) error
}

// ReactionStore persists reactions
type ReactionStore interface {
	Add(ctx context.Context, reaction *models.Reaction, previous models.ReactionType) error
	Remove(ctx context.Context, postID, username string, previous models.ReactionType) error
}

// CommentStore persists comments
type CommentStore interface {
	Add(ctx context.Context, comment *models.Comment) error
	Remove(ctx context.Context, postID, commentID string) error
}

// UserStore persists profiles
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
}

// AuthStore persists credentials
type AuthStore interface {
	Create(ctx context.Context, auth *models.AuthUser) error
}

// Mailer delivers HTML emails
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Stores groups the dependencies of the workers
type Stores struct {
	Posts     PostStore
	Reactions ReactionStore
	Comments  CommentStore
	Users     UserStore
	Auth      AuthStore
	Mailer    Mailer
}

// Register installs a handler for every job name on s, each limited to concurrency
// parallel jobs
func Register(s *queue.Server, stores Stores, concurrency int) error {
	handlers := map[string]queue.HandlerFunc{}

	posts := NewPostWorker(stores.Posts)
	for _, name := range []string{queue.JobSavePost, queue.JobUpdatePost, queue.JobDeletePost} {
		handlers[name] = posts.Handle
	}

	reactions := NewReactionWorker(stores.Reactions)
	handlers[queue.JobAddReaction] = reactions.Handle
	handlers[queue.JobRemoveReaction] = reactions.Handle

	comments := NewCommentWorker(stores.Comments)
	handlers[queue.JobAddComment] = comments.Handle
	handlers[queue.JobRemoveComment] = comments.Handle

	handlers[queue.JobAddUser] = NewUserWorker(stores.Users).Handle
	handlers[queue.JobAddAuthUser] = NewAuthWorker(stores.Auth).Handle
	handlers[queue.JobForgotPassword] = NewEmailWorker(stores.Mailer).Handle

	for name, handle := range handlers {
		if err := s.Register(name, concurrency, handle); err != nil {
			return err
		}
	}
	return nil
}

func unexpected(job queue.Job) error {
	return fmt.Errorf("%w: %s on %s", queue.ErrUnknownJob, job.Name(), job.Queue())
}

// missing reports a job without its payload. Redelivery cannot fix it, so the job
// is not retried.
func missing(job queue.Job, what string) error {
	return fmt.Errorf("%s without %s: %w", job.Name(), what, asynq.SkipRetry)
}
