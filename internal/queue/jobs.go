package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sociallink/backend/internal/models"
)

// Queue names
const (
	QueueAuth      = "auth"
	QueueUser      = "user"
	QueuePost      = "post"
	QueueReactions = "reactions"
	QueueComments  = "comments"
	QueueEmails    = "emails"
)

// Job names
const (
	JobAddAuthUser    = "addAuthUserToDB"
	JobAddUser        = "addUserToDB"
	JobSavePost       = "savePostToDB"
	JobUpdatePost     = "updatePostInDB"
	JobDeletePost     = "deletePostFromDB"
	JobAddReaction    = "addReactionToDB"
	JobRemoveReaction = "removeReactionFromDB"
	JobAddComment     = "addCommentToDB"
	JobRemoveComment  = "removeCommentFromDB"
	JobForgotPassword = "forgotPasswordEmail"
)

// ErrUnknownJob is returned for a job name outside the known set
var ErrUnknownJob = errors.New("unknown job")

// Job is one message variant. Every variant belongs to exactly one queue.
type Job interface {
	Queue() string
	Name() string
}

// AddAuthUserJob persists the credentials of a new account
type AddAuthUserJob struct {
	Value *models.AuthUser `json:"value"`
}

func (*AddAuthUserJob) Queue() string { return QueueAuth }
func (*AddAuthUserJob) Name() string  { return JobAddAuthUser }

// AddUserJob persists the profile of a new account
type AddUserJob struct {
	Value *models.User `json:"value"`
}

func (*AddUserJob) Queue() string { return QueueUser }
func (*AddUserJob) Name() string  { return JobAddUser }

// SavePostJob persists a new post. Key is the author's user id.
type SavePostJob struct {
	Key   string       `json:"key"`
	Value *models.Post `json:"value"`
}

func (*SavePostJob) Queue() string { return QueuePost }
func (*SavePostJob) Name() string  { return JobSavePost }

// UpdatePostJob persists an edited post. Key is the post id.
type UpdatePostJob struct {
	Key   string       `json:"key"`
	Value *models.Post `json:"value"`
}

func (*UpdatePostJob) Queue() string { return QueuePost }
func (*UpdatePostJob) Name() string  { return JobUpdatePost }

// DeletePostJob removes a post. KeyOne is the post id, KeyTwo the owner's user id.
type DeletePostJob struct {
	KeyOne string `json:"keyOne"`
	KeyTwo string `json:"keyTwo"`
}

func (*DeletePostJob) Queue() string { return QueuePost }
func (*DeletePostJob) Name() string  { return JobDeletePost }

// AddReactionJob persists a reaction and the kind it replaced
type AddReactionJob struct {
	PostID           string              `json:"postId"`
	Username         string              `json:"username"`
	UserFrom         string              `json:"userFrom"`
	UserTo           string              `json:"userTo"`
	Type             models.ReactionType `json:"type"`
	PreviousReaction models.ReactionType `json:"previousReaction"`
	ReactionObject   *models.Reaction    `json:"reactionObject"`
}

func (*AddReactionJob) Queue() string { return QueueReactions }
func (*AddReactionJob) Name() string  { return JobAddReaction }

// RemoveReactionJob removes the reaction of a user on a post
type RemoveReactionJob struct {
	PostID           string              `json:"postId"`
	Username         string              `json:"username"`
	PreviousReaction models.ReactionType `json:"previousReaction"`
}

func (*RemoveReactionJob) Queue() string { return QueueReactions }
func (*RemoveReactionJob) Name() string  { return JobRemoveReaction }

// AddCommentJob persists a comment
type AddCommentJob struct {
	PostID   string          `json:"postId"`
	UserTo   string          `json:"userTo"`
	UserFrom string          `json:"userFrom"`
	Username string          `json:"username"`
	Comment  *models.Comment `json:"comment"`
}

func (*AddCommentJob) Queue() string { return QueueComments }
func (*AddCommentJob) Name() string  { return JobAddComment }

// RemoveCommentJob removes a comment
type RemoveCommentJob struct {
	PostID    string `json:"postId"`
	CommentID string `json:"commentId"`
}

func (*RemoveCommentJob) Queue() string { return QueueComments }
func (*RemoveCommentJob) Name() string  { return JobRemoveComment }

// EmailJob sends a rendered HTML email
type EmailJob struct {
	ReceiverEmail string `json:"receiverEmail"`
	Subject       string `json:"subject"`
	Template      string `json:"template"`
}

func (*EmailJob) Queue() string { return QueueEmails }
func (*EmailJob) Name() string  { return JobForgotPassword }

// newJob returns an empty variant for name
func newJob(name string) (Job, error) {
	switch name {
	case JobAddAuthUser:
		return &AddAuthUserJob{}, nil
	case JobAddUser:
		return &AddUserJob{}, nil
	case JobSavePost:
		return &SavePostJob{}, nil
	case JobUpdatePost:
		return &UpdatePostJob{}, nil
	case JobDeletePost:
		return &DeletePostJob{}, nil
	case JobAddReaction:
		return &AddReactionJob{}, nil
	case JobRemoveReaction:
		return &RemoveReactionJob{}, nil
	case JobAddComment:
		return &AddCommentJob{}, nil
	case JobRemoveComment:
		return &RemoveCommentJob{}, nil
	case JobForgotPassword:
		return &EmailJob{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
}

// Decode parses payload into the variant registered under name
func Decode(name string, payload []byte) (Job, error) {
	job, err := newJob(name)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, job); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", name, err)
	}
	return job, nil
}

// QueueOf returns the queue of the job registered under name
func QueueOf(name string) (string, error) {
	job, err := newJob(name)
	if err != nil {
		return "", err
	}
	return job.Queue(), nil
}

// Queues lists every queue in a stable order
func Queues() []string {
	return []string{QueueAuth, QueueUser, QueuePost, QueueReactions, QueueComments, QueueEmails}
}
