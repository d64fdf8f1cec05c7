package worker

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sociallink/backend/internal/cache"
	"github.com/sociallink/backend/internal/cache/cachetest"
	"github.com/sociallink/backend/internal/models"
	"github.com/sociallink/backend/internal/queue"
	"github.com/sociallink/backend/pkg/config"
)

type fakePostStore struct {
	mu       sync.Mutex
	failures int
	calls    int
	created  []*models.Post
	deleted  []string
}

func (f *fakePostStore) Create(_ context.Context, _ string, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("store unavailable")
	}
	f.created = append(f.created, post)
	return nil
}

func (f *fakePostStore) Update(context.Context, string, *models.Post) error { return nil }

func (f *fakePostStore) Delete(_ context.Context, postID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, postID)
	return nil
}

type fakeReactionStore struct {
	added    []*models.Reaction
	previous []models.ReactionType
	removed  []string
}

func (f *fakeReactionStore) Add(_ context.Context, r *models.Reaction, previous models.ReactionType) error {
	f.added = append(f.added, r)
	f.previous = append(f.previous, previous)
	return nil
}

func (f *fakeReactionStore) Remove(_ context.Context, postID, username string, _ models.ReactionType) error {
	f.removed = append(f.removed, postID+"/"+username)
	return nil
}

type fakeCommentStore struct{ added, removed int }

func (f *fakeCommentStore) Add(context.Context, *models.Comment) error  { f.added++; return nil }
func (f *fakeCommentStore) Remove(context.Context, string, string) error { f.removed++; return nil }

type fakeUserStore struct{ created int }

func (f *fakeUserStore) Create(context.Context, *models.User) error { f.created++; return nil }

type fakeAuthStore struct{ created int }

func (f *fakeAuthStore) Create(context.Context, *models.AuthUser) error { f.created++; return nil }

type fakeMailer struct {
	to, subject, html string
	err               error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	if f.err != nil {
		return f.err
	}
	f.to, f.subject, f.html = to, subject, html
	return nil
}

func newServer(t *testing.T, stores Stores) *queue.Server {
	t.Helper()
	s := queue.NewServer(nil, &config.QueueConfig{Concurrency: 5, MaxRetry: 3, RetryDelay: time.Millisecond})
	if err := Register(s, stores, 5); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return s
}

func newTask(t *testing.T, job queue.Job) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	return asynq.NewTask(job.Name(), payload)
}

// deliver hands task to s the way the queue engine does: a failed attempt is
// retried until it succeeds, the error is marked final or the retry budget is spent
func deliver(ctx context.Context, s *queue.Server, task *asynq.Task, maxRetry int) (attempts int, err error) {
	for attempts = 1; ; attempts++ {
		err = s.ProcessTask(ctx, task)
		if err == nil || errors.Is(err, asynq.SkipRetry) || attempts > maxRetry {
			return attempts, err
		}
	}
}

func allStores() (Stores, *fakePostStore, *fakeReactionStore, *fakeMailer) {
	posts := &fakePostStore{}
	reactions := &fakeReactionStore{}
	mailer := &fakeMailer{}
	return Stores{
		Posts:     posts,
		Reactions: reactions,
		Comments:  &fakeCommentStore{},
		Users:     &fakeUserStore{},
		Auth:      &fakeAuthStore{},
		Mailer:    mailer,
	}, posts, reactions, mailer
}

func TestSavePostIsRetriedWithoutTouchingCache(t *testing.T) {
	c, _ := cachetest.New(t)
	posts := cache.NewPostCache(c)
	ctx := context.Background()

	post := &models.Post{
		ID:        "p1",
		UserID:    "u1",
		Username:  "Manny",
		Body:      "hello",
		Privacy:   models.PrivacyPublic,
		Reactions: models.NewReactions(),
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := posts.Save(ctx, cache.SavePostInput{Key: "p1", CurrentUserID: "u1", UID: "42", Post: post}); err != nil {
		t.Fatal(err)
	}
	before, err := posts.Get(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}

	stores, store, _, _ := allStores()
	store.failures = 2
	s := newServer(t, stores)

	attempts, err := deliver(ctx, s, newTask(t, &queue.SavePostJob{Key: "u1", Value: post}), 3)
	if err != nil {
		t.Fatalf("job failed after %d attempts: %v", attempts, err)
	}
	if store.calls != 3 || attempts != 3 {
		t.Errorf("handler invoked %d times over %d attempts, want 3", store.calls, attempts)
	}
	if len(store.created) != 1 {
		t.Errorf("stored %d posts, want 1", len(store.created))
	}

	after, err := posts.Get(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("cache changed by retries:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestRetryBudgetExhausted(t *testing.T) {
	stores, store, _, _ := allStores()
	store.failures = 100
	s := newServer(t, stores)

	attempts, err := deliver(context.Background(), s, newTask(t, &queue.SavePostJob{Key: "u1", Value: &models.Post{ID: "p1"}}), 3)
	if err == nil {
		t.Fatal("job succeeded against a failing store")
	}
	if attempts != 4 || store.calls != 4 {
		t.Errorf("attempts = %d, calls = %d; want 4 (first try plus 3 retries)", attempts, store.calls)
	}
}

func TestHandlersRouteJobs(t *testing.T) {
	stores, posts, reactions, mailer := allStores()
	s := newServer(t, stores)
	ctx := context.Background()

	jobs := []queue.Job{
		&queue.DeletePostJob{KeyOne: "p1", KeyTwo: "u1"},
		&queue.AddReactionJob{
			PostID:           "p1",
			Username:         "Manny",
			Type:             models.ReactionLove,
			PreviousReaction: models.ReactionLike,
			ReactionObject:   &models.Reaction{ID: "r1", PostID: "p1", Username: "Manny", Type: models.ReactionLove},
		},
		&queue.RemoveReactionJob{PostID: "p1", Username: "Manny"},
		&queue.AddCommentJob{PostID: "p1", Comment: &models.Comment{ID: "c1", PostID: "p1"}},
		&queue.RemoveCommentJob{PostID: "p1", CommentID: "c1"},
		&queue.AddUserJob{Value: &models.User{ID: "u1"}},
		&queue.AddAuthUserJob{Value: &models.AuthUser{ID: "a1"}},
		&queue.EmailJob{ReceiverEmail: "manny@example.com", Subject: "Reset Your Password", Template: "<p>x</p>"},
	}
	for _, job := range jobs {
		if err := s.ProcessTask(ctx, newTask(t, job)); err != nil {
			t.Errorf("%s: ProcessTask() error = %v", job.Name(), err)
		}
	}

	if len(posts.deleted) != 1 || posts.deleted[0] != "p1" {
		t.Errorf("deleted posts = %v", posts.deleted)
	}
	if len(reactions.added) != 1 || reactions.previous[0] != models.ReactionLike {
		t.Errorf("added reactions = %v, previous = %v", reactions.added, reactions.previous)
	}
	if len(reactions.removed) != 1 || reactions.removed[0] != "p1/Manny" {
		t.Errorf("removed reactions = %v", reactions.removed)
	}
	comments := stores.Comments.(*fakeCommentStore)
	if comments.added != 1 || comments.removed != 1 {
		t.Errorf("comments added %d removed %d", comments.added, comments.removed)
	}
	if stores.Users.(*fakeUserStore).created != 1 || stores.Auth.(*fakeAuthStore).created != 1 {
		t.Error("user or auth job not applied")
	}
	if mailer.to != "manny@example.com" || mailer.subject != "Reset Your Password" {
		t.Errorf("mailer got to=%q subject=%q", mailer.to, mailer.subject)
	}
}

func TestMissingPayloadIsNotRetried(t *testing.T) {
	stores, posts, reactions, _ := allStores()
	s := newServer(t, stores)

	tests := []struct {
		name string
		job  queue.Job
	}{
		{"save post", &queue.SavePostJob{Key: "u1"}},
		{"update post", &queue.UpdatePostJob{Key: "p1"}},
		{"add reaction", &queue.AddReactionJob{PostID: "p1", Username: "Manny", Type: models.ReactionLike}},
		{"add comment", &queue.AddCommentJob{PostID: "p1", Username: "Manny"}},
		{"add user", &queue.AddUserJob{}},
		{"add auth user", &queue.AddAuthUserJob{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts, err := deliver(context.Background(), s, newTask(t, tt.job), 3)
			if !errors.Is(err, asynq.SkipRetry) {
				t.Errorf("error = %v, want SkipRetry", err)
			}
			if attempts != 1 {
				t.Errorf("attempts = %d, want 1", attempts)
			}
		})
	}
	if len(posts.created) != 0 || len(reactions.added) != 0 {
		t.Errorf("stores written: %d posts, %d reactions", len(posts.created), len(reactions.added))
	}
}

func TestEmailFailureIsRetried(t *testing.T) {
	stores, _, _, mailer := allStores()
	mailer.err = errors.New("smtp down")
	s := newServer(t, stores)

	job := &queue.EmailJob{ReceiverEmail: "manny@example.com", Subject: "s", Template: "t"}
	err := s.ProcessTask(context.Background(), newTask(t, job))
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Errorf("ProcessTask() error = %v, want retryable error", err)
	}
}
