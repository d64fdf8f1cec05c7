package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sociallink/backend/pkg/config"
)

func newTestServer() *Server {
	return NewServer(nil, &config.QueueConfig{Concurrency: 5, MaxRetry: 3, RetryDelay: time.Second})
}

func task(t *testing.T, job Job) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	return asynq.NewTask(job.Name(), payload)
}

func TestServer_Register(t *testing.T) {
	s := newTestServer()
	noop := func(context.Context, Job) error { return nil }

	if err := s.Register(JobSavePost, 5, noop); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.Register(JobSavePost, 5, noop); err == nil {
		t.Error("Register() accepted a second handler for the same job")
	}
	if err := s.Register("sendSpam", 5, noop); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Register(unknown) error = %v, want ErrUnknownJob", err)
	}
	if err := s.Register(JobDeletePost, 0, noop); err == nil {
		t.Error("Register() accepted zero concurrency")
	}

	if err := s.Register(JobDeletePost, 5, noop); err != nil {
		t.Fatal(err)
	}
	if err := s.Register(JobAddComment, 5, noop); err != nil {
		t.Fatal(err)
	}
	total, weights := s.concurrency()
	if total != 15 {
		t.Errorf("total concurrency = %d, want 15", total)
	}
	if weights[QueuePost] != 10 || weights[QueueComments] != 5 {
		t.Errorf("weights = %v", weights)
	}
}

func TestServer_ProcessTask(t *testing.T) {
	s := newTestServer()

	var got *SavePostJob
	err := s.Register(JobSavePost, 5, func(_ context.Context, job Job) error {
		got = job.(*SavePostJob)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.ProcessTask(context.Background(), task(t, &SavePostJob{Key: "u1"})); err != nil {
		t.Fatalf("ProcessTask() error = %v", err)
	}
	if got == nil || got.Key != "u1" {
		t.Errorf("handler received %+v", got)
	}
}

func TestServer_FailuresAreRetryable(t *testing.T) {
	s := newTestServer()
	boom := errors.New("store down")
	if err := s.Register(JobAddComment, 5, func(context.Context, Job) error { return boom }); err != nil {
		t.Fatal(err)
	}

	err := s.ProcessTask(context.Background(), task(t, &AddCommentJob{PostID: "p1"}))
	if !errors.Is(err, boom) {
		t.Errorf("ProcessTask() error = %v, want handler error", err)
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Error("handler failure marked as not retryable")
	}
}

func TestServer_MalformedJobsSkipRetry(t *testing.T) {
	s := newTestServer()
	called := false
	if err := s.Register(JobAddComment, 5, func(context.Context, Job) error { called = true; return nil }); err != nil {
		t.Fatal(err)
	}

	err := s.ProcessTask(context.Background(), asynq.NewTask(JobAddComment, []byte(`{"postId":`)))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("malformed payload error = %v, want SkipRetry", err)
	}
	if called {
		t.Error("handler called with a malformed payload")
	}

	err = s.ProcessTask(context.Background(), asynq.NewTask(JobRemoveComment, []byte(`{}`)))
	if !errors.Is(err, asynq.SkipRetry) || !errors.Is(err, ErrUnknownJob) {
		t.Errorf("unregistered job error = %v, want SkipRetry and ErrUnknownJob", err)
	}
}

func TestServer_ConcurrencyLimit(t *testing.T) {
	s := newTestServer()

	var running, peak int32
	release := make(chan struct{})
	err := s.Register(JobAddReaction, 2, func(context.Context, Job) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	tk := task(t, &AddReactionJob{PostID: "p1"})
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ProcessTask(context.Background(), tk); err != nil {
				t.Errorf("ProcessTask() error = %v", err)
			}
		}()
	}

	// let the goroutines pile up on the semaphore
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak)
	}
	if peak == 0 {
		t.Error("handler never ran")
	}
}

func TestServer_RunWithoutHandlers(t *testing.T) {
	if err := newTestServer().Run(context.Background()); err == nil {
		t.Error("Run() started with no handlers")
	}
}
