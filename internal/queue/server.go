package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sociallink/backend/pkg/config"
	"github.com/sociallink/backend/pkg/logging"
	"github.com/sociallink/backend/pkg/telemetry"
)

// HandlerFunc processes one decoded job. A returned error hands the job back to the
// queue for retry.
type HandlerFunc func(ctx context.Context, job Job) error

type registration struct {
	queue       string
	concurrency int
	sem         *semaphore.Weighted
	handle      HandlerFunc
}

// Server runs the registered job handlers
type Server struct {
	opt    asynq.RedisConnOpt
	cfg    *config.QueueConfig
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[string]*registration

	processed metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewServer creates a job server on the broker opt
func NewServer(opt asynq.RedisConnOpt, cfg *config.QueueConfig) *Server {
	s := &Server{
		opt:      opt,
		cfg:      cfg,
		logger:   logging.WithComponent("queue"),
		handlers: make(map[string]*registration),
	}

	meter := telemetry.Meter()
	var err error
	s.processed, err = meter.Int64Counter("queue.jobs.processed",
		metric.WithDescription("Jobs processed, by queue, job and outcome"))
	if err != nil {
		s.logger.Warn("Failed to create job counter", zap.Error(err))
	}
	s.duration, err = meter.Float64Histogram("queue.job.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Job handler duration"))
	if err != nil {
		s.logger.Warn("Failed to create job duration histogram", zap.Error(err))
	}
	return s
}

// Register installs the handler of the job called name. At most concurrency jobs
// of that name run at once. Each name can be registered once.
func (s *Server) Register(name string, concurrency int, handle HandlerFunc) error {
	queue, err := QueueOf(name)
	if err != nil {
		return err
	}
	if concurrency < 1 {
		return fmt.Errorf("concurrency of %s must be positive, got %d", name, concurrency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handlers[name]; ok {
		return fmt.Errorf("handler for %s already registered", name)
	}
	s.handlers[name] = &registration{
		queue:       queue,
		concurrency: concurrency,
		sem:         semaphore.NewWeighted(int64(concurrency)),
		handle:      handle,
	}
	return nil
}

// ProcessTask implements asynq.Handler
func (s *Server) ProcessTask(ctx context.Context, task *asynq.Task) error {
	name := task.Type()

	s.mu.RLock()
	reg, ok := s.handlers[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: no handler for %q: %w", ErrUnknownJob, name, asynq.SkipRetry)
	}

	job, err := Decode(name, task.Payload())
	if err != nil {
		s.logger.Error("Dropping malformed job", zap.String("job", name), zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := reg.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer reg.sem.Release(1)

	return s.run(ctx, reg, job)
}

func (s *Server) run(ctx context.Context, reg *registration, job Job) error {
	logger := logging.WithJob(reg.queue, job.Name())

	ctx, span := telemetry.StartSpan(ctx, "queue."+job.Name())
	defer span.End()
	span.SetAttributes(
		attribute.String("queue", reg.queue),
		attribute.String("job", job.Name()),
	)

	start := time.Now()
	err := reg.handle(ctx, job)
	took := time.Since(start)

	outcome := "completed"
	if err != nil {
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Job failed", zap.Duration("took", took), zap.Error(err))
	} else {
		logger.Debug("Job completed", zap.Duration("took", took))
	}

	attrs := metric.WithAttributes(
		attribute.String("queue", reg.queue),
		attribute.String("job", job.Name()),
		attribute.String("outcome", outcome),
	)
	if s.processed != nil {
		s.processed.Add(ctx, 1, attrs)
	}
	if s.duration != nil {
		s.duration.Record(ctx, took.Seconds(), attrs)
	}
	return err
}

// concurrency returns the worker count and queue weights for the registered handlers
func (s *Server) concurrency() (int, map[string]int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	weights := make(map[string]int)
	for _, reg := range s.handlers {
		total += reg.concurrency
		weights[reg.queue] += reg.concurrency
	}
	return total, weights
}

// Run processes jobs until ctx is done
func (s *Server) Run(ctx context.Context) error {
	total, weights := s.concurrency()
	if total == 0 {
		return errors.New("no job handlers registered")
	}

	retryDelay := s.cfg.RetryDelay
	srv := asynq.NewServer(s.opt, asynq.Config{
		Concurrency: total,
		Queues:      weights,
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			return retryDelay
		},
		Logger:          s.logger.Sugar(),
		ShutdownTimeout: 10 * time.Second,
	})

	if err := srv.Start(s); err != nil {
		return fmt.Errorf("failed to start job server: %w", err)
	}
	s.logger.Info("Job server started", zap.Int("concurrency", total), zap.Any("queues", weights))

	<-ctx.Done()
	srv.Shutdown()
	s.logger.Info("Job server stopped")
	return nil
}
