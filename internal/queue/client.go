package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/sociallink/backend/pkg/config"
	"github.com/sociallink/backend/pkg/logging"
)

// Enqueuer is the producing side of the job queue
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
	Dispatch(ctx context.Context, job Job)
}

// RedisOpt parses the broker URL of cfg
func RedisOpt(cfg *config.QueueConfig) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse queue Redis URL: %w", err)
	}
	return opt, nil
}

// Client enqueues jobs onto their queues
type Client struct {
	client   *asynq.Client
	maxRetry int
	logger   *zap.Logger
}

// NewClient creates a queue client on the broker opt
func NewClient(opt asynq.RedisConnOpt, cfg *config.QueueConfig) *Client {
	return &Client{
		client:   asynq.NewClient(opt),
		maxRetry: cfg.MaxRetry,
		logger:   logging.WithComponent("queue"),
	}
}

// Enqueue adds job to its queue
func (c *Client) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", job.Name(), err)
	}

	task := asynq.NewTask(job.Name(), payload)
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(job.Queue()),
		asynq.MaxRetry(c.maxRetry),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", job.Name(), err)
	}

	c.logger.Debug("Job enqueued",
		zap.String("queue", info.Queue),
		zap.String("job", job.Name()),
		zap.String("task_id", info.ID),
	)
	return nil
}

// Dispatch enqueues job without reporting failure to the caller. A failed enqueue is
// logged; the durable store then misses the change.
func (c *Client) Dispatch(ctx context.Context, job Job) {
	// the job must survive the end of the request that produced it
	ctx = context.WithoutCancel(ctx)
	if err := c.Enqueue(ctx, job); err != nil {
		c.logger.Error("Failed to dispatch job",
			zap.String("queue", job.Queue()),
			zap.String("job", job.Name()),
			zap.Error(err),
		)
	}
}

// Close closes the broker connection
func (c *Client) Close() error {
	return c.client.Close()
}
