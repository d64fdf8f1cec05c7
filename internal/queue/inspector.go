package queue

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

// QueueStats is a snapshot of one queue
type QueueStats struct {
	Queue     string `json:"queue"`
	Size      int    `json:"size"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Processed int    `json:"processedToday"`
	Failed    int    `json:"failedToday"`
	Paused    bool   `json:"paused"`
}

// Inspector reads queue state from the broker
type Inspector struct {
	inspector *asynq.Inspector
}

// NewInspector creates an inspector on the broker opt
func NewInspector(opt asynq.RedisConnOpt) *Inspector {
	return &Inspector{inspector: asynq.NewInspector(opt)}
}

// Stats returns a snapshot of every known queue. Queues that never received a job
// are reported empty.
func (i *Inspector) Stats(ctx context.Context) ([]QueueStats, error) {
	stats := make([]QueueStats, 0, len(Queues()))
	for _, name := range Queues() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := i.inspector.GetQueueInfo(name)
		if errors.Is(err, asynq.ErrQueueNotFound) {
			stats = append(stats, QueueStats{Queue: name})
			continue
		}
		if err != nil {
			return nil, err
		}

		stats = append(stats, QueueStats{
			Queue:     info.Queue,
			Size:      info.Size,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Archived:  info.Archived,
			Processed: info.Processed,
			Failed:    info.Failed,
			Paused:    info.Paused,
		})
	}
	return stats, nil
}

// Close closes the broker connection
func (i *Inspector) Close() error {
	return i.inspector.Close()
}
