package worker

import (
	"context"

	"github.com/sociallink/backend/internal/queue"
)

// EmailWorker delivers email jobs
type EmailWorker struct {
	mailer Mailer
}

// NewEmailWorker creates an email worker
func NewEmailWorker(mailer Mailer) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

// Handle implements queue.HandlerFunc
func (w *EmailWorker) Handle(ctx context.Context, job queue.Job) error {
	j, ok := job.(*queue.EmailJob)
	if !ok {
		return unexpected(job)
	}
	return w.mailer.Send(ctx, j.ReceiverEmail, j.Subject, j.Template)
}
