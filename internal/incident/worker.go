package incident

import (
	"context"
	"log/slog"
)

// Publisher ships incidents to an external system (Kafka, dashboard queue).
type Publisher interface {
	Publish(ctx context.Context, inc Incident) error
}

// Worker consumes incidents from a channel and hands them to a publisher.
// Publish failures are logged and skipped; the store copy written by the
// recorder remains authoritative.
type Worker struct {
	publisher Publisher
	inbox     <-chan Incident
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, inbox <-chan Incident, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case inc := <-w.inbox:
			if err := w.publisher.Publish(ctx, inc); err != nil {
				w.logger.ErrorContext(ctx, "incident publish failed",
					"incident_id", inc.ID.String(), "error", err)
			}
		}
	}
}
