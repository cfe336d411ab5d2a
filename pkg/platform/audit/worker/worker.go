// Package worker drains the audit inbox and forwards events to the external
// stream. Forwarding is fail-open: a stream outage is logged, never fatal.
package worker

import (
	"context"
	"log/slog"

	"bondly/pkg/platform/audit"
)

type Worker struct {
	stream audit.Stream
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(stream audit.Stream, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{stream: stream, inbox: inbox, logger: logger}
}

// Run forwards events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.stream.Publish(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "audit stream publish failed",
					"action", event.Action,
					"event_id", event.ID,
					"error", err,
				)
			}
		}
	}
}
