// Package publisher emits audit events. The caller blocks until the durable
// store write finishes; stream forwarding is handed to the background worker
// through a bounded inbox and never blocks a settlement operation.
package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bondly/pkg/platform/audit"
)

type Publisher struct {
	store  audit.Store
	inbox  chan<- audit.Event
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithInbox attaches the worker inbox for stream forwarding.
func WithInbox(inbox chan<- audit.Event) Option {
	return func(p *Publisher) {
		p.inbox = inbox
	}
}

// WithLogger sets a logger for dropped-forward warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit persists the event synchronously and returns any store error to the
// caller. ID and timestamp are assigned here when absent.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.inbox != nil {
		select {
		case p.inbox <- event:
		default:
			// The stream is best-effort; the durable store already has the
			// event.
			if p.logger != nil {
				p.logger.WarnContext(ctx, "audit stream inbox full, dropping forward",
					"action", event.Action,
					"event_id", event.ID,
				)
			}
		}
	}
	return nil
}
