package audit

import (
	"context"
	"log/slog"
	"time"
)

// Sink receives audit events. Implementations must be safe for concurrent
// use.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher buffers audit events on a channel so emitting never blocks the
// flow. A Worker drains the channel into the configured sink. Events are
// dropped (and counted in logs) when the buffer is full; auditing is
// best-effort and must not stall issuance.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{
		inbox:  make(chan Event, 256),
		logger: logger,
	}
}

// Emit enqueues an event, stamping the time if unset.
func (p *Publisher) Emit(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
	}
}

// Inbox exposes the event channel for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
