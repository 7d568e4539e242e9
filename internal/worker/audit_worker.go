package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/events"
	"github.com/spec-kit/console-access/internal/service"
)

// ErrQueueFull is returned to the publisher when the audit queue has no room.
var ErrQueueFull = errors.New("audit queue full")

// AuditWorker writes the audit trail off the request path. Events are queued
// by a dispatcher subscription and written by a single goroutine, so entries
// keep publish order.
type AuditWorker struct {
	audit  *service.AuditService
	queue  chan events.Event
	logger *zap.Logger
}

// NewAuditWorker creates a worker with room for buffer pending events.
func NewAuditWorker(audit *service.AuditService, buffer int, logger *zap.Logger) *AuditWorker {
	if buffer < 1 {
		buffer = 1
	}
	return &AuditWorker{
		audit:  audit,
		queue:  make(chan events.Event, buffer),
		logger: logger,
	}
}

// Subscribe queues every audited event published on dispatcher.
func (w *AuditWorker) Subscribe(dispatcher events.Dispatcher) {
	for _, eventType := range service.AuditedEvents {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
}

func (w *AuditWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run writes queued events until ctx is done, then drains what is already
// queued and returns.
func (w *AuditWorker) Run(ctx context.Context) {
	for {
		select {
		case event := <-w.queue:
			w.write(event)
		case <-ctx.Done():
			w.drain()
			return
		}
	}
}

func (w *AuditWorker) drain() {
	for {
		select {
		case event := <-w.queue:
			w.write(event)
		default:
			return
		}
	}
}

func (w *AuditWorker) write(event events.Event) {
	if err := w.audit.Handle(context.Background(), event); err != nil {
		w.logger.Warn("audit write failed", zap.String("event_id", event.ID), zap.Error(err))
	}
}
