package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"time"
)

// EventFanout hands persisted events to the permanent sinks (search index, projections).
//
// It provides best-effort fan-out with no guarantees regarding delivery
// or retries. Each sink gets its own deadline so a slow one can't stall the others.
// Live delivery to sessions never goes through here.
type EventFanout struct {
	log         *slog.Logger
	events      <-chan event.DomainEvent
	sinks       []contract.EventSink
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, sinks []contract.EventSink,
	events <-chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, sinks: sinks, events: events, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Event channel closed, stopping fanout")
				return nil
			}
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		}
	}
}

// Fanout One sink after the other, each one bounded by the sink timeout
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		w.consume(ctx, sink, evt)
	}
}

func (w *EventFanout) consume(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- sink.Consume(sinkCtx, evt)
	}()

	select {
	case err := <-result:
		if err != nil {
			w.log.Warn("Permanent sink failed", "event", evt.Name(), "error", err)
		}
	case <-sinkCtx.Done():
		w.log.Warn("Permanent sink timed out", "event", evt.Name(), "timeout", w.sinkTimeout)
	}
}
