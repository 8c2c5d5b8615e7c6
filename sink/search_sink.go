package sink

import (
	"chat-relay/domain/event"
	"chat-relay/infrastructure/storage"
	"context"
	"log/slog"
)

// SearchSink feeds persisted messages into the full-text index.
type SearchSink struct {
	index storage.ISearchIndex
	log   *slog.Logger
}

func NewSearchSink(index storage.ISearchIndex, log *slog.Logger) SearchSink {
	return SearchSink{index: index, log: log}
}

func (s SearchSink) Consume(ctx context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessagePosted:
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.index.Index(evt.Message)
	default:
		s.log.Debug("Event ignored by search sink", "event", e.Name())
		return nil
	}
}
