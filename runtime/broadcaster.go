package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	goerrors "errors"
	"log/slog"
)

// Broadcaster delivers a persisted message to a snapshot of active sessions.
// Delivery is fire-and-forget: a failing session is logged and skipped,
// the sender is never told about it and nothing is retried.
type Broadcaster struct {
	log *slog.Logger
}

func NewBroadcaster(log *slog.Logger) *Broadcaster {
	return &Broadcaster{log: log}
}

// Broadcast enqueues one MessagePosted per session, sender included.
func (b *Broadcaster) Broadcast(ctx context.Context, msg domain.Message, sessions []contract.Session) (delivered, failed int) {
	evt := event.MessagePosted{Message: msg}
	for _, session := range sessions {
		err := session.Sink.Consume(ctx, evt)
		switch {
		case err == nil:
			delivered++
		case goerrors.Is(err, errors.ErrTransportClosed):
			// Already going away, the transport removes it.
		default:
			failed++
			b.log.Warn("Delivery failed", "session", session.ID, "message", msg.ID, "error", err)
		}
	}
	return delivered, failed
}
