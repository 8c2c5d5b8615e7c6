package sink

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"fmt"
	"sync"
)

// SessionSink is the send queue of one live connection.
// Consume never blocks: when the queue is full the sink closes itself
// and the owning transport tears the connection down.
type SessionSink struct {
	events chan event.DomainEvent
	done   chan struct{}
	once   sync.Once
}

func NewSessionSink(bufferSize int) *SessionSink {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &SessionSink{
		events: make(chan event.DomainEvent, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume is called by the relay.
// Redirect the event through the concerned owner of the channel
// The transport writer will take it from now
func (s *SessionSink) Consume(_ context.Context, e event.DomainEvent) error {
	select {
	case <-s.done:
		return errors.ErrTransportClosed
	default:
	}

	select {
	case s.events <- e:
		return nil
	default:
		s.Close()
		return fmt.Errorf("%w: send queue full (%d)", errors.ErrDeliveryFailure, cap(s.events))
	}
}

// Events is drained by exactly one writer goroutine.
func (s *SessionSink) Events() <-chan event.DomainEvent {
	return s.events
}

// Done is closed once the sink stops accepting events.
func (s *SessionSink) Done() <-chan struct{} {
	return s.done
}

func (s *SessionSink) Close() {
	s.once.Do(func() { close(s.done) })
}
