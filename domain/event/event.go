package event

import "chat-relay/domain"

// Names of the events exchanged with clients.
const (
	LoadMessagesName    = "load_messages"
	SendMessageName     = "send_message"
	ReceiveMessageName  = "receive_message"
	MessageRejectedName = "error"
)

type DomainEvent interface {
	Name() string
}

// HistoryLoaded is delivered once per session, before it goes live.
// Messages are ordered oldest-first.
type HistoryLoaded struct {
	Messages []domain.Message
}

func (HistoryLoaded) Name() string { return LoadMessagesName }

// MessagePosted is emitted after a message has been durably stored.
type MessagePosted struct {
	Message domain.Message
}

func (MessagePosted) Name() string { return ReceiveMessageName }

// MessageRejected is only ever delivered to the session that submitted the message.
type MessageRejected struct {
	Code   string
	Reason string
}

func (MessageRejected) Name() string { return MessageRejectedName }
