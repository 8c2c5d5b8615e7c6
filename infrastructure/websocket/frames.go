package websocket

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Envelope is the JSON text frame exchanged in both directions.
type Envelope struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
	Author string          `json:"author,omitempty"`
}

type MessageDTO struct {
	ID        uint64    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type ErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ToMessageDTO(m domain.Message) MessageDTO {
	return MessageDTO{ID: uint64(m.ID), Author: m.Author, Text: m.Text, CreatedAt: m.CreatedAt}
}

// EncodeEvent renders a domain event as an outgoing frame.
func EncodeEvent(e event.DomainEvent) ([]byte, error) {
	var data any
	switch evt := e.(type) {
	case event.HistoryLoaded:
		data = lo.Map(evt.Messages, func(m domain.Message, _ int) MessageDTO { return ToMessageDTO(m) })
	case event.MessagePosted:
		data = ToMessageDTO(evt.Message)
	case event.MessageRejected:
		data = ErrorDTO{Code: evt.Code, Message: evt.Reason}
	default:
		return nil, fmt.Errorf("unsupported event %q", e.Name())
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: e.Name(), Data: raw})
}

// DecodeSendMessage extracts the text of a send_message frame.
func DecodeSendMessage(env Envelope) (string, error) {
	var text string
	if err := json.Unmarshal(env.Data, &text); err != nil {
		return "", fmt.Errorf("data must be a string: %w", err)
	}
	return text, nil
}
