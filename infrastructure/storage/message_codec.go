package storage

import (
	"chat-relay/domain"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the persisted message record.
// They follow the protobuf wire format so records stay readable by any protobuf tooling.
const (
	fieldID        protowire.Number = 1
	fieldAuthor    protowire.Number = 2
	fieldText      protowire.Number = 3
	fieldCreatedAt protowire.Number = 4
)

// DiskMessage is the persisted layout of a message.
type DiskMessage struct {
	ID        uint64
	Author    string
	Text      string
	CreatedAt int64 // unix nanoseconds
}

func marshalDiskMessage(m DiskMessage) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, m.ID)
	b = protowire.AppendTag(b, fieldAuthor, protowire.BytesType)
	b = protowire.AppendString(b, m.Author)
	b = protowire.AppendTag(b, fieldText, protowire.BytesType)
	b = protowire.AppendString(b, m.Text)
	b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.CreatedAt))
	return b
}

func unmarshalDiskMessage(b []byte) (DiskMessage, error) {
	var m DiskMessage
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return DiskMessage{}, fmt.Errorf("invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return DiskMessage{}, fmt.Errorf("invalid id: %w", protowire.ParseError(n))
			}
			m.ID = v
			b = b[n:]
		case num == fieldAuthor && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return DiskMessage{}, fmt.Errorf("invalid author: %w", protowire.ParseError(n))
			}
			m.Author = v
			b = b[n:]
		case num == fieldText && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return DiskMessage{}, fmt.Errorf("invalid text: %w", protowire.ParseError(n))
			}
			m.Text = v
			b = b[n:]
		case num == fieldCreatedAt && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return DiskMessage{}, fmt.Errorf("invalid created_at: %w", protowire.ParseError(n))
			}
			m.CreatedAt = int64(v)
			b = b[n:]
		default:
			// Unknown fields are skipped to stay compatible with newer records
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return DiskMessage{}, fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, nil
}

func fromMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:        uint64(message.ID),
		Author:    message.Author,
		Text:      message.Text,
		CreatedAt: message.CreatedAt.UnixNano(),
	}
}

func toMessage(m DiskMessage) domain.Message {
	return domain.Message{
		ID:        domain.MessageID(m.ID),
		Author:    m.Author,
		Text:      m.Text,
		CreatedAt: time.Unix(0, m.CreatedAt).UTC(),
	}
}

// DecodeMessage decodes a raw Badger value into a message.
func DecodeMessage(value []byte) (domain.Message, error) {
	m, err := unmarshalDiskMessage(value)
	if err != nil {
		return domain.Message{}, err
	}
	return toMessage(m), nil
}
