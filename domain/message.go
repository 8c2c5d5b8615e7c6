// Package domain contains core concepts of the chat relay.
// This file defines Message records and the rules a submission must satisfy.
// Messages are immutable once the store has assigned their id.
package domain

import (
	"fmt"
	"time"
)

// AnonymousAuthor is used when a submission carries no author.
const AnonymousAuthor = "Anonymous"

// MessageID is assigned by the store at persistence time and defines the total order.
type MessageID uint64

func (id MessageID) String() string {
	return fmt.Sprintf("%020d", uint64(id))
}

// Message represents an immutable chat record.
type Message struct {
	ID        MessageID
	Author    string
	Text      string
	CreatedAt time.Time
}
