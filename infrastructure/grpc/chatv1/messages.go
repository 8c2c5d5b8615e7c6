// Package chatv1 holds the chat.v1 wire contract: message types, the JSON codec
// and the service descriptor shared by server and clients.
package chatv1

import "time"

type Message struct {
	Id        uint64    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClientEvent is sent by clients on the Connect stream. Only send_message is accepted.
type ClientEvent struct {
	Event  string `json:"event"`
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
}

// ServerEvent carries exactly one of Messages (load_messages), Message (receive_message) or Error.
type ServerEvent struct {
	Event    string    `json:"event"`
	Messages []Message `json:"messages,omitempty"`
	Message  *Message  `json:"message,omitempty"`
	Error    *Error    `json:"error,omitempty"`
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int32  `json:"limit"`
}

type SearchResponse struct {
	Messages []Message `json:"messages"`
}
