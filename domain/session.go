package domain

import "github.com/google/uuid"

// SessionID identifies one live connection. It is never reused across reconnects.
type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}
