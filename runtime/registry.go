package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"sync"
)

var _ contract.IRegistry = (*Registry)(nil)

// Registry tracks every connected session and the subset eligible for broadcast.
// A session is created on connection, activated once its history has been sent,
// and removed on disconnection. It owns the transport sinks and never persists them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]contract.Session
	active   map[domain.SessionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.SessionID]contract.Session),
		active:   make(map[domain.SessionID]struct{}),
	}
}

// CreateSession allocates a session record. It does not receive broadcasts until activated.
func (r *Registry) CreateSession(author string, sink contract.EventSink) contract.Session {
	session := contract.Session{
		ID:     domain.NewSessionID(),
		Author: author,
		Sink:   sink,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return session
}

// Activate makes a created session eligible for future broadcasts.
func (r *Registry) Activate(id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return errors.ErrUnknownSession
	}
	r.active[id] = struct{}{}
	return nil
}

// Remove forgets the session and releases its sink. Removing twice is a no-op.
func (r *Registry) Remove(id domain.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[id]
	delete(r.sessions, id)
	delete(r.active, id)
	return ok
}

// ActiveSessions returns a snapshot of the sessions eligible for broadcast.
func (r *Registry) ActiveSessions() []contract.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]contract.Session, 0, len(r.active))
	for id := range r.active {
		sessions = append(sessions, r.sessions[id])
	}
	return sessions
}

func (r *Registry) Count() (created, active int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), len(r.active)
}
