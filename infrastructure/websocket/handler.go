// Package websocket exposes the relay to browsers and terminals as JSON text frames.
package websocket

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/services"
	"chat-relay/sink"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const transportName = "websocket"

type Handler struct {
	service    services.IChatService
	log        *slog.Logger
	bufferSize int
	upgrader   websocket.Upgrader
}

func NewHandler(service services.IChatService, log *slog.Logger, bufferSize int) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection, replays history and serves the session until it goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Upgrade error", "remote", r.RemoteAddr, "error", err)
		return
	}

	author := auth.UserIDFromContext(r.Context())
	session := NewSession(conn, sink.NewSessionSink(h.bufferSize), author, h.log)
	// Sessions outlive the upgrade request context.
	ctx := context.WithoutCancel(r.Context())

	id, err := h.service.Connect(ctx, author, session.sink)
	if err != nil {
		h.log.Error("Session refused", "remote", r.RemoteAddr, "error", err)
		session.CloseWithReason(websocket.CloseInternalServerErr, errors.Code(err))
		return
	}
	session.ID = id
	session.Start()

	observability.SessionsActive.WithLabelValues(transportName).Inc()
	h.log.Info("Connected", "session", id, "remote", r.RemoteAddr)

	h.readLoop(ctx, session)
}

func (h *Handler) readLoop(ctx context.Context, s *Session) {
	defer func() {
		h.service.Disconnect(s.ID)
		s.Close()
		observability.SessionsActive.WithLabelValues(transportName).Dec()
		h.log.Info("Disconnected", "session", s.ID)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Warn("Read loop error", "session", s.ID, "error", err)
			}
			return
		}
		h.handleFrame(ctx, s, frame)
	}
}

func (h *Handler) handleFrame(ctx context.Context, s *Session, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		h.reject(ctx, s, fmt.Errorf("%w: malformed frame", errors.ErrValidation))
		return
	}
	if env.Event != event.SendMessageName {
		h.reject(ctx, s, fmt.Errorf("%w: unknown event %q", errors.ErrValidation, env.Event))
		return
	}

	text, err := DecodeSendMessage(env)
	if err != nil {
		h.reject(ctx, s, fmt.Errorf("%w: %v", errors.ErrValidation, err))
		return
	}

	// An authenticated identity always wins over the self-declared author.
	author := env.Author
	if s.Author != "" {
		author = s.Author
	}
	if _, err := h.service.PostMessage(ctx, domain.PostMessageCommand{Author: author, Text: text}); err != nil {
		h.reject(ctx, s, err)
	}
}

// reject answers the originating client only.
func (h *Handler) reject(ctx context.Context, s *Session, err error) {
	h.log.Debug("Message rejected", "session", s.ID, "error", err)
	evt := event.MessageRejected{Code: errors.Code(err), Reason: err.Error()}
	if err := s.sink.Consume(ctx, evt); err != nil {
		h.log.Debug("Rejection not delivered", "session", s.ID, "error", err)
	}
}
