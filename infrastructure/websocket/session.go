package websocket

import (
	"chat-relay/domain"
	"chat-relay/sink"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Session owns one WebSocket connection.
// Exactly one goroutine (writeLoop) writes to the connection.
type Session struct {
	ID     domain.SessionID
	Author string
	conn   *websocket.Conn
	sink   *sink.SessionSink
	log    *slog.Logger
	closed atomic.Int32
}

func NewSession(conn *websocket.Conn, sink *sink.SessionSink, author string, log *slog.Logger) *Session {
	return &Session{Author: author, conn: conn, sink: sink, log: log}
}

func (s *Session) Start() {
	go s.writeLoop()
}

func (s *Session) Close() {
	s.CloseWithReason(websocket.CloseNormalClosure, "server closing")
}

func (s *Session) CloseWithReason(code int, reason string) {
	if !s.closed.CompareAndSwap(0, 1) {
		return
	}
	s.sink.Close()
	s.log.Debug("Closing websocket", "session", s.ID, "code", code, "reason", reason)

	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = s.conn.Close()
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt := <-s.sink.Events():
			frame, err := EncodeEvent(evt)
			if err != nil {
				s.log.Error("Event not encoded", "session", s.ID, "event", evt.Name(), "error", err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Debug("Write error", "session", s.ID, "error", err)
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug("Ping error", "session", s.ID, "error", err)
				s.Close()
				return
			}
		case <-s.sink.Done():
			s.CloseWithReason(websocket.CloseTryAgainLater, "backpressure overflow")
			return
		}
	}
}
