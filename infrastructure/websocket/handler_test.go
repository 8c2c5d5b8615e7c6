package websocket

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/storage"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, authenticator *auth.Authenticator) *httptest.Server {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	repository := storage.NewMessageRepository(db, log)

	relay := runtime.NewRelay(log, workers.NewSupervisor(log, 0), runtime.NewRegistry(), repository, nil,
		runtime.Settings{HistorySize: 10, BufferSize: 16})
	service := services.NewChatService(relay, repository, nil)
	server := httptest.NewServer(NewRouter(NewHandler(service, log, 16), authenticator))

	t.Cleanup(func() {
		server.Close()
		_ = repository.Close()
		_ = db.Close()
	})
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func readHistory(t *testing.T, conn *websocket.Conn) []MessageDTO {
	t.Helper()
	env := readEnvelope(t, conn)
	require.Equal(t, "load_messages", env.Event)
	var messages []MessageDTO
	require.NoError(t, json.Unmarshal(env.Data, &messages))
	return messages
}

func readMessage(t *testing.T, conn *websocket.Conn) MessageDTO {
	t.Helper()
	env := readEnvelope(t, conn)
	require.Equal(t, "receive_message", env.Event)
	var msg MessageDTO
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func TestHandler_Two_Clients(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil)

	// Given a first client on an empty log
	c1 := dial(t, server, "")
	req.Empty(readHistory(t, c1))

	// When it sends "hello"
	send(t, c1, `{"event":"send_message","data":"hello"}`)

	// Then it receives its own message
	hello := readMessage(t, c1)
	req.Equal("hello", hello.Text)
	req.Equal("Anonymous", hello.Author)
	req.NotZero(hello.ID)

	// Given a second client
	c2 := dial(t, server, "")
	history := readHistory(t, c2)
	req.Len(history, 1)
	req.Equal(hello.ID, history[0].ID)

	// When it sends "world" as bob
	send(t, c2, `{"event":"send_message","data":"world","author":"bob"}`)

	// Then both clients receive it once
	for _, c := range []*websocket.Conn{c1, c2} {
		world := readMessage(t, c)
		req.Equal("world", world.Text)
		req.Equal("bob", world.Author)
		req.Greater(world.ID, hello.ID)
	}
}

func TestHandler_Rejections_Only_Reach_The_Sender(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, nil)
	c1 := dial(t, server, "")
	readHistory(t, c1)
	c2 := dial(t, server, "")
	readHistory(t, c2)

	frames := []string{
		`{"event":"send_message","data":"   "}`,
		`{"event":"send_message","data":42}`,
		`{"event":"typing"}`,
		`not json`,
	}
	for _, frame := range frames {
		send(t, c1, frame)
		env := readEnvelope(t, c1)
		req.Equal("error", env.Event, frame)
		var dto ErrorDTO
		req.NoError(json.Unmarshal(env.Data, &dto))
		req.Equal("validation", dto.Code)
	}

	// Then the other client only sees the next valid message
	send(t, c1, `{"event":"send_message","data":"valid"}`)
	req.Equal("valid", readMessage(t, c2).Text)
}

func TestHandler_Requires_Token_When_Auth_Is_Enabled(t *testing.T) {
	req := require.New(t)
	authenticator := auth.NewAuthenticator("a_test_secret_long_enough_for_hs256", time.Hour)
	server := newTestServer(t, authenticator)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	// Given no token, the upgrade is refused
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// Given a token, the identity becomes the author
	token, err := authenticator.GenerateToken("alice", nil)
	req.NoError(err)
	conn := dial(t, server, "?token="+token)
	readHistory(t, conn)

	send(t, conn, `{"event":"send_message","data":"hi","author":"mallory"}`)
	req.Equal("alice", readMessage(t, conn).Author)
}
