package e2e

import (
	"chat-relay/domain/event"
	pb "chat-relay/infrastructure/grpc/chatv1"
	ws "chat-relay/infrastructure/websocket"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testChatSuite struct {
	BaseGrpcSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) TestHistoryThenLiveBroadcast() {
	// Unique text so the scenario holds on a relay that already stores messages
	marker := uuid.NewString()

	s.Run("Step 1: first session posts and receives its own message", func() {
		s.WithRelay("Connect and post", func(ctx context.Context, client pb.ChatServiceClient) {
			stream, err := client.Connect(ctx)
			s.Require().NoError(err)

			history, err := stream.Recv()
			s.Require().NoError(err)
			s.Require().Equal(event.LoadMessagesName, history.Event)

			s.Require().NoError(stream.Send(&pb.ClientEvent{Event: event.SendMessageName, Text: "hello " + marker, Author: "e2e"}))

			live, err := stream.Recv()
			s.Require().NoError(err)
			s.Require().Equal(event.ReceiveMessageName, live.Event)
			s.Require().Equal("hello "+marker, live.Message.Text)
			s.Require().NoError(stream.CloseSend())
		})
	})

	s.Run("Step 2: a websocket session sees the message in its history", func() {
		conn := s.DialWebSocket("Websocket history")
		defer conn.Close()
		s.Require().NoError(conn.SetReadDeadline(time.Now().Add(10 * time.Second)))

		var env ws.Envelope
		s.Require().NoError(conn.ReadJSON(&env))
		s.Require().Equal(event.LoadMessagesName, env.Event)

		var messages []ws.MessageDTO
		s.Require().NoError(json.Unmarshal(env.Data, &messages))
		s.Require().NotEmpty(messages)
		s.Require().Equal("hello "+marker, messages[len(messages)-1].Text)
	})

	s.Run("Step 3: blank messages are rejected to the sender only", func() {
		conn := s.DialWebSocket("Websocket reject")
		defer conn.Close()
		s.Require().NoError(conn.SetReadDeadline(time.Now().Add(10 * time.Second)))

		var env ws.Envelope
		s.Require().NoError(conn.ReadJSON(&env))
		s.Require().NoError(conn.WriteJSON(ws.Envelope{Event: event.SendMessageName, Data: json.RawMessage(`"   "`)}))

		s.Require().NoError(conn.ReadJSON(&env))
		s.Require().Equal(event.MessageRejectedName, env.Event)
		var rejected ws.ErrorDTO
		s.Require().NoError(json.Unmarshal(env.Data, &rejected))
		s.Require().Equal("validation", rejected.Code)
	})
}

func (s *testChatSuite) TestSearch() {
	marker := uuid.NewString()
	s.WithRelay("Post then search", func(ctx context.Context, client pb.ChatServiceClient) {
		stream, err := client.Connect(ctx)
		s.Require().NoError(err)
		_, err = stream.Recv()
		s.Require().NoError(err)
		s.Require().NoError(stream.Send(&pb.ClientEvent{Event: event.SendMessageName, Text: marker}))
		_, err = stream.Recv()
		s.Require().NoError(err)

		s.Require().Eventually(func() bool {
			resp, err := client.SearchMessages(ctx, &pb.SearchRequest{Query: marker, Limit: 5})
			return err == nil && len(resp.Messages) == 1
		}, 10*time.Second, 100*time.Millisecond)
	})
}
