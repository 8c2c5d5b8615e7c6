package server

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	pb "chat-relay/infrastructure/grpc/chatv1"
	"chat-relay/observability"
	"chat-relay/services"
	"chat-relay/sink"
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/lo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const transportName = "grpc"

type ChatServer struct {
	pb.UnimplementedChatServiceServer
	chatService          services.IChatService
	connectionBufferSize int
	log                  *slog.Logger
}

func NewChatServer(log *slog.Logger, chatService services.IChatService, connectionBufferSize int) *ChatServer {
	return &ChatServer{chatService: chatService, connectionBufferSize: connectionBufferSize, log: log}
}

// SearchMessages runs a full-text query over the message log.
func (s *ChatServer) SearchMessages(ctx context.Context, req *pb.SearchRequest) (*pb.SearchResponse, error) {
	messages, err := s.chatService.SearchMessages(ctx, req.Query, int(req.Limit))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.SearchResponse{Messages: lo.Map(messages, func(m domain.Message, _ int) pb.Message {
		return toMessage(m)
	})}, nil
}

// Connect serves one session over a bidirectional stream.
// The first event sent is always load_messages. This goroutine is the only writer,
// client events are read by a dedicated goroutine.
// The session is removed from the registry as soon as the stream ends.
func (s *ChatServer) Connect(stream pb.ChatService_ConnectServer) error {
	ctx := stream.Context()
	author := auth.UserIDFromContext(ctx)
	sessionSink := sink.NewSessionSink(s.connectionBufferSize)
	defer sessionSink.Close()

	id, err := s.chatService.Connect(ctx, author, sessionSink)
	if err != nil {
		return errors.MapToGRPCError(err)
	}
	defer s.chatService.Disconnect(id)

	observability.SessionsActive.WithLabelValues(transportName).Inc()
	defer observability.SessionsActive.WithLabelValues(transportName).Dec()
	s.log.Info("Connected", "session", id, "transport", transportName)

	recvErr := make(chan error, 1)
	go func() {
		recvErr <- s.receive(ctx, stream, sessionSink, author)
	}()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Disconnected", "session", id, "transport", transportName)
			return nil
		case err := <-recvErr:
			s.log.Info("Disconnected", "session", id, "transport", transportName)
			if err == nil || goerrors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			return err
		case <-sessionSink.Done():
			s.log.Warn("Send queue overflow, dropping stream", "session", id)
			return status.Error(codes.ResourceExhausted, "backpressure overflow")
		case evt := <-sessionSink.Events():
			if err := stream.Send(toServerEvent(evt)); err != nil {
				s.log.Error("failed to push event to stream", "session", id, "error", err)
				return err
			}
		}
	}
}

func (s *ChatServer) receive(ctx context.Context, stream pb.ChatService_ConnectServer, sessionSink *sink.SessionSink, author string) error {
	for {
		in, err := stream.Recv()
		if err != nil {
			return err
		}
		if err := s.handle(ctx, in, author); err != nil {
			rejected := event.MessageRejected{Code: errors.Code(err), Reason: err.Error()}
			if err := sessionSink.Consume(ctx, rejected); err != nil {
				s.log.Debug("Rejection not delivered", "error", err)
			}
		}
	}
}

func (s *ChatServer) handle(ctx context.Context, in *pb.ClientEvent, author string) error {
	if in.Event != event.SendMessageName {
		return fmt.Errorf("%w: unknown event %q", errors.ErrValidation, in.Event)
	}
	if author == "" {
		author = in.Author
	}
	_, err := s.chatService.PostMessage(ctx, domain.PostMessageCommand{Author: author, Text: in.Text})
	return err
}

func toMessage(m domain.Message) pb.Message {
	return pb.Message{Id: uint64(m.ID), Author: m.Author, Text: m.Text, CreatedAt: m.CreatedAt}
}

func toServerEvent(e event.DomainEvent) *pb.ServerEvent {
	out := &pb.ServerEvent{Event: e.Name()}
	switch evt := e.(type) {
	case event.HistoryLoaded:
		out.Messages = lo.Map(evt.Messages, func(m domain.Message, _ int) pb.Message { return toMessage(m) })
	case event.MessagePosted:
		out.Message = lo.ToPtr(toMessage(evt.Message))
	case event.MessageRejected:
		out.Error = &pb.Error{Code: evt.Code, Message: evt.Reason}
	}
	return out
}
