package server

import (
	"chat-relay/auth"
	pb "chat-relay/infrastructure/grpc/chatv1"
	"log/slog"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
)

// NewGrpcServer builds the gRPC server with logging and, when authenticator is set, JWT checks.
func NewGrpcServer(log *slog.Logger, chatServer *ChatServer, authenticator *auth.Authenticator) *grpc.Server {
	unary := []grpc.UnaryServerInterceptor{grpc3.UnaryLoggingInterceptor(log)}
	var stream []grpc.StreamServerInterceptor
	if authenticator != nil {
		unary = append(unary, authenticator.UnaryInterceptor())
		stream = append(stream, authenticator.StreamInterceptor())
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	)
	pb.RegisterChatServiceServer(s, chatServer)
	return s
}
