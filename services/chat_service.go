package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/infrastructure/storage"
	"chat-relay/runtime"
	"context"
)

const maxSearchLimit = 100

// IChatService is the façade shared by the WebSocket and gRPC gateways.
type IChatService interface {
	Connect(ctx context.Context, author string, sink contract.EventSink) (domain.SessionID, error)
	Disconnect(id domain.SessionID)
	PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	SearchMessages(ctx context.Context, query string, limit int) ([]domain.Message, error)
}

type ChatService struct {
	relay      *runtime.Relay
	repository storage.IMessageRepository
	index      storage.ISearchIndex
}

// NewChatService builds the façade. index may be nil when search is disabled.
func NewChatService(relay *runtime.Relay, repository storage.IMessageRepository, index storage.ISearchIndex) *ChatService {
	return &ChatService{relay: relay, repository: repository, index: index}
}

func (s *ChatService) Connect(ctx context.Context, author string, sink contract.EventSink) (domain.SessionID, error) {
	return s.relay.Connect(ctx, author, sink)
}

func (s *ChatService) Disconnect(id domain.SessionID) {
	s.relay.Disconnect(id)
}

func (s *ChatService) PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	return s.relay.PostMessage(ctx, cmd)
}

// SearchMessages resolves matching ids from the index, then reads the messages from the log.
func (s *ChatService) SearchMessages(ctx context.Context, query string, limit int) ([]domain.Message, error) {
	if s.index == nil {
		return nil, errors.ErrSearchDisabled
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	ids, err := s.index.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Message{}, nil
	}
	return s.repository.GetByIDs(ids)
}
