package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
)

type IChatService interface {
	PostMessage(ctx context.Context, cmd domain.SubmitMessageCommand) (domain.Message, error)
	JoinRoom(conn contract.Connection, conversationID domain.ConversationID) error
	LeaveRoom(conn contract.Connection)
}

type ChatService struct {
	relay contract.IRelay
}

func NewChatService(relay contract.IRelay) *ChatService {
	return &ChatService{relay: relay}
}

func (s *ChatService) PostMessage(ctx context.Context, cmd domain.SubmitMessageCommand) (domain.Message, error) {
	return s.relay.Submit(ctx, cmd)
}

func (s *ChatService) JoinRoom(conn contract.Connection, conversationID domain.ConversationID) error {
	return s.relay.Join(conn, conversationID)
}

func (s *ChatService) LeaveRoom(conn contract.Connection) {
	s.relay.Leave(conn)
}
