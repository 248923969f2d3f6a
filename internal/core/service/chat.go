package service

import (
	"context"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/core/port"
	"github.com/Wyydra/yaphone/internal/metrics"
)

type ChatService struct {
	repo    port.MessageRepository
	gateway port.RealTimeGateway
}

func NewChatService(repo port.MessageRepository, gateway port.RealTimeGateway) *ChatService {
	return &ChatService{
		repo:    repo,
		gateway: gateway,
	}
}

func (s *ChatService) SendMessage(ctx context.Context, sender domain.Participant, content string) error {
	msg, err := domain.NewMessage(sender, content)
	if err != nil {
		return err
	}

	if err := s.repo.Save(ctx, *msg); err != nil {
		return err
	}
	metrics.ChatMessagesTotal.Inc()
	return s.gateway.BroadcastMessage(ctx, *msg)
}

func (s *ChatService) History(ctx context.Context, limit int) ([]domain.Message, error) {
	return s.repo.Recent(ctx, limit)
}
