package service

import (
	"context"
	"fmt"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/core/port"
	"github.com/rs/zerolog/log"
)

// PresenceService keeps the presence store current and pushes a full
// snapshot to everyone after each change.
type PresenceService struct {
	store   port.PresenceStore
	gateway port.RealTimeGateway
}

func NewPresenceService(store port.PresenceStore, gateway port.RealTimeGateway) *PresenceService {
	return &PresenceService{
		store:   store,
		gateway: gateway,
	}
}

func (s *PresenceService) Join(ctx context.Context, p domain.Participant) error {
	if err := s.store.Join(ctx, p); err != nil {
		return fmt.Errorf("join %s: %w", p.ID, err)
	}
	log.Info().Str("participant_id", p.ID.String()).Str("name", p.DisplayName).Msg("participant joined")
	return s.push(ctx)
}

func (s *PresenceService) Leave(ctx context.Context, id domain.ParticipantID) error {
	if err := s.store.Leave(ctx, id); err != nil {
		return fmt.Errorf("leave %s: %w", id, err)
	}
	log.Info().Str("participant_id", id.String()).Msg("participant left")
	return s.push(ctx)
}

func (s *PresenceService) Online(ctx context.Context) ([]domain.Participant, error) {
	return s.store.List(ctx)
}

func (s *PresenceService) push(ctx context.Context) error {
	participants, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list presence: %w", err)
	}
	return s.gateway.BroadcastPresence(ctx, participants)
}
