package port

import (
	"context"

	"github.com/Wyydra/yaphone/internal/core/domain"
)

type MessageRepository interface {
	Save(ctx context.Context, msg domain.Message) error
	Recent(ctx context.Context, limit int) ([]domain.Message, error)
}

// PresenceStore holds who is connected to the relay.
type PresenceStore interface {
	Join(ctx context.Context, p domain.Participant) error
	Leave(ctx context.Context, id domain.ParticipantID) error
	Get(ctx context.Context, id domain.ParticipantID) (domain.Participant, bool, error)
	List(ctx context.Context) ([]domain.Participant, error)
}
