package port

import (
	"context"

	"github.com/Wyydra/yaphone/internal/core/domain"
)

// RealTimeGateway delivers frames to connected participants on the relay.
type RealTimeGateway interface {
	BroadcastMessage(ctx context.Context, msg domain.Message) error
	BroadcastPresence(ctx context.Context, participants []domain.Participant) error
	// SendEnvelope returns domain.ErrParticipantOffline when nobody holds env.To.
	SendEnvelope(ctx context.Context, env domain.Envelope) error
}

// RelayBridge fans frames out to the other relay nodes.
type RelayBridge interface {
	Publish(ctx context.Context, frame domain.RelayFrame) error
}
