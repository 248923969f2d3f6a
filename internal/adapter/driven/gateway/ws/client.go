package ws

import "github.com/Wyydra/yaphone/internal/core/domain"

// Client is one participant connection held by the hub. Send must not block.
type Client interface {
	ID() domain.ParticipantID
	Send(env domain.Envelope) error
	Close() error
}
