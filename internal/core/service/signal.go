package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/core/port"
	"github.com/Wyydra/yaphone/internal/metrics"
	"github.com/rs/zerolog/log"
)

// SignalService forwards call signaling between participants. The relay
// never interprets the call itself, it only stamps the sender.
type SignalService struct {
	presence port.PresenceStore
	gateway  port.RealTimeGateway
}

func NewSignalService(presence port.PresenceStore, gateway port.RealTimeGateway) *SignalService {
	return &SignalService{
		presence: presence,
		gateway:  gateway,
	}
}

func (s *SignalService) HandleSignal(ctx context.Context, sender domain.Participant, env domain.Envelope) error {
	if !env.Type.IsCallSignal() {
		metrics.EnvelopesRejectedTotal.WithLabelValues("type").Inc()
		return fmt.Errorf("%w: type %q", domain.ErrInvalidEnvelope, env.Type)
	}
	if env.To.IsZero() || env.To == sender.ID {
		metrics.EnvelopesRejectedTotal.WithLabelValues("recipient").Inc()
		return fmt.Errorf("%w: recipient %q", domain.ErrInvalidEnvelope, env.To)
	}

	env.From = sender.ID
	env.DisplayName = sender.DisplayName
	env.Participants = nil
	env.Text = ""

	_, online, err := s.presence.Get(ctx, env.To)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", env.To, err)
	}
	if online {
		err = s.gateway.SendEnvelope(ctx, env)
	} else {
		err = domain.ErrParticipantOffline
	}
	if errors.Is(err, domain.ErrParticipantOffline) {
		return s.undeliverable(ctx, sender, env)
	}
	if err != nil {
		return err
	}

	metrics.EnvelopesRelayedTotal.WithLabelValues(string(env.Type)).Inc()
	return nil
}

// undeliverable answers a call-request for an offline participant on its
// behalf, so the caller does not wait forever.
func (s *SignalService) undeliverable(ctx context.Context, sender domain.Participant, env domain.Envelope) error {
	metrics.EnvelopesUndeliverableTotal.WithLabelValues(string(env.Type)).Inc()
	log.Debug().
		Str("type", string(env.Type)).
		Str("from", sender.ID.String()).
		Str("to", env.To.String()).
		Msg("recipient offline")

	if env.Type != domain.SignalCallRequest {
		return fmt.Errorf("%s to %s: %w", env.Type, env.To, domain.ErrParticipantOffline)
	}
	reply := domain.Envelope{Type: domain.SignalCallRejected, To: sender.ID, From: env.To}
	if err := s.gateway.SendEnvelope(ctx, reply); err != nil {
		return fmt.Errorf("reject on behalf of %s: %w", env.To, err)
	}
	return nil
}
