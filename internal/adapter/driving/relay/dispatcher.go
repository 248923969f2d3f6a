package relay

import (
	"context"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/core/phone"
	"github.com/Wyydra/yaphone/internal/core/port"
	"github.com/rs/zerolog/log"
)

type CallHandler interface {
	HandleSignal(ctx context.Context, env domain.Envelope) error
	HandlePresence(ctx context.Context, participants []domain.Participant) error
	SignalingLost(ctx context.Context, cause error) error
}

type ChatReceiver interface {
	Receive(env domain.Envelope)
}

// Dispatcher routes relay frames to the call machine, the directory and chat.
type Dispatcher struct {
	calls     CallHandler
	chat      ChatReceiver
	directory *phone.Directory
	presenter port.ChatPresenter
}

func NewDispatcher(calls CallHandler, chat ChatReceiver, directory *phone.Directory, presenter port.ChatPresenter) *Dispatcher {
	return &Dispatcher{
		calls:     calls,
		chat:      chat,
		directory: directory,
		presenter: presenter,
	}
}

func (d *Dispatcher) HandleEnvelope(ctx context.Context, env domain.Envelope) {
	l := log.With().Str("type", string(env.Type)).Str("from", env.From.String()).Logger()

	switch {
	case env.Type == domain.SignalWelcome:
		d.directory.SetSelf(env.To)
		d.presenter.Welcomed(domain.Participant{ID: env.To, DisplayName: env.DisplayName})

	case env.Type == domain.SignalPresence:
		if err := d.calls.HandlePresence(ctx, env.Participants); err != nil {
			l.Error().Err(err).Msg("failed to apply presence")
			return
		}
		d.presenter.DirectoryChanged(d.directory.List())

	case env.Type == domain.SignalChat:
		d.chat.Receive(env)

	case env.Type.IsCallSignal():
		if err := d.calls.HandleSignal(ctx, env); err != nil {
			l.Error().Err(err).Msg("failed to handle call signal")
		}

	default:
		l.Warn().Msg("unknown frame type")
	}
}

func (d *Dispatcher) ConnectionLost(ctx context.Context, err error) {
	log.Error().Err(err).Msg("relay connection lost")
	if err := d.calls.SignalingLost(ctx, err); err != nil {
		log.Error().Err(err).Msg("failed to report signaling loss")
	}
}
