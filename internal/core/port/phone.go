package port

import (
	"context"
	"time"

	"github.com/Wyydra/yaphone/internal/core/domain"
)

// SignalingChannel is the client side of the relay connection.
type SignalingChannel interface {
	Send(ctx context.Context, env domain.Envelope) error
}

// RemoteTrack is the inbound audio of an established call.
type RemoteTrack struct {
	ID       string
	StreamID string
	Codec    string
}

// MediaHandlers are invoked from transport goroutines.
type MediaHandlers struct {
	OnLocalCandidate        func(c domain.Candidate)
	OnRemoteTrack           func(t RemoteTrack)
	OnConnectionStateChange func(s domain.ConnectionState)
}

type MediaTransport interface {
	Open(ctx context.Context, handlers MediaHandlers) (MediaSession, error)
}

// MediaSession is one peer media session. AddRemoteCandidate before
// SetRemoteDescription is a silent no-op.
type MediaSession interface {
	AddLocalAudio(ctx context.Context) error
	CreateOffer(ctx context.Context) (domain.SessionDescription, error)
	CreateAnswer(ctx context.Context) (domain.SessionDescription, error)
	SetRemoteDescription(ctx context.Context, desc domain.SessionDescription) error
	AddRemoteCandidate(c domain.Candidate)
	Close() error
}

type CallPresenter interface {
	RingingIncoming(peer domain.Participant)
	RingingOutgoing(peer domain.Participant)
	CallConnected(peer domain.Participant)
	CallEnded(peer domain.Participant, reason domain.EndReason)
	CallTimerTick(elapsed time.Duration)
}

type ChatPresenter interface {
	ChatReceived(from domain.Participant, text string)
	DirectoryChanged(participants []domain.Participant)
	Welcomed(self domain.Participant)
}
