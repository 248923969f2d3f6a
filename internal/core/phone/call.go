package phone

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/core/port"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownHangupTimeout = 2 * time.Second

type callSession struct {
	state      domain.CallState
	role       domain.CallRole
	peer       domain.Participant
	generation uint64

	transport port.MediaSession
	// accepted is set once call-accepted was sent (callee) or received (caller).
	accepted      bool
	remoteApplied bool
	pending       []domain.Candidate
	startedAt     time.Time
}

// CallService is the one-to-one call state machine. Every intent, inbound
// signal and transport callback runs as one step of the loop started by Run,
// so steps never interleave.
//
// Presenter callbacks, timer ticks included, are invoked from the loop and
// must not call back into the service synchronously.
type CallService struct {
	signaling port.SignalingChannel
	media     port.MediaTransport
	directory *Directory
	presenter port.CallPresenter
	timer     *Timer

	mailbox    *mailbox
	session    callSession
	generation uint64
	logger     zerolog.Logger
}

func NewCallService(signaling port.SignalingChannel, media port.MediaTransport, directory *Directory, presenter port.CallPresenter, c clock.Clock) *CallService {
	if directory == nil {
		directory = NewDirectory()
	}
	s := &CallService{
		signaling: signaling,
		media:     media,
		directory: directory,
		presenter: presenter,
		mailbox:   newMailbox(),
		logger:    log.With().Str("component", "call").Logger(),
	}
	s.timer = NewTimer(c, s.onTimerTick)
	return s
}

func (s *CallService) Directory() *Directory {
	return s.directory
}

// Run processes queued steps until ctx is cancelled. A call still in
// progress at that point is hung up.
func (s *CallService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-s.mailbox.notify:
			for {
				j, ok := s.mailbox.pop()
				if !ok {
					break
				}
				s.exec(ctx, j)
			}
		}
	}
}

func (s *CallService) exec(loopCtx context.Context, j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = loopCtx
	}
	err := j.fn(ctx)
	if j.done != nil {
		j.done <- err
	}
}

func (s *CallService) shutdown() {
	rest := s.mailbox.close()
	for _, j := range rest {
		if j.done != nil {
			j.done <- domain.ErrServiceStopped
		}
	}
	if s.session.state == domain.StateIdle {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownHangupTimeout)
	defer cancel()
	if err := s.hangup(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("hangup on shutdown failed")
	}
}

// do queues fn and waits for its result.
func (s *CallService) do(ctx context.Context, fn func(ctx context.Context) error) error {
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}
	if !s.mailbox.push(j) {
		return domain.ErrServiceStopped
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting. Used by transport callbacks.
func (s *CallService) post(fn func(ctx context.Context) error) {
	s.mailbox.push(job{fn: fn})
}

func (s *CallService) Call(ctx context.Context, peerID domain.ParticipantID) error {
	return s.do(ctx, func(ctx context.Context) error {
		if s.session.state != domain.StateIdle {
			return fmt.Errorf("call: %w (state %s)", domain.ErrInvalidTransition, s.session.state)
		}
		if peerID == s.directory.Self() {
			return domain.ErrCallSelf
		}
		peer, ok := s.directory.Lookup(peerID)
		if !ok {
			return fmt.Errorf("call %s: %w", peerID, domain.ErrUnknownParticipant)
		}

		s.begin(peer, domain.RoleCaller, domain.StateOutgoing)
		if err := s.openTransport(ctx); err != nil {
			s.release()
			return err
		}
		if err := s.send(ctx, domain.NewSignal(domain.SignalCallRequest, peer.ID)); err != nil {
			s.release()
			return fmt.Errorf("send call request: %w", err)
		}

		s.logger.Info().Str("peer_id", peer.ID.String()).Msg("calling")
		s.presenter.RingingOutgoing(peer)
		return nil
	})
}

func (s *CallService) Accept(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		if s.session.state != domain.StateIncomingRinging || s.session.accepted {
			return fmt.Errorf("accept: %w (state %s)", domain.ErrInvalidTransition, s.session.state)
		}

		if err := s.openTransport(ctx); err != nil {
			s.sendBestEffort(ctx, domain.SignalCallRejected)
			s.end(domain.EndFailed)
			return err
		}
		if err := s.send(ctx, domain.NewSignal(domain.SignalCallAccepted, s.session.peer.ID)); err != nil {
			s.end(domain.EndFailed)
			return fmt.Errorf("send call accepted: %w", err)
		}
		s.session.accepted = true
		s.logger.Info().Str("peer_id", s.session.peer.ID.String()).Msg("call accepted, awaiting offer")
		return nil
	})
}

func (s *CallService) Reject(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		if s.session.state != domain.StateIncomingRinging {
			return fmt.Errorf("reject: %w (state %s)", domain.ErrInvalidTransition, s.session.state)
		}
		return s.reject(ctx)
	})
}

func (s *CallService) Cancel(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		if s.session.state != domain.StateOutgoing {
			return fmt.Errorf("cancel: %w (state %s)", domain.ErrInvalidTransition, s.session.state)
		}
		return s.cancel(ctx)
	})
}

// Hangup ends the current call. Before the other side accepted it behaves
// like Cancel or Reject depending on the role.
func (s *CallService) Hangup(ctx context.Context) error {
	return s.do(ctx, s.hangup)
}

func (s *CallService) Snapshot(ctx context.Context) (domain.CallSnapshot, error) {
	var snap domain.CallSnapshot
	err := s.do(ctx, func(context.Context) error {
		snap = domain.CallSnapshot{
			State:     s.session.state,
			Role:      s.session.role,
			Peer:      s.session.peer,
			Accepted:  s.session.accepted,
			StartedAt: s.session.startedAt,
			Elapsed:   s.timer.Elapsed(),
		}
		return nil
	})
	return snap, err
}

// HandleSignal feeds one inbound call event into the machine. Unexpected
// events are logged and dropped, they never produce an error.
func (s *CallService) HandleSignal(ctx context.Context, env domain.Envelope) error {
	return s.do(ctx, func(ctx context.Context) error {
		s.handleSignal(ctx, env)
		return nil
	})
}

// HandlePresence replaces the directory. A call whose peer left is failed.
func (s *CallService) HandlePresence(ctx context.Context, participants []domain.Participant) error {
	return s.do(ctx, func(ctx context.Context) error {
		s.directory.ApplySnapshot(participants)
		if s.session.state == domain.StateIdle {
			return nil
		}
		if _, ok := s.directory.Lookup(s.session.peer.ID); !ok {
			s.logger.Warn().Str("peer_id", s.session.peer.ID.String()).Msg("peer left the directory")
			s.end(domain.EndFailed)
		}
		return nil
	})
}

// SignalingLost fails any call in progress. No hangup is attempted since
// the channel is gone.
func (s *CallService) SignalingLost(ctx context.Context, cause error) error {
	return s.do(ctx, func(ctx context.Context) error {
		if s.session.state == domain.StateIdle {
			return nil
		}
		s.logger.Warn().Err(cause).Str("peer_id", s.session.peer.ID.String()).Msg("signaling lost during call")
		s.end(domain.EndFailed)
		return nil
	})
}

func (s *CallService) hangup(ctx context.Context) error {
	switch {
	case s.session.state == domain.StateOutgoing && !s.session.accepted:
		return s.cancel(ctx)
	case s.session.state == domain.StateIncomingRinging && !s.session.accepted:
		return s.reject(ctx)
	case s.session.state == domain.StateIdle:
		return fmt.Errorf("hangup: %w (state %s)", domain.ErrInvalidTransition, s.session.state)
	}
	err := s.send(ctx, domain.NewSignal(domain.SignalHangup, s.session.peer.ID))
	s.end(domain.EndNormal)
	if err != nil {
		return fmt.Errorf("send hangup: %w", err)
	}
	return nil
}

func (s *CallService) reject(ctx context.Context) error {
	err := s.send(ctx, domain.NewSignal(domain.SignalCallRejected, s.session.peer.ID))
	s.end(domain.EndRejected)
	if err != nil {
		return fmt.Errorf("send call rejected: %w", err)
	}
	return nil
}

func (s *CallService) cancel(ctx context.Context) error {
	err := s.send(ctx, domain.NewSignal(domain.SignalCallCancel, s.session.peer.ID))
	s.end(domain.EndCancelled)
	if err != nil {
		return fmt.Errorf("send call cancel: %w", err)
	}
	return nil
}

func (s *CallService) handleSignal(ctx context.Context, env domain.Envelope) {
	l := s.logger.With().
		Str("type", string(env.Type)).
		Str("from", env.From.String()).
		Str("state", s.session.state.String()).
		Logger()

	if env.Type == domain.SignalCallRequest {
		s.onCallRequest(ctx, env, l)
		return
	}
	if s.session.state == domain.StateIdle || env.From != s.session.peer.ID {
		l.Warn().Msg("dropping signal outside of current call")
		return
	}

	switch env.Type {
	case domain.SignalCallAccepted:
		if s.session.state != domain.StateOutgoing || s.session.accepted {
			l.Warn().Msg("unexpected call-accepted")
			return
		}
		s.onCallAccepted(ctx)

	case domain.SignalCallRejected:
		if s.session.state != domain.StateOutgoing {
			l.Warn().Msg("unexpected call-rejected")
			return
		}
		s.end(domain.EndRejected)

	case domain.SignalBusy:
		if s.session.state != domain.StateOutgoing {
			l.Warn().Msg("unexpected busy")
			return
		}
		s.end(domain.EndBusy)

	case domain.SignalCallCancel:
		if s.session.state != domain.StateIncomingRinging {
			l.Warn().Msg("unexpected call-cancel")
			return
		}
		s.end(domain.EndCancelled)

	case domain.SignalHangup:
		s.end(domain.EndNormal)

	case domain.SignalOffer:
		if s.session.state != domain.StateIncomingRinging || !s.session.accepted ||
			s.session.remoteApplied || s.session.transport == nil {
			l.Warn().Msg("unexpected offer")
			return
		}
		s.onOffer(ctx, env.SDP)

	case domain.SignalAnswer:
		if s.session.state != domain.StateOutgoing || !s.session.accepted ||
			s.session.remoteApplied || s.session.transport == nil {
			l.Warn().Msg("unexpected answer")
			return
		}
		s.onAnswer(ctx, env.SDP)

	case domain.SignalCandidate:
		if env.Candidate == nil {
			l.Warn().Msg("candidate event without candidate")
			return
		}
		if s.session.remoteApplied {
			s.session.transport.AddRemoteCandidate(*env.Candidate)
			return
		}
		s.session.pending = append(s.session.pending, *env.Candidate)

	default:
		l.Warn().Msg("unknown call signal")
	}
}

func (s *CallService) onCallRequest(ctx context.Context, env domain.Envelope, l zerolog.Logger) {
	if env.From.IsZero() {
		l.Warn().Msg("call-request without sender")
		return
	}
	peer, ok := s.directory.Lookup(env.From)
	if !ok {
		l.Warn().Msg("call-request from unknown participant dropped")
		return
	}
	if s.session.state != domain.StateIdle {
		l.Info().Msg("busy, refusing call-request")
		if err := s.send(ctx, domain.NewSignal(domain.SignalBusy, env.From)); err != nil {
			l.Warn().Err(err).Msg("failed to send busy")
		}
		return
	}

	s.begin(peer, domain.RoleCallee, domain.StateIncomingRinging)
	l.Info().Msg("incoming call")
	s.presenter.RingingIncoming(peer)
}

func (s *CallService) onCallAccepted(ctx context.Context) {
	s.session.accepted = true
	offer, err := s.session.transport.CreateOffer(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create offer")
		s.fail(ctx)
		return
	}
	env := domain.NewSignal(domain.SignalOffer, s.session.peer.ID)
	env.SDP = offer.SDP
	if err := s.send(ctx, env); err != nil {
		s.logger.Error().Err(err).Msg("failed to send offer")
		s.end(domain.EndFailed)
	}
}

func (s *CallService) onOffer(ctx context.Context, sdp string) {
	desc := domain.SessionDescription{Type: domain.SDPOffer, SDP: sdp}
	if err := s.applyRemote(ctx, desc); err != nil {
		s.logger.Error().Err(err).Msg("failed to apply remote offer")
		s.fail(ctx)
		return
	}
	answer, err := s.session.transport.CreateAnswer(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create answer")
		s.fail(ctx)
		return
	}
	env := domain.NewSignal(domain.SignalAnswer, s.session.peer.ID)
	env.SDP = answer.SDP
	if err := s.send(ctx, env); err != nil {
		s.logger.Error().Err(err).Msg("failed to send answer")
		s.end(domain.EndFailed)
		return
	}
	s.activate()
}

func (s *CallService) onAnswer(ctx context.Context, sdp string) {
	desc := domain.SessionDescription{Type: domain.SDPAnswer, SDP: sdp}
	if err := s.applyRemote(ctx, desc); err != nil {
		s.logger.Error().Err(err).Msg("failed to apply remote answer")
		s.fail(ctx)
		return
	}
	s.activate()
}

// applyRemote sets the remote description and replays the candidates that
// arrived before it, in arrival order.
func (s *CallService) applyRemote(ctx context.Context, desc domain.SessionDescription) error {
	if err := s.session.transport.SetRemoteDescription(ctx, desc); err != nil {
		return err
	}
	s.session.remoteApplied = true

	pending := s.session.pending
	s.session.pending = nil
	for _, c := range pending {
		s.session.transport.AddRemoteCandidate(c)
	}
	return nil
}

func (s *CallService) activate() {
	s.session.state = domain.StateActive
	s.session.startedAt = s.timer.Start()
	s.logger.Info().Str("peer_id", s.session.peer.ID.String()).Msg("call connected")
	s.presenter.CallConnected(s.session.peer)
}

// onTimerTick runs on the timer goroutine. The tick is reported from the loop
// and only while the call that started the timer is still active.
func (s *CallService) onTimerTick(startedAt time.Time, elapsed time.Duration) {
	s.post(func(context.Context) error {
		if s.session.state != domain.StateActive || !s.session.startedAt.Equal(startedAt) {
			return nil
		}
		s.presenter.CallTimerTick(elapsed)
		return nil
	})
}

func (s *CallService) begin(peer domain.Participant, role domain.CallRole, state domain.CallState) {
	s.generation++
	s.session = callSession{
		state:      state,
		role:       role,
		peer:       peer,
		generation: s.generation,
	}
}

func (s *CallService) openTransport(ctx context.Context) error {
	gen := s.session.generation
	sess, err := s.media.Open(ctx, s.handlers(gen))
	if err != nil {
		return mediaUnavailable(err)
	}
	if err := sess.AddLocalAudio(ctx); err != nil {
		sess.Close()
		return mediaUnavailable(err)
	}
	s.session.transport = sess
	return nil
}

func mediaUnavailable(err error) error {
	if errors.Is(err, domain.ErrMediaUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, err)
}

// handlers binds transport callbacks to one session generation so that a
// released session can no longer affect the machine.
func (s *CallService) handlers(gen uint64) port.MediaHandlers {
	current := func() bool {
		return s.session.generation == gen && s.session.transport != nil
	}
	return port.MediaHandlers{
		OnLocalCandidate: func(c domain.Candidate) {
			s.post(func(ctx context.Context) error {
				if !current() {
					return nil
				}
				env := domain.NewSignal(domain.SignalCandidate, s.session.peer.ID)
				env.Candidate = &c
				if err := s.send(ctx, env); err != nil {
					s.logger.Warn().Err(err).Msg("failed to send local candidate")
				}
				return nil
			})
		},
		OnRemoteTrack: func(t port.RemoteTrack) {
			s.logger.Info().Str("track_id", t.ID).Str("codec", t.Codec).Msg("remote audio track")
		},
		OnConnectionStateChange: func(state domain.ConnectionState) {
			s.post(func(ctx context.Context) error {
				if !current() {
					return nil
				}
				s.logger.Debug().Str("connection", string(state)).Msg("transport state changed")
				if state.Terminal() {
					s.logger.Warn().Str("connection", string(state)).Msg("transport ended the call")
					s.fail(ctx)
				}
				return nil
			})
		},
	}
}

// fail tears the call down after a transport problem, telling the peer once.
func (s *CallService) fail(ctx context.Context) {
	s.sendBestEffort(ctx, domain.SignalHangup)
	s.end(domain.EndFailed)
}

func (s *CallService) sendBestEffort(ctx context.Context, t domain.SignalType) {
	if err := s.send(ctx, domain.NewSignal(t, s.session.peer.ID)); err != nil {
		s.logger.Warn().Err(err).Str("type", string(t)).Msg("best effort send failed")
	}
}

// end returns the machine to idle and reports why.
func (s *CallService) end(reason domain.EndReason) {
	peer := s.session.peer
	s.session.state = domain.StateTerminating
	s.release()

	s.logger.Info().
		Str("peer_id", peer.ID.String()).
		Str("reason", string(reason)).
		Msg("call ended")
	s.presenter.CallEnded(peer, reason)
}

// release closes the transport and resets the session without notifying.
func (s *CallService) release() {
	if s.session.transport != nil {
		if err := s.session.transport.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("closing transport")
		}
	}
	s.timer.Stop()
	s.session = callSession{generation: s.session.generation}
}

func (s *CallService) send(ctx context.Context, env domain.Envelope) error {
	return s.signaling.Send(ctx, env)
}
