package pion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/core/port"
	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	ICEServers []string
	Source     AudioSource
	Sink       AudioSink
	// Codecs replaces the default codec set, so the engine matches the
	// encoder that produces Source.
	Codecs CodecPopulator
}

// CodecPopulator registers codecs on a media engine.
type CodecPopulator interface {
	Populate(m *webrtc.MediaEngine)
}

// Transport implements port.MediaTransport on top of pion.
type Transport struct {
	api    *webrtc.API
	config webrtc.Configuration
	source AudioSource
	sink   AudioSink
}

func NewTransport(cfg Config) (*Transport, error) {
	m := &webrtc.MediaEngine{}
	if cfg.Codecs != nil {
		cfg.Codecs.Populate(m)
	} else if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(registry),
	)

	var servers []webrtc.ICEServer
	if len(cfg.ICEServers) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: cfg.ICEServers})
	}

	source := cfg.Source
	if source == nil {
		source = SilenceSource{}
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NewCountingSink()
	}

	return &Transport{
		api:    api,
		config: webrtc.Configuration{ICEServers: servers},
		source: source,
		sink:   sink,
	}, nil
}

func (t *Transport) Open(ctx context.Context, handlers port.MediaHandlers) (port.MediaSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pc, err := t.api.NewPeerConnection(t.config)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	s := &Session{
		pc:     pc,
		source: t.source,
		sink:   t.sink,
		logger: log.With().Str("component", "media").Logger(),
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		// nil marks the end of gathering
		if c == nil || handlers.OnLocalCandidate == nil {
			return
		}
		handlers.OnLocalCandidate(fromICE(c.ToJSON()))
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.logger.Debug().Str("state", state.String()).Msg("peer connection state")
		if handlers.OnConnectionStateChange != nil {
			handlers.OnConnectionStateChange(domain.ConnectionState(state.String()))
		}
	})

	pc.OnTrack(func(remote *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		s.logger.Debug().
			Str("kind", remote.Kind().String()).
			Str("codec", remote.Codec().MimeType).
			Msg("received remote track")

		if handlers.OnRemoteTrack != nil {
			handlers.OnRemoteTrack(port.RemoteTrack{
				ID:       remote.ID(),
				StreamID: remote.StreamID(),
				Codec:    remote.Codec().MimeType,
			})
		}
		go s.drain(remote)
	})

	return s, nil
}

// Session is one peer connection.
type Session struct {
	pc     *webrtc.PeerConnection
	source AudioSource
	sink   AudioSink
	logger zerolog.Logger

	mu      sync.Mutex
	release func()
	closed  bool
}

func (s *Session) AddLocalAudio(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	track, release, err := s.source.Track()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, err)
	}

	sender, err := s.pc.AddTrack(track)
	if err != nil {
		release()
		return fmt.Errorf("add local audio: %w", err)
	}

	s.mu.Lock()
	s.release = release
	s.mu.Unlock()

	go s.readSenderRTCP(sender)
	return nil
}

func (s *Session) CreateOffer(ctx context.Context) (domain.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescription{}, err
	}
	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return domain.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return domain.SessionDescription{}, fmt.Errorf("set local offer: %w", err)
	}
	return domain.SessionDescription{Type: domain.SDPOffer, SDP: offer.SDP}, nil
}

func (s *Session) CreateAnswer(ctx context.Context) (domain.SessionDescription, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescription{}, err
	}
	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return domain.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return domain.SessionDescription{}, fmt.Errorf("set local answer: %w", err)
	}
	return domain.SessionDescription{Type: domain.SDPAnswer, SDP: answer.SDP}, nil
}

func (s *Session) SetRemoteDescription(ctx context.Context, desc domain.SessionDescription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sdp := webrtc.SessionDescription{Type: webrtc.NewSDPType(string(desc.Type)), SDP: desc.SDP}
	if err := s.pc.SetRemoteDescription(sdp); err != nil {
		return fmt.Errorf("set remote %s: %w", desc.Type, err)
	}
	return nil
}

// AddRemoteCandidate is a no-op until a remote description is set.
func (s *Session) AddRemoteCandidate(c domain.Candidate) {
	if s.pc.RemoteDescription() == nil {
		s.logger.Debug().Msg("candidate before remote description ignored")
		return
	}
	if err := s.pc.AddICECandidate(toICE(c)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to add remote candidate")
	}
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	release := s.release
	s.mu.Unlock()

	if release != nil {
		release()
	}
	return s.pc.Close()
}

// trackCounter is implemented by sinks that keep per-track totals.
type trackCounter interface {
	Take(trackID string) (packets, bytes int)
}

func (s *Session) drain(remote *webrtc.TrackRemote) {
	defer s.finishTrack(remote.ID())
	for {
		pkt, _, err := remote.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug().Err(err).Msg("remote track ended")
			}
			return
		}
		if err := s.sink.WriteRTP(remote.ID(), pkt); err != nil {
			s.logger.Warn().Err(err).Msg("audio sink rejected packet")
			return
		}
	}
}

func (s *Session) finishTrack(trackID string) {
	counter, ok := s.sink.(trackCounter)
	if !ok {
		return
	}
	packets, bytes := counter.Take(trackID)
	s.logger.Info().
		Str("track_id", trackID).
		Int("packets", packets).
		Int("bytes", bytes).
		Msg("remote track finished")
}

// readSenderRTCP keeps interceptors fed and logs what the peer reports.
func (s *Session) readSenderRTCP(sender *webrtc.RTPSender) {
	for {
		packets, _, err := sender.ReadRTCP()
		if err != nil {
			return
		}
		for _, p := range packets {
			rr, ok := p.(*rtcp.ReceiverReport)
			if !ok {
				continue
			}
			for _, r := range rr.Reports {
				s.logger.Debug().
					Uint32("ssrc", r.SSRC).
					Uint8("fraction_lost", r.FractionLost).
					Uint32("jitter", r.Jitter).
					Msg("receiver report")
			}
		}
	}
}

func fromICE(c webrtc.ICECandidateInit) domain.Candidate {
	return domain.Candidate{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

func toICE(c domain.Candidate) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}
