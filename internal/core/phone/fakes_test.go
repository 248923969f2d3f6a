package phone

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/core/port"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

var errChannelDown = errors.New("channel down")

type fakeSignaling struct {
	mu   sync.Mutex
	sent []domain.Envelope
	err  error
}

func (f *fakeSignaling) Send(ctx context.Context, env domain.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeSignaling) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSignaling) envelopes() []domain.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Envelope(nil), f.sent...)
}

func (f *fakeSignaling) types() []domain.SignalType {
	var out []domain.SignalType
	for _, env := range f.envelopes() {
		out = append(out, env.Type)
	}
	return out
}

func (f *fakeSignaling) count(t domain.SignalType) int {
	n := 0
	for _, env := range f.envelopes() {
		if env.Type == t {
			n++
		}
	}
	return n
}

func (f *fakeSignaling) last() domain.Envelope {
	sent := f.envelopes()
	if len(sent) == 0 {
		return domain.Envelope{}
	}
	return sent[len(sent)-1]
}

type fakeSession struct {
	handlers port.MediaHandlers
	offerErr error

	mu     sync.Mutex
	ops    []string
	closed bool
}

func (s *fakeSession) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
}

func (s *fakeSession) AddLocalAudio(ctx context.Context) error {
	s.record("add-local-audio")
	return nil
}

func (s *fakeSession) CreateOffer(ctx context.Context) (domain.SessionDescription, error) {
	s.record("create-offer")
	if s.offerErr != nil {
		return domain.SessionDescription{}, s.offerErr
	}
	return domain.SessionDescription{Type: domain.SDPOffer, SDP: "v=0 offer"}, nil
}

func (s *fakeSession) CreateAnswer(ctx context.Context) (domain.SessionDescription, error) {
	s.record("create-answer")
	return domain.SessionDescription{Type: domain.SDPAnswer, SDP: "v=0 answer"}, nil
}

func (s *fakeSession) SetRemoteDescription(ctx context.Context, desc domain.SessionDescription) error {
	s.record("set-remote:" + string(desc.Type))
	return nil
}

func (s *fakeSession) AddRemoteCandidate(c domain.Candidate) {
	s.record("candidate:" + c.Candidate)
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.ops = append(s.ops, "close")
	return nil
}

func (s *fakeSession) operations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeMedia struct {
	mu       sync.Mutex
	openErr  error
	audioErr error
	offerErr error
	sessions []*fakeSession
}

func (m *fakeMedia) Open(ctx context.Context, handlers port.MediaHandlers) (port.MediaSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	sess := &fakeSession{handlers: handlers, offerErr: m.offerErr}
	m.sessions = append(m.sessions, sess)
	if m.audioErr != nil {
		return &failingAudioSession{fakeSession: sess, err: m.audioErr}, nil
	}
	return sess, nil
}

func (m *fakeMedia) latest() *fakeSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) == 0 {
		return nil
	}
	return m.sessions[len(m.sessions)-1]
}

func (m *fakeMedia) openSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if !s.isClosed() {
			n++
		}
	}
	return n
}

type failingAudioSession struct {
	*fakeSession
	err error
}

func (s *failingAudioSession) AddLocalAudio(ctx context.Context) error {
	s.record("add-local-audio")
	return s.err
}

type ended struct {
	peer   domain.ParticipantID
	reason domain.EndReason
}

type recordingPresenter struct {
	mu        sync.Mutex
	events    []string
	ended     []ended
	ticks     []time.Duration
	connected int
}

func (p *recordingPresenter) add(ev string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPresenter) RingingIncoming(peer domain.Participant) {
	p.add("ringing-incoming:" + peer.ID.String())
}

func (p *recordingPresenter) RingingOutgoing(peer domain.Participant) {
	p.add("ringing-outgoing:" + peer.ID.String())
}

func (p *recordingPresenter) CallConnected(peer domain.Participant) {
	p.mu.Lock()
	p.connected++
	p.mu.Unlock()
	p.add("connected:" + peer.ID.String())
}

func (p *recordingPresenter) CallEnded(peer domain.Participant, reason domain.EndReason) {
	p.mu.Lock()
	p.ended = append(p.ended, ended{peer: peer.ID, reason: reason})
	p.mu.Unlock()
	p.add("ended:" + string(reason))
}

func (p *recordingPresenter) CallTimerTick(elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, elapsed)
}

func (p *recordingPresenter) eventLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *recordingPresenter) endings() []ended {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ended(nil), p.ended...)
}

func (p *recordingPresenter) connections() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *recordingPresenter) tickLog() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.ticks...)
}

const (
	alice domain.ParticipantID = "alice-id"
	bob   domain.ParticipantID = "bob-id"
	carol domain.ParticipantID = "carol-id"
)

type harness struct {
	svc       *CallService
	signaling *fakeSignaling
	media     *fakeMedia
	presenter *recordingPresenter
	clock     *clock.Mock
	ctx       context.Context
	stop      func()
}

// newHarness runs a service for alice with bob and carol online.
func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := NewDirectory()
	dir.SetSelf(alice)
	dir.ApplySnapshot([]domain.Participant{
		{ID: alice, DisplayName: "Alice"},
		{ID: bob, DisplayName: "Bob"},
		{ID: carol, DisplayName: "Carol"},
	})

	h := &harness{
		signaling: &fakeSignaling{},
		media:     &fakeMedia{},
		presenter: &recordingPresenter{},
		clock:     clock.NewMock(),
	}
	h.svc = NewCallService(h.signaling, h.media, dir, h.presenter, h.clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.svc.Run(ctx)
	}()
	h.ctx = context.Background()
	h.stop = func() {
		cancel()
		<-done
	}
	t.Cleanup(h.stop)
	return h
}

func (h *harness) signal(t *testing.T, typ domain.SignalType, from domain.ParticipantID) {
	t.Helper()
	require.NoError(t, h.svc.HandleSignal(h.ctx, domain.Envelope{Type: typ, From: from}))
}

func (h *harness) sdp(t *testing.T, typ domain.SignalType, from domain.ParticipantID, sdp string) {
	t.Helper()
	require.NoError(t, h.svc.HandleSignal(h.ctx, domain.Envelope{Type: typ, From: from, SDP: sdp}))
}

func (h *harness) candidate(t *testing.T, from domain.ParticipantID, c string) {
	t.Helper()
	require.NoError(t, h.svc.HandleSignal(h.ctx, domain.Envelope{
		Type:      domain.SignalCandidate,
		From:      from,
		Candidate: &domain.Candidate{Candidate: c},
	}))
}

func (h *harness) state(t *testing.T) domain.CallState {
	t.Helper()
	snap, err := h.svc.Snapshot(h.ctx)
	require.NoError(t, err)
	return snap.State
}

// inspect copies the internal session from inside the loop.
func (h *harness) inspect(t *testing.T) callSession {
	t.Helper()
	var sess callSession
	require.NoError(t, h.svc.do(h.ctx, func(context.Context) error {
		sess = h.svc.session
		sess.pending = append([]domain.Candidate(nil), h.svc.session.pending...)
		return nil
	}))
	return sess
}

func (h *harness) requireCleanIdle(t *testing.T) {
	t.Helper()
	sess := h.inspect(t)
	require.Equal(t, domain.StateIdle, sess.state)
	require.Nil(t, sess.transport)
	require.Empty(t, sess.pending)
	require.False(t, sess.accepted)
	require.False(t, sess.remoteApplied)
	require.Zero(t, h.media.openSessions())
	require.False(t, h.svc.timer.Running())
}

// activeAsCaller drives alice into an active call with bob.
func (h *harness) activeAsCaller(t *testing.T) *fakeSession {
	t.Helper()
	require.NoError(t, h.svc.Call(h.ctx, bob))
	h.signal(t, domain.SignalCallAccepted, bob)
	h.sdp(t, domain.SignalAnswer, bob, "v=0 answer")
	require.Equal(t, domain.StateActive, h.state(t))
	return h.media.latest()
}

// activeAsCallee drives alice into an active call answered from bob.
func (h *harness) activeAsCallee(t *testing.T) *fakeSession {
	t.Helper()
	h.signal(t, domain.SignalCallRequest, bob)
	require.NoError(t, h.svc.Accept(h.ctx))
	h.sdp(t, domain.SignalOffer, bob, "v=0 offer")
	require.Equal(t, domain.StateActive, h.state(t))
	return h.media.latest()
}
