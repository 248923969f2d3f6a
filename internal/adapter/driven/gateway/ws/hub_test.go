package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	id  domain.ParticipantID
	err error

	mu     sync.Mutex
	got    []domain.Envelope
	closed bool
}

func (c *fakeClient) ID() domain.ParticipantID { return c.id }

func (c *fakeClient) Send(env domain.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.got = append(c.got, env)
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) received() []domain.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Envelope(nil), c.got...)
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type MockBridge struct {
	mock.Mock
}

func (m *MockBridge) Publish(ctx context.Context, frame domain.RelayFrame) error {
	args := m.Called(ctx, frame)
	return args.Error(0)
}

func startHub(t *testing.T, bridge *MockBridge) *Hub {
	t.Helper()
	var h *Hub
	if bridge != nil {
		h = NewHub(bridge)
	} else {
		h = NewHub(nil)
	}
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func TestHubSendEnvelopeLocal(t *testing.T) {
	h := startHub(t, nil)
	bob := &fakeClient{id: "bob"}
	h.Register(bob)
	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)

	env := domain.Envelope{Type: domain.SignalOffer, To: "bob", From: "ann", SDP: "v=0"}
	require.NoError(t, h.SendEnvelope(context.Background(), env))

	assert.Equal(t, []domain.Envelope{env}, bob.received())
}

func TestHubSendEnvelopeOffline(t *testing.T) {
	h := startHub(t, nil)

	err := h.SendEnvelope(context.Background(), domain.Envelope{Type: domain.SignalOffer, To: "ghost"})

	assert.ErrorIs(t, err, domain.ErrParticipantOffline)
}

func TestHubSendEnvelopeFallsBackToBridge(t *testing.T) {
	bridge := new(MockBridge)
	h := startHub(t, bridge)
	env := domain.Envelope{Type: domain.SignalHangup, To: "elsewhere"}
	bridge.On("Publish", mock.Anything, domain.RelayFrame{Origin: h.NodeID(), Envelope: env}).Return(nil).Once()

	require.NoError(t, h.SendEnvelope(context.Background(), env))

	bridge.AssertExpectations(t)
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	bridge := new(MockBridge)
	h := startHub(t, bridge)
	ann, bob := &fakeClient{id: "ann"}, &fakeClient{id: "bob"}
	h.Register(ann)
	h.Register(bob)

	snapshot := []domain.Participant{{ID: "ann", DisplayName: "Ann"}, {ID: "bob", DisplayName: "Bob"}}
	bridge.On("Publish", mock.Anything, mock.MatchedBy(func(f domain.RelayFrame) bool {
		return f.Broadcast && f.Origin == h.NodeID() && f.Envelope.Type == domain.SignalPresence
	})).Return(nil).Once()

	require.NoError(t, h.BroadcastPresence(context.Background(), snapshot))

	for _, c := range []*fakeClient{ann, bob} {
		require.Eventually(t, func() bool { return len(c.received()) == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, snapshot, c.received()[0].Participants)
	}
	bridge.AssertExpectations(t)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := startHub(t, nil)
	fast := &fakeClient{id: "fast"}
	slow := &fakeClient{id: "slow", err: errors.New("send buffer full")}
	h.Register(fast)
	h.Register(slow)

	msg := domain.Message{SenderID: "fast", SenderName: "Fast", Content: "hello"}
	require.NoError(t, h.BroadcastMessage(context.Background(), msg))

	require.Eventually(t, slow.isClosed, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)
	require.Len(t, fast.received(), 1)
	assert.Equal(t, "hello", fast.received()[0].Text)
}

func TestHubUnregisterKeepsNewerConnection(t *testing.T) {
	h := startHub(t, nil)
	first := &fakeClient{id: "ann"}
	second := &fakeClient{id: "ann"}
	h.Register(first)
	h.Register(second)
	h.Unregister(first)

	require.NoError(t, h.SendEnvelope(context.Background(), domain.Envelope{Type: domain.SignalBusy, To: "ann"}))
	assert.Len(t, second.received(), 1)
	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())
}

func TestHubDeliver(t *testing.T) {
	h := startHub(t, nil)
	ann := &fakeClient{id: "ann"}
	h.Register(ann)
	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)

	own := domain.RelayFrame{Origin: h.NodeID(), Envelope: domain.Envelope{Type: domain.SignalOffer, To: "ann"}}
	h.Deliver(own)
	assert.Empty(t, ann.received())

	direct := domain.RelayFrame{Origin: "other", Envelope: domain.Envelope{Type: domain.SignalAnswer, To: "ann"}}
	h.Deliver(direct)
	require.Len(t, ann.received(), 1)
	assert.Equal(t, domain.SignalAnswer, ann.received()[0].Type)

	h.Deliver(domain.RelayFrame{Origin: "other", Broadcast: true, Envelope: domain.Envelope{Type: domain.SignalChat, Text: "hey"}})
	assert.Eventually(t, func() bool { return len(ann.received()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestHubStopClosesClients(t *testing.T) {
	h := NewHub(nil)
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	ann := &fakeClient{id: "ann"}
	h.Register(ann)

	h.Stop()
	<-done

	assert.True(t, ann.isClosed())
	assert.ErrorIs(t, h.BroadcastMessage(context.Background(), domain.Message{Content: "x"}), ErrHubStopped)
}
