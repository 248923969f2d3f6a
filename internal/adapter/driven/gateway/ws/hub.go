package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/core/port"
	"github.com/Wyydra/yaphone/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const broadcastBuffer = 256

var ErrHubStopped = errors.New("hub stopped")

// implements port.RealTimeGateway
type Hub struct {
	nodeID string
	bridge port.RelayBridge

	mu         sync.RWMutex
	clients    map[domain.ParticipantID]Client
	broadcast  chan domain.Envelope
	register   chan Client
	unregister chan Client
	quit       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a hub. bridge may be nil for a single node relay.
func NewHub(bridge port.RelayBridge) *Hub {
	return &Hub{
		nodeID:     uuid.NewString(),
		bridge:     bridge,
		clients:    make(map[domain.ParticipantID]Client),
		broadcast:  make(chan domain.Envelope, broadcastBuffer),
		register:   make(chan Client),
		unregister: make(chan Client),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) NodeID() string {
	return h.nodeID
}

func (h *Hub) BroadcastMessage(ctx context.Context, msg domain.Message) error {
	return h.fanOut(ctx, msg.Envelope())
}

func (h *Hub) BroadcastPresence(ctx context.Context, participants []domain.Participant) error {
	return h.fanOut(ctx, domain.Envelope{
		Type:         domain.SignalPresence,
		Participants: participants,
	})
}

func (h *Hub) SendEnvelope(ctx context.Context, env domain.Envelope) error {
	if h.sendLocal(env) {
		return nil
	}
	if h.bridge != nil {
		return h.bridge.Publish(ctx, domain.RelayFrame{Origin: h.nodeID, Envelope: env})
	}
	return domain.ErrParticipantOffline
}

// Deliver hands a frame coming from another node to local connections.
func (h *Hub) Deliver(frame domain.RelayFrame) {
	if frame.Origin == h.nodeID {
		return
	}
	if frame.Broadcast {
		if err := h.enqueue(context.Background(), frame.Envelope); err != nil {
			log.Warn().Err(err).Msg("dropping bridged broadcast")
		}
		return
	}
	h.sendLocal(frame.Envelope)
}

func (h *Hub) sendLocal(env domain.Envelope) bool {
	h.mu.RLock()
	client, ok := h.clients[env.To]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	if err := client.Send(env); err != nil {
		log.Error().Err(err).Str("client_id", client.ID().String()).Msg("Error sending envelope")
		metrics.SlowClientsDroppedTotal.Inc()
		client.Close()
	}
	return true
}

func (h *Hub) fanOut(ctx context.Context, env domain.Envelope) error {
	if err := h.enqueue(ctx, env); err != nil {
		return err
	}
	if h.bridge == nil {
		return nil
	}
	return h.bridge.Publish(ctx, domain.RelayFrame{Origin: h.nodeID, Broadcast: true, Envelope: env})
}

func (h *Hub) enqueue(ctx context.Context, env domain.Envelope) error {
	select {
	case <-h.quit:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.quit:
		return ErrHubStopped
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for id, client := range h.clients {
				client.Close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			metrics.ConnectedParticipants.Set(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			old, replaced := h.clients[client.ID()]
			if replaced && old != client {
				old.Close()
			}
			h.clients[client.ID()] = client
			h.mu.Unlock()
			if !replaced {
				metrics.ConnectedParticipants.Inc()
			}
			log.Info().Str("client_id", client.ID().String()).Msg("Client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.ID()]; ok && current == client {
				delete(h.clients, client.ID())
				metrics.ConnectedParticipants.Dec()
				log.Info().Str("client_id", client.ID().String()).Msg("Client unregistered")
			}
			h.mu.Unlock()
			client.Close()

		case env := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				if err := client.Send(env); err != nil {
					log.Error().Err(err).Str("client_id", id.String()).Msg("Error sending message")
					metrics.SlowClientsDroppedTotal.Inc()
					metrics.ConnectedParticipants.Dec()
					client.Close()
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Register(c Client) {
	select {
	case h.register <- c:
	case <-h.quit:
		c.Close()
	}
}

func (h *Hub) Unregister(c Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}
