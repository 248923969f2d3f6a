package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	maxNameLength  = 32
)

var ErrSendBufferFull = errors.New("send buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict origins once the web client is served from a known host
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSClient is one participant connection. Writes go through a buffered
// queue drained by writePump.
type WSClient struct {
	participant domain.Participant
	conn        *websocket.Conn
	send        chan domain.Envelope
	done        chan struct{}
	closeOnce   sync.Once
}

func newWSClient(p domain.Participant, conn *websocket.Conn, buffer int) *WSClient {
	return &WSClient{
		participant: p,
		conn:        conn,
		send:        make(chan domain.Envelope, buffer),
		done:        make(chan struct{}),
	}
}

func (c *WSClient) ID() domain.ParticipantID {
	return c.participant.ID
}

func (c *WSClient) Send(env domain.Envelope) error {
	select {
	case <-c.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.send <- env:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *WSClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HTTP handler
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	id := domain.NewParticipantID()
	participant := domain.Participant{ID: id, DisplayName: displayName(r.URL.Query().Get("name"), id)}
	client := newWSClient(participant, conn, h.SendBuffer)

	l := log.With().Str("client_id", id.String()).Str("name", participant.DisplayName).Logger()
	l.Info().Msg("New client connected")

	// The participant learns its own id before any other frame.
	client.Send(domain.Envelope{Type: domain.SignalWelcome, To: id, DisplayName: participant.DisplayName})
	go client.writePump()

	h.Hub.Register(client)

	ctx := context.WithoutCancel(r.Context())
	if err := h.PresenceService.Join(ctx, participant); err != nil {
		l.Error().Err(err).Msg("Failed to publish presence")
	}

	defer func() {
		l.Info().Msg("Client disconnected")
		h.Hub.Unregister(client)
		if err := h.PresenceService.Leave(ctx, id); err != nil {
			l.Error().Err(err).Msg("Failed to withdraw presence")
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			return
		}

		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			metrics.EnvelopesRejectedTotal.WithLabelValues("decode").Inc()
			l.Warn().Err(err).Msg("Invalid frame")
			continue
		}
		h.route(ctx, l, participant, env)
	}
}

func (h *Handler) route(ctx context.Context, l zerolog.Logger, sender domain.Participant, env domain.Envelope) {
	switch {
	case env.Type == domain.SignalChat:
		if err := h.ChatService.SendMessage(ctx, sender, env.Text); err != nil {
			l.Warn().Err(err).Msg("Failed to process message")
		}
	case env.Type.IsCallSignal():
		if err := h.SignalService.HandleSignal(ctx, sender, env); err != nil {
			l.Warn().Err(err).Str("type", string(env.Type)).Msg("Failed to handle call signal")
		}
	default:
		metrics.EnvelopesRejectedTotal.WithLabelValues("type").Inc()
		l.Warn().Str("type", string(env.Type)).Msg("Unsupported frame type")
	}
}

func displayName(raw string, id domain.ParticipantID) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "guest-" + id.String()[:4]
	}
	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	return name
}
