package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait        = 10 * time.Second
	handshakeTimeout = 15 * time.Second
)

var ErrNotConnected = errors.New("signaling channel not connected")

// Handler receives what the relay pushes.
type Handler interface {
	HandleEnvelope(ctx context.Context, env domain.Envelope)
	ConnectionLost(ctx context.Context, err error)
}

// Client is the websocket connection to the relay. Writes are serialized,
// reads happen on the goroutine calling Run.
type Client struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(url string) *Client {
	return &Client{url: url}
}

func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	log.Info().Str("url", c.url).Msg("connected to relay")
	return nil
}

func (c *Client) Send(ctx context.Context, env domain.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write %s: %w", env.Type, err)
	}
	return nil
}

// Run reads until the connection fails or ctx is done. A failure is
// reported to h.ConnectionLost; a cancelled ctx is not.
func (c *Client) Run(ctx context.Context, h Handler) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		var env domain.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isDecodeError(err) {
				log.Warn().Err(err).Msg("dropping malformed frame")
				continue
			}
			_ = c.Close()
			h.ConnectionLost(ctx, err)
			return err
		}
		h.HandleEnvelope(ctx, env)
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
