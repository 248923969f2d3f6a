package phone

import (
	"context"
	"strings"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/core/port"
)

// ChatClient relays text messages. Delivery is fire-and-forget.
type ChatClient struct {
	signaling port.SignalingChannel
	directory *Directory
	presenter port.ChatPresenter
}

func NewChatClient(signaling port.SignalingChannel, directory *Directory, presenter port.ChatPresenter) *ChatClient {
	return &ChatClient{
		signaling: signaling,
		directory: directory,
		presenter: presenter,
	}
}

func (c *ChatClient) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyMessage
	}
	return c.signaling.Send(ctx, domain.Envelope{Type: domain.SignalChat, Text: text})
}

func (c *ChatClient) Receive(env domain.Envelope) {
	from, ok := c.directory.Lookup(env.From)
	if !ok {
		from = domain.Participant{ID: env.From, DisplayName: env.DisplayName}
		if env.From == c.directory.Self() {
			from.DisplayName = "me"
		}
	}
	c.presenter.ChatReceived(from, env.Text)
}
