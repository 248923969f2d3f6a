package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Wyydra/yaphone/internal/core/domain"
)

// Console renders call and chat events as text lines.
// It implements port.CallPresenter and port.ChatPresenter.
type Console struct {
	// TickEvery controls how often an ongoing call prints its duration.
	// Zero disables the periodic line.
	TickEvery time.Duration

	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out, TickEvery: 30 * time.Second}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) RingingIncoming(peer domain.Participant) {
	c.printf("incoming call from %s, type accept or reject", peer.DisplayName)
}

func (c *Console) RingingOutgoing(peer domain.Participant) {
	c.printf("calling %s...", peer.DisplayName)
}

func (c *Console) CallConnected(peer domain.Participant) {
	c.printf("connected with %s", peer.DisplayName)
}

func (c *Console) CallEnded(peer domain.Participant, reason domain.EndReason) {
	switch reason {
	case domain.EndRejected:
		c.printf("%s declined the call", peer.DisplayName)
	case domain.EndBusy:
		c.printf("%s is busy", peer.DisplayName)
	case domain.EndCancelled:
		c.printf("call with %s cancelled", peer.DisplayName)
	case domain.EndFailed:
		c.printf("call with %s failed", peer.DisplayName)
	default:
		c.printf("call with %s ended", peer.DisplayName)
	}
}

func (c *Console) CallTimerTick(elapsed time.Duration) {
	if c.TickEvery <= 0 || elapsed%c.TickEvery != 0 {
		return
	}
	c.printf("in call %s", FormatElapsed(elapsed))
}

func (c *Console) ChatReceived(from domain.Participant, text string) {
	c.printf("<%s> %s", from.DisplayName, text)
}

func (c *Console) DirectoryChanged(participants []domain.Participant) {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.DisplayName)
	}
	if len(names) == 0 {
		c.printf("nobody else is online")
		return
	}
	c.printf("online: %s", strings.Join(names, ", "))
}

func (c *Console) Welcomed(self domain.Participant) {
	c.printf("connected to relay as %s (%s)", self.DisplayName, self.ID)
}

// FormatElapsed renders d as mm:ss, or h:mm:ss past the hour.
func FormatElapsed(d time.Duration) string {
	total := int(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
