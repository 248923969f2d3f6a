package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/Wyydra/yaphone/internal/core/phone"
	"github.com/rs/zerolog/log"
)

type CallControl interface {
	Call(ctx context.Context, peer domain.ParticipantID) error
	Accept(ctx context.Context) error
	Reject(ctx context.Context) error
	Cancel(ctx context.Context) error
	Hangup(ctx context.Context) error
	Snapshot(ctx context.Context) (domain.CallSnapshot, error)
}

type ChatSender interface {
	Send(ctx context.Context, text string) error
}

const help = `commands:
  who                 list online participants
  call <name|id>      start a call
  accept | reject     answer an incoming call
  cancel              stop ringing an outgoing call
  hangup              end the current call
  say <text>          send a chat message to everyone
  status              show the call state
  quit                leave`

// REPL reads commands line by line and drives the phone.
type REPL struct {
	calls     CallControl
	chat      ChatSender
	directory *phone.Directory
	console   *Console
}

func NewREPL(calls CallControl, chat ChatSender, directory *phone.Directory, console *Console) *REPL {
	return &REPL{
		calls:     calls,
		chat:      chat,
		directory: directory,
		console:   console,
	}
}

// Run returns when in is exhausted, quit is typed or ctx is done.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	r.console.printf("type help for commands")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if quit := r.Exec(ctx, line); quit {
				return nil
			}
		}
	}
}

// Exec runs one command line and reports whether the user asked to quit.
func (r *REPL) Exec(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(cmd) {
	case "":
	case "help", "?":
		r.console.printf("%s", help)
	case "who":
		r.who()
	case "call":
		err = r.call(ctx, arg)
	case "accept":
		err = r.calls.Accept(ctx)
	case "reject":
		err = r.calls.Reject(ctx)
	case "cancel":
		err = r.calls.Cancel(ctx)
	case "hangup":
		err = r.calls.Hangup(ctx)
	case "say":
		err = r.chat.Send(ctx, arg)
	case "status":
		err = r.status(ctx)
	case "quit", "exit":
		return true
	default:
		r.console.printf("unknown command %q, type help", cmd)
	}

	if err != nil {
		log.Debug().Err(err).Str("command", cmd).Msg("command failed")
		r.console.printf("error: %s", describe(err))
	}
	return false
}

func (r *REPL) who() {
	participants := r.directory.List()
	if len(participants) == 0 {
		r.console.printf("nobody else is online")
		return
	}
	for _, p := range participants {
		r.console.printf("  %s (%s)", p.DisplayName, p.ID)
	}
}

func (r *REPL) call(ctx context.Context, target string) error {
	if target == "" {
		return errors.New("usage: call <name|id>")
	}
	peer, ok := r.directory.Find(target)
	if !ok {
		return domain.ErrUnknownParticipant
	}
	return r.calls.Call(ctx, peer.ID)
}

func (r *REPL) status(ctx context.Context) error {
	snap, err := r.calls.Snapshot(ctx)
	if err != nil {
		return err
	}
	switch snap.State {
	case domain.StateIdle:
		r.console.printf("idle")
	case domain.StateActive:
		r.console.printf("in call with %s, %s", snap.Peer.DisplayName, FormatElapsed(snap.Elapsed))
	default:
		r.console.printf("%s with %s", snap.State, snap.Peer.DisplayName)
	}
	return nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return "not possible right now"
	case errors.Is(err, domain.ErrUnknownParticipant):
		return "no such participant online"
	case errors.Is(err, domain.ErrMediaUnavailable):
		return "audio device unavailable"
	default:
		return err.Error()
	}
}
