package main

import (
	"context"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wyydra/yaphone/internal/adapter/driven/media/capture"
	"github.com/Wyydra/yaphone/internal/adapter/driven/media/pion"
	signaling "github.com/Wyydra/yaphone/internal/adapter/driven/signaling/ws"
	"github.com/Wyydra/yaphone/internal/adapter/driving/cli"
	"github.com/Wyydra/yaphone/internal/adapter/driving/relay"
	"github.com/Wyydra/yaphone/internal/config"
	"github.com/Wyydra/yaphone/internal/core/phone"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	// stdout belongs to the console
	if err := config.SetupLogging(cfg.Log, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relayURL, err := url.Parse(cfg.RelayURL)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.RelayURL).Msg("Invalid relay url")
	}
	q := relayURL.Query()
	q.Set("name", cfg.DisplayName)
	relayURL.RawQuery = q.Encode()

	mediaCfg := pion.Config{ICEServers: cfg.STUNURLs}
	if cfg.CaptureMic {
		mic, err := capture.NewMicrophone()
		if err != nil {
			log.Warn().Err(err).Msg("Microphone unavailable, sending silence")
		} else {
			mediaCfg.Source = mic
			mediaCfg.Codecs = mic.Codecs()
		}
	}
	transport, err := pion.NewTransport(mediaCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up media")
	}

	conn := signaling.NewClient(relayURL.String())
	if err := conn.Connect(ctx); err != nil {
		log.Fatal().Err(err).Str("url", cfg.RelayURL).Msg("Failed to reach relay")
	}
	defer conn.Close()

	console := cli.NewConsole(os.Stdout)
	directory := phone.NewDirectory()
	calls := phone.NewCallService(conn, transport, directory, console, clock.New())
	chat := phone.NewChatClient(conn, directory, console)
	dispatcher := relay.NewDispatcher(calls, chat, directory, console)

	callsDone := make(chan struct{})
	go func() {
		defer close(callsDone)
		if err := calls.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Call service stopped")
		}
	}()

	// The relay connection outlives ctx so a final hangup can still go out.
	connCtx, closeConn := context.WithCancel(context.Background())
	defer closeConn()
	go func() {
		if err := conn.Run(connCtx, dispatcher); err != nil && connCtx.Err() == nil {
			log.Error().Err(err).Msg("Relay connection lost")
			stop()
		}
	}()

	if err := cli.NewREPL(calls, chat, directory, console).Run(ctx, os.Stdin); err != nil {
		log.Error().Err(err).Msg("Failed to read commands")
	}

	byeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if snap, err := calls.Snapshot(byeCtx); err == nil && snap.InCall() {
		if err := calls.Hangup(byeCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to hang up")
		}
	}

	stop()
	<-callsDone
	closeConn()
	log.Info().Msg("Bye")
}
