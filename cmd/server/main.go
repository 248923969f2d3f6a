package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wyydra/yaphone/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/yaphone/internal/adapter/driven/persistence/memory"
	"github.com/Wyydra/yaphone/internal/adapter/driven/persistence/redis"
	handler "github.com/Wyydra/yaphone/internal/adapter/driving/http"
	"github.com/Wyydra/yaphone/internal/config"
	"github.com/Wyydra/yaphone/internal/core/port"
	"github.com/Wyydra/yaphone/internal/core/service"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := config.SetupLogging(cfg.Log, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		presence port.PresenceStore
		hub      *ws.Hub
	)
	switch cfg.Presence {
	case config.PresenceRedis:
		client, err := redis.Connect(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
		}
		defer client.Close()

		bridge := redis.NewBridge(client)
		presence = redis.NewPresenceStore(client)
		hub = ws.NewHub(bridge)
		go func() {
			if err := bridge.Run(ctx, hub.Deliver); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Relay bridge stopped")
			}
		}()
	default:
		presence = memory.NewPresenceStore()
		hub = ws.NewHub(nil)
	}

	messages := memory.NewMessageRepository(cfg.HistoryLimit)
	chatService := service.NewChatService(messages, hub)
	presenceService := service.NewPresenceService(presence, hub)
	signalService := service.NewSignalService(presence, hub)

	h := handler.NewHandler(chatService, presenceService, signalService, hub)
	h.StaticDir = cfg.StaticDir
	h.SendBuffer = cfg.SendBuffer
	h.HistoryLimit = cfg.HistoryLimit

	go hub.Run()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: h.NewRouter(),
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("presence", cfg.Presence).Str("node", hub.NodeID()).Msg("Starting relay")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	hub.Stop()
	log.Info().Msg("Server exited")
}
