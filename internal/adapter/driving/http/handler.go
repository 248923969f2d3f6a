package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Wyydra/yaphone/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/yaphone/internal/core/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	ChatService     *service.ChatService
	PresenceService *service.PresenceService
	SignalService   *service.SignalService
	Hub             *ws.Hub

	StaticDir    string
	SendBuffer   int
	HistoryLimit int
}

func NewHandler(chat *service.ChatService, presence *service.PresenceService, signals *service.SignalService, hub *ws.Hub) *Handler {
	return &Handler{
		ChatService:     chat,
		PresenceService: presence,
		SignalService:   signals,
		Hub:             hub,
		StaticDir:       "./static",
		SendBuffer:      64,
		HistoryLimit:    50,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", h.ServeWS)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", h.health)
	r.Get("/participants", h.participants)
	r.Get("/history", h.history)

	fs := http.FileServer(http.Dir(h.StaticDir))
	r.Handle("/*", fs)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"node":    h.Hub.NodeID(),
		"clients": h.Hub.Count(),
	})
}

func (h *Handler) participants(w http.ResponseWriter, r *http.Request) {
	online, err := h.PresenceService.Online(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list participants")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "presence unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, online)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	limit := h.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = min(n, h.HistoryLimit)
	}

	msgs, err := h.ChatService.History(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load history")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
