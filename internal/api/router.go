// Package api exposes the HTTP surface of the party game server: room
// lifecycle, player actions, the per-room SSE event stream, and media.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/playroomlabs/partyroom/internal/api/apierr"
	"github.com/playroomlabs/partyroom/internal/api/handler"
	"github.com/playroomlabs/partyroom/internal/middleware"
	"github.com/playroomlabs/partyroom/internal/services/rooms"
	"github.com/playroomlabs/partyroom/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	RoomManager *rooms.Manager
	Storage     storage.Storage
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.RoomManager)
	mediaHandler := handler.NewMediaHandler(cfg.Storage)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// API subrouter
	api := r.PathPrefix("/api/v1").Subrouter()

	// Room lifecycle
	api.HandleFunc("/rooms", roomHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/join", roomHandler.Join).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/leave", roomHandler.Leave).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/ai", roomHandler.AddAI).Methods(http.MethodPost)

	// In-game actions
	api.HandleFunc("/rooms/{code}/command", roomHandler.Command).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/vote", roomHandler.Vote).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/chat", roomHandler.Chat).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/chat", roomHandler.ChatHistory).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/drawing", roomHandler.SetDrawing).Methods(http.MethodPut)
	api.HandleFunc("/rooms/{code}/state", roomHandler.GameState).Methods(http.MethodGet)

	// Event stream
	api.HandleFunc("/rooms/{code}/events", roomHandler.Events).Methods(http.MethodGet)

	// Generated media (referenced by engine-emitted image URLs)
	r.HandleFunc("/api/media/{ref}", mediaHandler.Get).Methods(http.MethodGet)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
