package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/partyroom/internal/api/handler"
	"github.com/mcoot/partyroom/internal/api/middleware"
	"github.com/mcoot/partyroom/internal/dependencies/clock"
	logging "github.com/mcoot/partyroom/internal/middleware"
	"github.com/mcoot/partyroom/internal/push"
	"github.com/mcoot/partyroom/internal/services/auth"
	"github.com/mcoot/partyroom/internal/services/coordinator"
	"github.com/mcoot/partyroom/internal/services/rooms"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Clock       clock.Clock
	AuthService *auth.Service
	RoomService *rooms.Service
	Coordinator *coordinator.Coordinator
	HubManager  *push.HubManager
	// PublicURL is the externally visible base URL used in room QR codes
	PublicURL string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	roomHandler := handler.NewRoomHandler(cfg.RoomService, cfg.Coordinator, cfg.PublicURL)
	sessionHandler := handler.NewSessionHandler(cfg.Coordinator, cfg.HubManager, cfg.Clock, cfg.Logger)
	wsHandler := push.NewWebSocketHandler(cfg.Coordinator, cfg.HubManager, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := logging.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)

	// Room routes (all require auth)
	roomRoutes := api.PathPrefix("/rooms").Subrouter()
	roomRoutes.Use(authMiddleware)
	roomRoutes.HandleFunc("", roomHandler.Create).Methods(http.MethodPost)
	roomRoutes.HandleFunc("", roomHandler.List).Methods(http.MethodGet)
	roomRoutes.HandleFunc("/{id}", roomHandler.Get).Methods(http.MethodGet)
	roomRoutes.HandleFunc("/{id}", roomHandler.Delete).Methods(http.MethodDelete)
	roomRoutes.HandleFunc("/{id}/qr", roomHandler.QR).Methods(http.MethodGet)

	// Session routes (all require auth)
	sessions := api.PathPrefix("/sessions").Subrouter()
	sessions.Use(authMiddleware)
	sessions.HandleFunc("/{id}", sessionHandler.Get).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}/join", sessionHandler.Join).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/leave", sessionHandler.Leave).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/participants", sessionHandler.Participants).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}/actions", sessionHandler.Action).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/history", sessionHandler.History).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}/events", sessionHandler.Events).Methods(http.MethodGet)

	// WebSocket endpoint authenticates itself from the token query parameter
	api.Handle("/ws", wsHandler).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
