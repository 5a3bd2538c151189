package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/gamelobby/internal/api/apierr"
	"github.com/mcoot/gamelobby/internal/api/handler"
	"github.com/mcoot/gamelobby/internal/api/middleware"
	"github.com/mcoot/gamelobby/internal/api/response"
	"github.com/mcoot/gamelobby/internal/api/sse"
	"github.com/mcoot/gamelobby/internal/services/game"
	"github.com/mcoot/gamelobby/internal/services/room"
	"github.com/mcoot/gamelobby/internal/services/user"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Verifier    middleware.TokenVerifier
	UserService *user.Service
	GameService *game.Service
	RoomService *room.Service
	HubManager  *sse.HubManager

	// StorageName is reported by the health check
	StorageName string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	userHandler := handler.NewUserHandler(cfg.UserService)
	gameHandler := handler.NewGameHandler(cfg.GameService)
	roomHandler := handler.NewRoomHandler(cfg.RoomService, cfg.HubManager)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))
	api.NotFoundHandler = http.HandlerFunc(notFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.StorageName)).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Auth(cfg.Verifier))

	protected.HandleFunc("/users/me", userHandler.EnsureMe).Methods(http.MethodPost)
	protected.HandleFunc("/users/me", userHandler.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id}", userHandler.Get).Methods(http.MethodGet)

	protected.HandleFunc("/games", gameHandler.Register).Methods(http.MethodPost)
	protected.HandleFunc("/games/{id}", gameHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/games/{id}", gameHandler.Update).Methods(http.MethodPut)

	protected.HandleFunc("/rooms", roomHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/rooms/{id}", roomHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/rooms/{id}", roomHandler.Close).Methods(http.MethodDelete)
	protected.HandleFunc("/rooms/{id}/players", roomHandler.Join).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{id}/players/me", roomHandler.Leave).Methods(http.MethodDelete)
	protected.HandleFunc("/rooms/{id}/players/me:ready", roomHandler.Ready).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{id}/players/me:cancel", roomHandler.CancelReady).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{id}/events", roomHandler.Events).Methods(http.MethodGet)

	return r
}

func healthHandler(storageName string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, response.Health{Status: "ok", Storage: storageName})
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusNotFound, apierr.ErrorResponse{
		Error: apierr.APIError{Code: apierr.CodeNotFound, Message: "No such endpoint"},
	})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusMethodNotAllowed, apierr.ErrorResponse{
		Error: apierr.APIError{Code: "METHOD_NOT_ALLOWED", Message: "Method not allowed"},
	})
}
