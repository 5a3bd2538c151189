package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/gamelobby/internal/api/apierr"
	"github.com/mcoot/gamelobby/internal/api/request"
	"github.com/mcoot/gamelobby/internal/api/response"
	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/services/game"
)

// GameHandler handles game registration endpoints
type GameHandler struct {
	games *game.Service
}

// NewGameHandler creates a new game handler
func NewGameHandler(games *game.Service) *GameHandler {
	return &GameHandler{games: games}
}

func registrationFrom(req request.GameRequest) game.Registration {
	return game.Registration{
		UniqueName:       req.UniqueName,
		DisplayName:      req.DisplayName,
		ShortDescription: req.ShortDescription,
		Rule:             req.Rule,
		ImageURL:         req.ImageURL,
		MinPlayers:       req.MinPlayers,
		MaxPlayers:       req.MaxPlayers,
		FrontEndURL:      req.FrontEndURL,
		BackEndURL:       req.BackEndURL,
	}
}

// Register handles POST /api/v1/games
func (h *GameHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.GameRequest
	if err := request.Decode(w, r, &req, true); err != nil {
		apierr.WriteError(w, err)
		return
	}

	g, err := h.games.RegisterGame(r.Context(), registrationFrom(req))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.Created(w, response.GameFromModel(g))
}

// Update handles PUT /api/v1/games/{id}
func (h *GameHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["id"])

	var req request.GameRequest
	if err := request.Decode(w, r, &req, true); err != nil {
		apierr.WriteError(w, err)
		return
	}

	g, err := h.games.UpdateGame(r.Context(), id, registrationFrom(req))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.GameFromModel(g))
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["id"])

	g, err := h.games.GetGame(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.GameFromModel(g))
}
