package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/gamelobby/internal/api/apierr"
	"github.com/mcoot/gamelobby/internal/api/middleware"
	"github.com/mcoot/gamelobby/internal/api/request"
	"github.com/mcoot/gamelobby/internal/api/response"
	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/services/user"
)

// UserHandler handles user endpoints
type UserHandler struct {
	users *user.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *user.Service) *UserHandler {
	return &UserHandler{users: users}
}

// EnsureMe handles POST /api/v1/users/me, registering the caller on first login
func (h *UserHandler) EnsureMe(w http.ResponseWriter, r *http.Request) {
	principal := *middleware.MustGetPrincipal(r.Context())

	var req request.EnsureUserRequest
	if err := request.Decode(w, r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}
	if req.Nickname != "" {
		principal.Nickname = req.Nickname
	}

	u, err := h.users.EnsureUser(r.Context(), principal)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.UserFromModel(u))
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	u, err := h.users.GetUserMe(r.Context(), principal.Email)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.UserFromModel(u))
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.UserID(mux.Vars(r)["id"])

	u, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.UserFromModel(u))
}
