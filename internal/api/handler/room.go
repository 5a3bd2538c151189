package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/gamelobby/internal/api/apierr"
	"github.com/mcoot/gamelobby/internal/api/middleware"
	"github.com/mcoot/gamelobby/internal/api/request"
	"github.com/mcoot/gamelobby/internal/api/response"
	"github.com/mcoot/gamelobby/internal/api/sse"
	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/services/room"
)

// RoomHandler handles room endpoints
type RoomHandler struct {
	rooms *room.Service
	hubs  *sse.HubManager
}

// NewRoomHandler creates a new room handler. hubs may be nil, which
// disables the event stream.
func NewRoomHandler(rooms *room.Service, hubs *sse.HubManager) *RoomHandler {
	return &RoomHandler{rooms: rooms, hubs: hubs}
}

func roomID(r *http.Request) model.RoomID {
	return model.RoomID(mux.Vars(r)["id"])
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	var req request.CreateRoomRequest
	if err := request.Decode(w, r, &req, true); err != nil {
		apierr.WriteError(w, err)
		return
	}

	created, err := h.rooms.CreateRoom(r.Context(), room.CreateRoomRequest{
		GameID:       model.GameID(req.GameID),
		HostIdentity: principal.Identity,
		Name:         req.Name,
		Password:     req.Password,
		MinPlayers:   req.MinPlayers,
		MaxPlayers:   req.MaxPlayers,
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.Created(w, response.RoomFromModel(created))
}

// List handles GET /api/v1/rooms?status=&page=&offset=
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := model.RoomStatusWaiting
	if s := q.Get("status"); s != "" {
		parsed, ok := model.ParseRoomStatus(s)
		if !ok {
			apierr.WriteError(w, apierr.NewInvalidRequestError("unknown status "+s))
			return
		}
		status = parsed
	}

	page, err := intParam(q.Get("page"), 0)
	if err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("page must be a number"))
		return
	}
	offset, err := intParam(q.Get("offset"), model.DefaultPageSize)
	if err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("offset must be a number"))
		return
	}

	result, err := h.rooms.ListRooms(r.Context(), status, model.PageRequest{Page: page, Offset: offset})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.RoomPageFromModel(result))
}

func intParam(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.rooms.GetRoom(r.Context(), roomID(r))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.RoomFromModel(found))
}

// Close handles DELETE /api/v1/rooms/{id}
func (h *RoomHandler) Close(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	if err := h.rooms.CloseRoom(r.Context(), roomID(r), principal.Identity); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Join handles POST /api/v1/rooms/{id}/players
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	var req request.JoinRoomRequest
	if err := request.Decode(w, r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}

	joined, err := h.rooms.JoinRoom(r.Context(), roomID(r), principal.Identity, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.RoomFromModel(joined))
}

// Leave handles DELETE /api/v1/rooms/{id}/players/me
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	if err := h.rooms.LeaveRoom(r.Context(), roomID(r), principal.Identity); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Ready handles POST /api/v1/rooms/{id}/players/me:ready
func (h *RoomHandler) Ready(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	updated, err := h.rooms.GetReady(r.Context(), roomID(r), principal.Identity)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.RoomFromModel(updated))
}

// CancelReady handles POST /api/v1/rooms/{id}/players/me:cancel
func (h *RoomHandler) CancelReady(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())

	updated, err := h.rooms.CancelReady(r.Context(), roomID(r), principal.Identity)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, response.RoomFromModel(updated))
}

// Events handles GET /api/v1/rooms/{id}/events, streaming the room's events
// over SSE
func (h *RoomHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.hubs == nil {
		apierr.WriteError(w, apierr.NewInternalError())
		return
	}
	principal := middleware.MustGetPrincipal(r.Context())

	id := roomID(r)

	// Look the room up only once the hub is in place, so a close that lands
	// in between still reaches the stream
	hub := h.hubs.GetOrCreateHub(id)
	if _, err := h.rooms.GetRoom(r.Context(), id); err != nil {
		h.hubs.Release(hub)
		apierr.WriteError(w, err)
		return
	}

	sse.ServeSSE(w, r, hub, principal.Identity)
}
