package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/services/auth"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"room not found", model.RoomNotFound("r1"), http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found"},
		{"user not found", model.UserNotFound("identity", "x"), http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
		{"game not found", model.GameNotFound("id", "g"), http.StatusNotFound, "GAME_NOT_FOUND", "GameRegistration not found"},
		{"wrapped not found", fmt.Errorf("load: %w", model.RoomNotFound("r1")), http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found"},
		{"wrong password", model.WrongPassword(), http.StatusBadRequest, CodeWrongPassword, "wrong password"},
		{"room full", model.RoomFull("r1"), http.StatusBadRequest, CodeRoomFull,
			"The room (r1) is full. Please select another room or try again later."},
		{"not host", model.NotRoomHost("p1"), http.StatusBadRequest, CodeNotRoomHost, "Player(p1) is not the host"},
		{"wrapped validation", fmt.Errorf("create user: %w", model.DuplicateEmail("a@b.c")), http.StatusBadRequest,
			CodeDuplicateEmail, "Email (a@b.c) is already registered."},
		{"conflict", model.ErrRoomConflict, http.StatusConflict, CodeRoomConflict, "Room was modified concurrently, please retry"},
		{"bad token", auth.ErrInvalidToken, http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired token"},
		{"explicit", NewInvalidRequestError("bad body"), http.StatusBadRequest, CodeInvalidRequest, "bad body"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternalError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
		})
	}
}
