package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidPassword     = "INVALID_PASSWORD"
	CodeInvalidPlayerRange  = "INVALID_PLAYER_RANGE"
	CodeHostAlreadyInRoom   = "HOST_ALREADY_IN_ROOM"
	CodePlayerAlreadyInRoom = "PLAYER_ALREADY_IN_ROOM"
	CodeWrongPassword       = "WRONG_PASSWORD"
	CodeRoomFull            = "ROOM_FULL"
	CodePlayerNotJoined     = "PLAYER_NOT_JOINED"
	CodeNotRoomHost         = "NOT_ROOM_HOST"
	CodeDuplicateEmail      = "DUPLICATE_EMAIL"
	CodeDuplicateIdentity   = "DUPLICATE_IDENTITY"
	CodeDuplicateGame       = "DUPLICATE_GAME"
	CodeRoomConflict        = "ROOM_CONFLICT"
	CodeNotFound            = "NOT_FOUND"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodeGameNotFound        = "GAME_NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInternalError       = "INTERNAL_ERROR"
)

var notFoundCodes = map[string]string{
	model.ResourceUser: CodeUserNotFound,
	model.ResourceRoom: CodeRoomNotFound,
	model.ResourceGame: CodeGameNotFound,
}

// validationCodes maps validation kinds to their codes
var validationCodes = map[error]string{
	model.ErrInvalidInput:        CodeInvalidRequest,
	model.ErrInvalidPassword:     CodeInvalidPassword,
	model.ErrInvalidPlayerRange:  CodeInvalidPlayerRange,
	model.ErrHostAlreadyInRoom:   CodeHostAlreadyInRoom,
	model.ErrPlayerAlreadyInRoom: CodePlayerAlreadyInRoom,
	model.ErrWrongPassword:       CodeWrongPassword,
	model.ErrRoomFull:            CodeRoomFull,
	model.ErrPlayerNotJoined:     CodePlayerNotJoined,
	model.ErrNotRoomHost:         CodeNotRoomHost,
	model.ErrDuplicateEmail:      CodeDuplicateEmail,
	model.ErrDuplicateIdentity:   CodeDuplicateIdentity,
	model.ErrDuplicateGame:       CodeDuplicateGame,
}

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// StatusOf returns the HTTP status an error maps to
func StatusOf(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var nf *model.NotFoundError
	if errors.As(err, &nf) {
		code, ok := notFoundCodes[nf.Resource]
		if !ok {
			code = CodeNotFound
		}
		return &httpError{http.StatusNotFound, APIError{code, nf.Error()}}
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		code, ok := validationCodes[ve.Kind]
		if !ok {
			code = CodeInvalidRequest
		}
		return &httpError{http.StatusBadRequest, APIError{code, ve.Message}}
	}

	switch {
	case errors.Is(err, model.ErrRoomConflict):
		return &httpError{http.StatusConflict, APIError{CodeRoomConflict, "Room was modified concurrently, please retry"}}
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingIdentity):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired token"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
