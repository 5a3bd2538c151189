package model

import (
	"errors"
	"fmt"
)

// NotFoundError reports a missing resource
type NotFoundError struct {
	Resource string
	Key      string
	Value    string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// Is matches any NotFoundError for the same resource, so callers can compare
// against the sentinels below regardless of the key that was looked up.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return t.Resource == e.Resource && (t.Key == "" || t.Key == e.Key)
}

// Resource names
const (
	ResourceUser = "User"
	ResourceRoom = "Room"
	ResourceGame = "GameRegistration"
)

// Not found sentinels
var (
	ErrUserNotFound = &NotFoundError{Resource: ResourceUser}
	ErrRoomNotFound = &NotFoundError{Resource: ResourceRoom}
	ErrGameNotFound = &NotFoundError{Resource: ResourceGame}
)

// UserNotFound builds a not found error for a user lookup
func UserNotFound(key, value string) error {
	return &NotFoundError{Resource: ResourceUser, Key: key, Value: value}
}

// RoomNotFound builds a not found error for a room id
func RoomNotFound(id RoomID) error {
	return &NotFoundError{Resource: ResourceRoom, Key: "id", Value: string(id)}
}

// GameNotFound builds a not found error for a game registration lookup
func GameNotFound(key, value string) error {
	return &NotFoundError{Resource: ResourceGame, Key: key, Value: value}
}

// ValidationError is a business rule violation with a user-facing message.
// It unwraps to one of the kind sentinels below.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Validation kinds
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidPassword     = errors.New("invalid room password")
	ErrInvalidPlayerRange  = errors.New("invalid player range")
	ErrHostAlreadyInRoom   = errors.New("host is already in a room")
	ErrPlayerAlreadyInRoom = errors.New("player is already in a room")
	ErrWrongPassword       = errors.New("wrong password")
	ErrRoomFull            = errors.New("room is full")
	ErrPlayerNotJoined     = errors.New("player not joined")
	ErrNotRoomHost         = errors.New("player is not the host")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateIdentity   = errors.New("identity already bound")
	ErrDuplicateGame       = errors.New("game already registered")
)

// ErrRoomConflict is returned when a room was modified since it was read
var ErrRoomConflict = errors.New("room was modified concurrently")

func newValidation(kind error, format string, args ...any) error {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InvalidInput reports a malformed request field
func InvalidInput(format string, args ...any) error {
	return newValidation(ErrInvalidInput, format, args...)
}

// InvalidPassword reports a room password that does not match the allowed shape
func InvalidPassword() error {
	return newValidation(ErrInvalidPassword, "The length must be 4 and can only contain digits.")
}

// InvalidPlayerRange reports min/max players outside the game's bounds
func InvalidPlayerRange(minPlayers, maxPlayers, gameMin, gameMax int) error {
	return newValidation(ErrInvalidPlayerRange,
		"Players must be between %d and %d, got min %d and max %d.", gameMin, gameMax, minPlayers, maxPlayers)
}

// HostAlreadyInRoom reports a host trying to open a second room
func HostAlreadyInRoom() error {
	return newValidation(ErrHostAlreadyInRoom, "A user can only create one room at a time.")
}

// PlayerAlreadyInRoom reports a player trying to join while in another room
func PlayerAlreadyInRoom(id PlayerID) error {
	return newValidation(ErrPlayerAlreadyInRoom, "Player(%s) has joined another room.", id)
}

// WrongPassword reports a failed password check on a locked room
func WrongPassword() error {
	return newValidation(ErrWrongPassword, "wrong password")
}

// RoomFull reports a join against a room at capacity
func RoomFull(id RoomID) error {
	return newValidation(ErrRoomFull, "The room (%s) is full. Please select another room or try again later.", id)
}

// PlayerNotJoined reports an operation on a player absent from the room
func PlayerNotJoined() error {
	return newValidation(ErrPlayerNotJoined, "Player not joined")
}

// NotRoomHost reports a host-only operation by someone else
func NotRoomHost(id PlayerID) error {
	return newValidation(ErrNotRoomHost, "Player(%s) is not the host", id)
}

// DuplicateEmail reports a second user with the same email
func DuplicateEmail(email string) error {
	return newValidation(ErrDuplicateEmail, "Email (%s) is already registered.", email)
}

// DuplicateIdentity reports an identity already bound to a user
func DuplicateIdentity(identity string) error {
	return newValidation(ErrDuplicateIdentity, "Identity (%s) is already bound to a user.", identity)
}

// DuplicateGame reports a game registration with a taken unique name
func DuplicateGame(uniqueName string) error {
	return newValidation(ErrDuplicateGame, "Game (%s) is already registered.", uniqueName)
}
