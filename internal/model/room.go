package model

import (
	"slices"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RoomID uniquely identifies a room
type RoomID string

// RoomStatus represents the current phase of a room
type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "WAITING" // Open for joins
	RoomStatusPlaying RoomStatus = "PLAYING" // Reserved for game start
	RoomStatusClosed  RoomStatus = "CLOSED"  // Reserved; closed rooms are deleted
)

// ParseRoomStatus validates a status string
func ParseRoomStatus(s string) (RoomStatus, bool) {
	switch status := RoomStatus(s); status {
	case RoomStatusWaiting, RoomStatusPlaying, RoomStatusClosed:
		return status, true
	default:
		return "", false
	}
}

// PasswordCost is the bcrypt cost used for room passwords
var PasswordCost = bcrypt.DefaultCost

// Room is a joinable session bound to one game, with bounded membership.
//
// Mutating methods enforce the membership invariants themselves: no
// duplicate players, never more than MaxPlayers, host always present.
type Room struct {
	ID           RoomID
	Game         GameRef
	Host         Player
	Players      []Player // Join order
	PasswordHash string   // bcrypt hash, empty when unlocked
	Status       RoomStatus
	Name         string
	MinPlayers   int
	MaxPlayers   int
	Version      int64 // Incremented by storage on every write
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsFull returns true if no more players can join
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// IsEmpty returns true if no players remain
func (r *Room) IsEmpty() bool {
	return len(r.Players) == 0
}

// IsLocked returns true if joining requires a password
func (r *Room) IsLocked() bool {
	return r.PasswordHash != ""
}

// SetPassword locks the room with the given password, or unlocks it when empty
func (r *Room) SetPassword(password string) error {
	if password == "" {
		r.PasswordHash = ""
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return err
	}
	r.PasswordHash = string(hash)
	return nil
}

// IsPasswordCorrect returns true if the room is unlocked or the candidate matches
func (r *Room) IsPasswordCorrect(candidate string) bool {
	if !r.IsLocked() {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(candidate)) == nil
}

// FindPlayer returns the player with the given id, or nil if not joined
func (r *Room) FindPlayer(id PlayerID) *Player {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

// HasPlayer returns true if the player is in the room
func (r *Room) HasPlayer(id PlayerID) bool {
	return r.FindPlayer(id) != nil
}

// AddPlayer appends a player. Readiness always starts false.
func (r *Room) AddPlayer(player Player) error {
	if r.HasPlayer(player.ID) {
		return PlayerAlreadyInRoom(player.ID)
	}
	if r.IsFull() {
		return RoomFull(r.ID)
	}
	player.Readiness = false
	r.Players = append(r.Players, player)
	return nil
}

// LeaveRoom removes the player with the given id
func (r *Room) LeaveRoom(id PlayerID) error {
	idx := slices.IndexFunc(r.Players, func(p Player) bool { return p.ID == id })
	if idx < 0 {
		return PlayerNotJoined()
	}
	r.Players = slices.Delete(r.Players, idx, idx+1)
	return nil
}

// ValidateRoomHost fails unless the given player is the host
func (r *Room) ValidateRoomHost(id PlayerID) error {
	if r.Host.ID != id {
		return NotRoomHost(id)
	}
	return nil
}

// IsHost returns true if the given player is the host
func (r *Room) IsHost(id PlayerID) bool {
	return r.Host.ID == id
}

// SetReadiness sets a joined player's readiness flag
func (r *Room) SetReadiness(id PlayerID, ready bool) error {
	player := r.FindPlayer(id)
	if player == nil {
		return PlayerNotJoined()
	}
	player.Readiness = ready
	return nil
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r
	c.Players = slices.Clone(r.Players)
	return &c
}

// PlayerID identifies a room player; it equals the originating user's id
type PlayerID string

// Player is a room-scoped membership record for a user
type Player struct {
	ID        PlayerID
	Nickname  string // Snapshot at join time
	Readiness bool
}
