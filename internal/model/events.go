package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventRoomCreated            EventType = "room_created"
	EventPlayerJoined           EventType = "player_joined"
	EventPlayerLeft             EventType = "player_left"
	EventPlayerReadinessChanged EventType = "player_readiness_changed"
	EventRoomClosed             EventType = "room_closed"
)

// Event is the base structure for all events
type Event struct {
	Type      EventType
	Timestamp time.Time
	RoomID    RoomID
	PlayerID  PlayerID // The player who triggered or is affected
	Payload   any      // Type-specific data
}

// RoomCreatedPayload is a full snapshot of a newly created room
type RoomCreatedPayload struct {
	RoomID         RoomID
	Game           GameRef
	Host           Player
	CurrentPlayers int
	MaxPlayers     int
	MinPlayers     int
	Name           string
	IsLocked       bool
}

// PlayerJoinedPayload contains data for player joined events
type PlayerJoinedPayload struct {
	Player         Player
	CurrentPlayers int
}

// PlayerLeftPayload contains data for player left events
type PlayerLeftPayload struct {
	PlayerID       PlayerID
	Nickname       string
	CurrentPlayers int
}

// PlayerReadinessChangedPayload contains data for readiness events
type PlayerReadinessChangedPayload struct {
	PlayerID  PlayerID
	Readiness bool
}

// RoomClosedPayload contains data for room closed events
type RoomClosedPayload struct {
	ClosedBy PlayerID
	Reason   string
}

// Room closed reasons
const (
	CloseReasonHostClosed = "host_closed"
	CloseReasonHostLeft   = "host_left"
	CloseReasonEmpty      = "empty"
	CloseReasonExpired    = "expired"
)

// NewRoomCreated builds the event for a freshly persisted room
func NewRoomCreated(room *Room, at time.Time) Event {
	return Event{
		Type:      EventRoomCreated,
		Timestamp: at,
		RoomID:    room.ID,
		PlayerID:  room.Host.ID,
		Payload: RoomCreatedPayload{
			RoomID:         room.ID,
			Game:           room.Game,
			Host:           room.Host,
			CurrentPlayers: len(room.Players),
			MaxPlayers:     room.MaxPlayers,
			MinPlayers:     room.MinPlayers,
			Name:           room.Name,
			IsLocked:       room.IsLocked(),
		},
	}
}
