package response

import (
	"time"

	"github.com/mcoot/gamelobby/internal/model"
)

// User represents a user in API responses
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Nickname   string    `json:"nickname"`
	Identities []string  `json:"identities"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UserFromModel converts a model.User
func UserFromModel(u *model.User) User {
	identities := u.Identities
	if identities == nil {
		identities = []string{}
	}
	return User{
		ID:         string(u.ID),
		Email:      u.Email,
		Nickname:   u.Nickname,
		Identities: identities,
		CreatedAt:  u.CreatedAt,
	}
}

// Game represents a game registration
type Game struct {
	ID               string    `json:"id"`
	UniqueName       string    `json:"uniqueName"`
	DisplayName      string    `json:"displayName"`
	ShortDescription string    `json:"shortDescription"`
	Rule             string    `json:"rule"`
	ImageURL         string    `json:"imageUrl"`
	MinPlayers       int       `json:"minPlayers"`
	MaxPlayers       int       `json:"maxPlayers"`
	FrontEndURL      string    `json:"frontEndUrl"`
	BackEndURL       string    `json:"backEndUrl"`
	CreatedAt        time.Time `json:"createdAt"`
}

// GameFromModel converts a model.GameRegistration
func GameFromModel(g *model.GameRegistration) Game {
	return Game{
		ID:               string(g.ID),
		UniqueName:       g.UniqueName,
		DisplayName:      g.DisplayName,
		ShortDescription: g.ShortDescription,
		Rule:             g.Rule,
		ImageURL:         g.ImageURL,
		MinPlayers:       g.MinPlayers,
		MaxPlayers:       g.MaxPlayers,
		FrontEndURL:      g.FrontEndURL,
		BackEndURL:       g.BackEndURL,
		CreatedAt:        g.CreatedAt,
	}
}

// GameRef is the game summary embedded in rooms
type GameRef struct {
	ID          string `json:"id"`
	UniqueName  string `json:"uniqueName"`
	DisplayName string `json:"displayName"`
}

func gameRefFromModel(g model.GameRef) GameRef {
	return GameRef{
		ID:          string(g.ID),
		UniqueName:  g.UniqueName,
		DisplayName: g.DisplayName,
	}
}

// Player represents a room member
type Player struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	Readiness bool   `json:"readiness"`
}

// PlayerFromModel converts a model.Player
func PlayerFromModel(p model.Player) Player {
	return Player{
		ID:        string(p.ID),
		Nickname:  p.Nickname,
		Readiness: p.Readiness,
	}
}

// Room represents a room in API responses. The password hash never leaves
// the server; only the lock flag does.
type Room struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Game           GameRef   `json:"game"`
	Host           Player    `json:"host"`
	Players        []Player  `json:"players"`
	CurrentPlayers int       `json:"currentPlayers"`
	MinPlayers     int       `json:"minPlayers"`
	MaxPlayers     int       `json:"maxPlayers"`
	IsLocked       bool      `json:"isLocked"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RoomFromModel converts a model.Room
func RoomFromModel(r *model.Room) Room {
	players := make([]Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = PlayerFromModel(p)
	}

	host := PlayerFromModel(r.Host)
	if p := r.FindPlayer(r.Host.ID); p != nil {
		host = PlayerFromModel(*p)
	}

	return Room{
		ID:             string(r.ID),
		Name:           r.Name,
		Game:           gameRefFromModel(r.Game),
		Host:           host,
		Players:        players,
		CurrentPlayers: len(r.Players),
		MinPlayers:     r.MinPlayers,
		MaxPlayers:     r.MaxPlayers,
		IsLocked:       r.IsLocked(),
		Status:         string(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// Page is one page of a listing
type Page[T any] struct {
	Page   int `json:"page"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
	Data   []T `json:"data"`
}

// RoomPageFromModel converts a page of rooms
func RoomPageFromModel(p model.Pagination[*model.Room]) Page[Room] {
	rooms := model.MapPagination(p, RoomFromModel)
	return Page[Room]{
		Page:   rooms.Page,
		Offset: rooms.Offset,
		Total:  rooms.Total,
		Data:   rooms.Data,
	}
}

// Event is a room event as streamed to clients
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RoomID    string    `json:"roomId"`
	PlayerID  string    `json:"playerId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// RoomCreated is the payload of a room_created event
type RoomCreated struct {
	RoomID         string  `json:"roomId"`
	Game           GameRef `json:"game"`
	Host           Player  `json:"host"`
	CurrentPlayers int     `json:"currentPlayers"`
	MaxPlayers     int     `json:"maxPlayers"`
	MinPlayers     int     `json:"minPlayers"`
	Name           string  `json:"name"`
	IsLocked       bool    `json:"isLocked"`
}

// PlayerJoined is the payload of a player_joined event
type PlayerJoined struct {
	Player         Player `json:"player"`
	CurrentPlayers int    `json:"currentPlayers"`
}

// PlayerLeft is the payload of a player_left event
type PlayerLeft struct {
	PlayerID       string `json:"playerId"`
	Nickname       string `json:"nickname"`
	CurrentPlayers int    `json:"currentPlayers"`
}

// PlayerReadinessChanged is the payload of a player_readiness_changed event
type PlayerReadinessChanged struct {
	PlayerID  string `json:"playerId"`
	Readiness bool   `json:"readiness"`
}

// RoomClosed is the payload of a room_closed event
type RoomClosed struct {
	ClosedBy string `json:"closedBy"`
	Reason   string `json:"reason"`
}

// EventFromModel converts a model.Event and its payload
func EventFromModel(e model.Event) Event {
	return Event{
		Type:      string(e.Type),
		Timestamp: e.Timestamp,
		RoomID:    string(e.RoomID),
		PlayerID:  string(e.PlayerID),
		Payload:   payloadFromModel(e.Payload),
	}
}

func payloadFromModel(payload any) any {
	switch p := payload.(type) {
	case model.RoomCreatedPayload:
		return RoomCreated{
			RoomID:         string(p.RoomID),
			Game:           gameRefFromModel(p.Game),
			Host:           PlayerFromModel(p.Host),
			CurrentPlayers: p.CurrentPlayers,
			MaxPlayers:     p.MaxPlayers,
			MinPlayers:     p.MinPlayers,
			Name:           p.Name,
			IsLocked:       p.IsLocked,
		}
	case model.PlayerJoinedPayload:
		return PlayerJoined{
			Player:         PlayerFromModel(p.Player),
			CurrentPlayers: p.CurrentPlayers,
		}
	case model.PlayerLeftPayload:
		return PlayerLeft{
			PlayerID:       string(p.PlayerID),
			Nickname:       p.Nickname,
			CurrentPlayers: p.CurrentPlayers,
		}
	case model.PlayerReadinessChangedPayload:
		return PlayerReadinessChanged{
			PlayerID:  string(p.PlayerID),
			Readiness: p.Readiness,
		}
	case model.RoomClosedPayload:
		return RoomClosed{
			ClosedBy: string(p.ClosedBy),
			Reason:   p.Reason,
		}
	default:
		return payload
	}
}

// Health is the body of GET /health
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}
