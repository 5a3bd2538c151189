package model

import "time"

// GameID uniquely identifies a game registration
type GameID string

// GameRegistration describes a playable game. Rooms are bound to one.
type GameRegistration struct {
	ID               GameID
	UniqueName       string
	DisplayName      string
	ShortDescription string
	Rule             string
	ImageURL         string
	MinPlayers       int
	MaxPlayers       int
	FrontEndURL      string
	BackEndURL       string
	CreatedAt        time.Time
}

// AllowsPlayers returns true if a room of [minPlayers, maxPlayers] fits this game
func (g *GameRegistration) AllowsPlayers(minPlayers, maxPlayers int) bool {
	return minPlayers >= g.MinPlayers &&
		maxPlayers <= g.MaxPlayers &&
		minPlayers <= maxPlayers
}

// Ref returns the lightweight reference stored on rooms
func (g *GameRegistration) Ref() GameRef {
	return GameRef{
		ID:          g.ID,
		UniqueName:  g.UniqueName,
		DisplayName: g.DisplayName,
	}
}

// GameRef is the part of a game registration a room keeps
type GameRef struct {
	ID          GameID
	UniqueName  string
	DisplayName string
}
