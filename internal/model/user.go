package model

import (
	"slices"
	"time"
)

// UserID uniquely identifies a user across the system
type UserID string

// User is an identity record. Identities are external identity-provider
// references (e.g. "google-oauth2|1234") bound to this user.
type User struct {
	ID         UserID
	Email      string
	Nickname   string
	Identities []string
	CreatedAt  time.Time
}

// HasIdentity returns true if the identity is bound to this user
func (u *User) HasIdentity(identity string) bool {
	return slices.Contains(u.Identities, identity)
}

// ToPlayer snapshots the user as a room player
func (u *User) ToPlayer() Player {
	return Player{
		ID:       PlayerID(u.ID),
		Nickname: u.Nickname,
	}
}

// Clone returns a deep copy of the user
func (u *User) Clone() *User {
	c := *u
	c.Identities = slices.Clone(u.Identities)
	return &c
}

// Principal is an already-authenticated caller, as asserted by a verified token
type Principal struct {
	Identity string
	Email    string
	Nickname string
}
