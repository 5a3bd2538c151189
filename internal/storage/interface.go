package storage

import (
	"context"

	"github.com/mcoot/gamelobby/internal/model"
)

// Storage groups the repositories a backend provides
type Storage interface {
	Users() UserRepository
	Rooms() RoomRepository
	Games() GameRegistrationRepository

	// Close releases any connections held by the backend
	Close() error
}

// UserRepository persists users and their identity bindings
type UserRepository interface {
	FindByID(ctx context.Context, id model.UserID) (*model.User, error)
	FindByIdentity(ctx context.Context, identity string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByIdentity(ctx context.Context, identity string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create fails with ErrDuplicateEmail or ErrDuplicateIdentity when
	// either is already bound to another user
	Create(ctx context.Context, user *model.User) error

	// AddIdentity binds one more identity to an existing user
	AddIdentity(ctx context.Context, id model.UserID, identity string) error

	// FindAllByID returns the users that exist, in the order requested
	FindAllByID(ctx context.Context, ids []model.UserID) ([]*model.User, error)

	DeleteAll(ctx context.Context) error
}

// RoomRepository persists rooms.
//
// Create sets Version to 1. Update replaces the stored room only if its
// Version still matches, then increments it; otherwise it fails with
// ErrRoomConflict.
type RoomRepository interface {
	FindByID(ctx context.Context, id model.RoomID) (*model.Room, error)
	Create(ctx context.Context, room *model.Room) error
	Update(ctx context.Context, room *model.Room) error
	DeleteByID(ctx context.Context, id model.RoomID) error

	// FindByStatus lists rooms oldest first
	FindByStatus(ctx context.Context, status model.RoomStatus, page model.PageRequest) (model.Pagination[*model.Room], error)

	// HasPlayerJoinedRoom reports whether the user is a player of any stored room
	HasPlayerJoinedRoom(ctx context.Context, id model.UserID) (bool, error)

	DeleteAll(ctx context.Context) error
}

// GameRegistrationRepository persists game registrations
type GameRegistrationRepository interface {
	FindByID(ctx context.Context, id model.GameID) (*model.GameRegistration, error)
	FindByUniqueName(ctx context.Context, uniqueName string) (*model.GameRegistration, error)

	// RegisterGame fails with ErrDuplicateGame when the unique name is taken
	RegisterGame(ctx context.Context, game *model.GameRegistration) error

	// UpdateGame replaces an existing registration; renaming onto a taken
	// unique name fails with ErrDuplicateGame
	UpdateGame(ctx context.Context, game *model.GameRegistration) error
}
