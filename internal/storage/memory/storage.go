package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are cloned on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	emailIndex    map[string]model.UserID
	identityIndex map[string]model.UserID

	rooms       map[model.RoomID]*model.Room
	playerIndex map[model.PlayerID]model.RoomID

	games      map[model.GameID]*model.GameRegistration
	gameByName map[string]model.GameID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		emailIndex:    make(map[string]model.UserID),
		identityIndex: make(map[string]model.UserID),
		rooms:         make(map[model.RoomID]*model.Room),
		playerIndex:   make(map[model.PlayerID]model.RoomID),
		games:         make(map[model.GameID]*model.GameRegistration),
		gameByName:    make(map[string]model.GameID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Users() storage.UserRepository { return (*userRepo)(s) }

func (s *Storage) Rooms() storage.RoomRepository { return (*roomRepo)(s) }

func (s *Storage) Games() storage.GameRegistrationRepository { return (*gameRepo)(s) }

// Close is a no-op for in-memory storage
func (s *Storage) Close() error { return nil }

// User operations

type userRepo Storage

func (r *userRepo) FindByID(ctx context.Context, id model.UserID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, model.UserNotFound("id", string(id))
	}
	return user.Clone(), nil
}

func (r *userRepo) FindByIdentity(ctx context.Context, identity string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.identityIndex[identity]
	if !ok {
		return nil, model.UserNotFound("identity", identity)
	}
	return r.users[id].Clone(), nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.emailIndex[email]
	if !ok {
		return nil, model.UserNotFound("email", email)
	}
	return r.users[id].Clone(), nil
}

func (r *userRepo) ExistsByIdentity(ctx context.Context, identity string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.identityIndex[identity]
	return ok, nil
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.emailIndex[email]
	return ok, nil
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.emailIndex[user.Email]; ok {
		return model.DuplicateEmail(user.Email)
	}
	for _, identity := range user.Identities {
		if _, ok := r.identityIndex[identity]; ok {
			return model.DuplicateIdentity(identity)
		}
	}
	r.users[user.ID] = user.Clone()
	r.emailIndex[user.Email] = user.ID
	for _, identity := range user.Identities {
		r.identityIndex[identity] = user.ID
	}
	return nil
}

func (r *userRepo) AddIdentity(ctx context.Context, id model.UserID, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return model.UserNotFound("id", string(id))
	}
	if owner, ok := r.identityIndex[identity]; ok {
		if owner == id {
			return nil
		}
		return model.DuplicateIdentity(identity)
	}
	user.Identities = append(user.Identities, identity)
	r.identityIndex[identity] = id
	return nil
}

func (r *userRepo) FindAllByID(ctx context.Context, ids []model.UserID) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			users = append(users, user.Clone())
		}
	}
	return users, nil
}

func (r *userRepo) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.users)
	clear(r.emailIndex)
	clear(r.identityIndex)
	return nil
}

// Room operations

type roomRepo Storage

func (r *roomRepo) FindByID(ctx context.Context, id model.RoomID) (*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, model.RoomNotFound(id)
	}
	return room.Clone(), nil
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range room.Players {
		if _, ok := r.playerIndex[p.ID]; ok {
			return model.PlayerAlreadyInRoom(p.ID)
		}
	}
	room.Version = 1
	r.rooms[room.ID] = room.Clone()
	for _, p := range room.Players {
		r.playerIndex[p.ID] = room.ID
	}
	return nil
}

func (r *roomRepo) Update(ctx context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rooms[room.ID]
	if !ok {
		return model.RoomNotFound(room.ID)
	}
	if stored.Version != room.Version {
		return model.ErrRoomConflict
	}
	for _, p := range room.Players {
		if other, ok := r.playerIndex[p.ID]; ok && other != room.ID {
			return model.PlayerAlreadyInRoom(p.ID)
		}
	}

	for _, p := range stored.Players {
		delete(r.playerIndex, p.ID)
	}
	room.Version++
	r.rooms[room.ID] = room.Clone()
	for _, p := range room.Players {
		r.playerIndex[p.ID] = room.ID
	}
	return nil
}

func (r *roomRepo) DeleteByID(ctx context.Context, id model.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil
	}
	for _, p := range room.Players {
		delete(r.playerIndex, p.ID)
	}
	delete(r.rooms, id)
	return nil
}

func (r *roomRepo) FindByStatus(ctx context.Context, status model.RoomStatus, page model.PageRequest) (model.Pagination[*model.Room], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []*model.Room
	for _, room := range r.rooms {
		if room.Status == status {
			matches = append(matches, room.Clone())
		}
	}
	slices.SortFunc(matches, func(a, b *model.Room) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return model.Paginate(matches, page), nil
}

func (r *roomRepo) HasPlayerJoinedRoom(ctx context.Context, id model.UserID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.playerIndex[model.PlayerID(id)]
	return ok, nil
}

func (r *roomRepo) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.rooms)
	clear(r.playerIndex)
	return nil
}

// Game registration operations

type gameRepo Storage

func (r *gameRepo) FindByID(ctx context.Context, id model.GameID) (*model.GameRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	game, ok := r.games[id]
	if !ok {
		return nil, model.GameNotFound("id", string(id))
	}
	g := *game
	return &g, nil
}

func (r *gameRepo) FindByUniqueName(ctx context.Context, uniqueName string) (*model.GameRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.gameByName[uniqueName]
	if !ok {
		return nil, model.GameNotFound("uniqueName", uniqueName)
	}
	g := *r.games[id]
	return &g, nil
}

func (r *gameRepo) RegisterGame(ctx context.Context, game *model.GameRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.gameByName[game.UniqueName]; ok {
		return model.DuplicateGame(game.UniqueName)
	}
	g := *game
	r.games[game.ID] = &g
	r.gameByName[game.UniqueName] = game.ID
	return nil
}

func (r *gameRepo) UpdateGame(ctx context.Context, game *model.GameRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.games[game.ID]
	if !ok {
		return model.GameNotFound("id", string(game.ID))
	}
	if owner, ok := r.gameByName[game.UniqueName]; ok && owner != game.ID {
		return model.DuplicateGame(game.UniqueName)
	}
	delete(r.gameByName, stored.UniqueName)
	g := *game
	r.games[game.ID] = &g
	r.gameByName[game.UniqueName] = game.ID
	return nil
}
