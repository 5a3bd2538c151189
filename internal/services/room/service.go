package room

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mcoot/gamelobby/internal/dependencies/clock"
	"github.com/mcoot/gamelobby/internal/dependencies/ids"
	"github.com/mcoot/gamelobby/internal/eventbus"
	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/storage"
)

var passwordPattern = regexp.MustCompile(`^\d{4}$`)

// CreateRoomRequest holds the inputs of CreateRoom
type CreateRoomRequest struct {
	GameID       model.GameID
	HostIdentity string
	Name         string
	Password     string // Empty for an unlocked room
	MinPlayers   int
	MaxPlayers   int
}

func (r *CreateRoomRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return model.InvalidInput("name is required")
	}
	if r.Password != "" && !passwordPattern.MatchString(r.Password) {
		return model.InvalidPassword()
	}
	return nil
}

// Service runs the room lifecycle: create, join, leave, close and readiness.
//
// Mutations are serialised per user and per room. The user lock is always
// taken before the room lock.
type Service struct {
	rooms  storage.RoomRepository
	users  storage.UserRepository
	games  storage.GameRegistrationRepository
	bus    eventbus.Bus
	clock  clock.Clock
	ids    ids.Generator
	logger *slog.Logger

	userLocks *keyedMutex
	roomLocks *keyedMutex
}

// New creates a new room Service
func New(
	store storage.Storage,
	bus eventbus.Bus,
	clock clock.Clock,
	ids ids.Generator,
	logger *slog.Logger,
) *Service {
	return &Service{
		rooms:     store.Rooms(),
		users:     store.Users(),
		games:     store.Games(),
		bus:       bus,
		clock:     clock,
		ids:       ids,
		logger:    logger,
		userLocks: newKeyedMutex(),
		roomLocks: newKeyedMutex(),
	}
}

// CreateRoom opens a WAITING room with the host as its only player
func (s *Service) CreateRoom(ctx context.Context, req CreateRoomRequest) (*model.Room, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	game, err := s.games.FindByID(ctx, req.GameID)
	if err != nil {
		return nil, err
	}

	host, err := s.users.FindByIdentity(ctx, req.HostIdentity)
	if err != nil {
		return nil, err
	}

	unlock := s.userLocks.Lock(string(host.ID))
	defer unlock()

	joined, err := s.rooms.HasPlayerJoinedRoom(ctx, host.ID)
	if err != nil {
		return nil, err
	}
	if joined {
		return nil, model.HostAlreadyInRoom()
	}

	if !game.AllowsPlayers(req.MinPlayers, req.MaxPlayers) {
		return nil, model.InvalidPlayerRange(req.MinPlayers, req.MaxPlayers, game.MinPlayers, game.MaxPlayers)
	}

	now := s.clock.Now()
	player := host.ToPlayer()
	room := &model.Room{
		ID:         model.RoomID(s.ids.NewID()),
		Game:       game.Ref(),
		Host:       player,
		Players:    []model.Player{player},
		Status:     model.RoomStatusWaiting,
		Name:       req.Name,
		MinPlayers: req.MinPlayers,
		MaxPlayers: req.MaxPlayers,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := room.SetPassword(req.Password); err != nil {
		return nil, err
	}

	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	s.logger.Info("room created",
		slog.String("room_id", string(room.ID)),
		slog.String("game_id", string(game.ID)),
		slog.String("host_id", string(host.ID)),
		slog.Bool("locked", room.IsLocked()))
	s.bus.Publish(ctx, model.NewRoomCreated(room, now))

	return room, nil
}

// lockMember resolves the room and user, takes the user then room locks and
// re-reads the room under them
func (s *Service) lockMember(ctx context.Context, roomID model.RoomID, identity string, withUserLock bool) (*model.Room, *model.User, func(), error) {
	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		return nil, nil, nil, err
	}

	user, err := s.users.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, nil, nil, err
	}

	var unlockUser func()
	if withUserLock {
		unlockUser = s.userLocks.Lock(string(user.ID))
	}
	unlockRoom := s.roomLocks.Lock(string(roomID))
	unlock := func() {
		unlockRoom()
		if unlockUser != nil {
			unlockUser()
		}
	}

	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		unlock()
		return nil, nil, nil, err
	}
	return room, user, unlock, nil
}

// JoinRoom adds the user to the room
func (s *Service) JoinRoom(ctx context.Context, roomID model.RoomID, identity, password string) (*model.Room, error) {
	room, user, unlock, err := s.lockMember(ctx, roomID, identity, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	player := user.ToPlayer()

	joined, err := s.rooms.HasPlayerJoinedRoom(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if joined {
		return nil, model.PlayerAlreadyInRoom(player.ID)
	}

	if !room.IsPasswordCorrect(password) {
		return nil, model.WrongPassword()
	}

	if room.IsFull() {
		return nil, model.RoomFull(room.ID)
	}

	if err := room.AddPlayer(player); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	room.UpdatedAt = now
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, err
	}

	s.logger.Info("player joined room",
		slog.String("room_id", string(room.ID)),
		slog.String("player_id", string(player.ID)),
		slog.Int("players", len(room.Players)))
	s.bus.Publish(ctx, model.Event{
		Type:      model.EventPlayerJoined,
		Timestamp: now,
		RoomID:    room.ID,
		PlayerID:  player.ID,
		Payload: model.PlayerJoinedPayload{
			Player:         player,
			CurrentPlayers: len(room.Players),
		},
	})

	return room, nil
}

// LeaveRoom removes the user from the room. The room is deleted when it
// becomes empty or when the host leaves.
func (s *Service) LeaveRoom(ctx context.Context, roomID model.RoomID, identity string) error {
	room, user, unlock, err := s.lockMember(ctx, roomID, identity, true)
	if err != nil {
		return err
	}
	defer unlock()

	playerID := model.PlayerID(user.ID)
	leaving := room.FindPlayer(playerID)
	if leaving == nil {
		return model.PlayerNotJoined()
	}
	nickname := leaving.Nickname

	if err := room.LeaveRoom(playerID); err != nil {
		return err
	}

	now := s.clock.Now()
	if room.IsEmpty() || room.IsHost(playerID) {
		reason := model.CloseReasonHostLeft
		if room.IsEmpty() {
			reason = model.CloseReasonEmpty
		}
		return s.closeRoom(ctx, room, playerID, reason)
	}

	room.UpdatedAt = now
	if err := s.rooms.Update(ctx, room); err != nil {
		return err
	}

	s.logger.Info("player left room",
		slog.String("room_id", string(room.ID)),
		slog.String("player_id", string(playerID)),
		slog.Int("players", len(room.Players)))
	s.bus.Publish(ctx, model.Event{
		Type:      model.EventPlayerLeft,
		Timestamp: now,
		RoomID:    room.ID,
		PlayerID:  playerID,
		Payload: model.PlayerLeftPayload{
			PlayerID:       playerID,
			Nickname:       nickname,
			CurrentPlayers: len(room.Players),
		},
	})
	return nil
}

// CloseRoom deletes the room. Only the host may close it.
func (s *Service) CloseRoom(ctx context.Context, roomID model.RoomID, identity string) error {
	room, user, unlock, err := s.lockMember(ctx, roomID, identity, false)
	if err != nil {
		return err
	}
	defer unlock()

	playerID := model.PlayerID(user.ID)
	if err := room.ValidateRoomHost(playerID); err != nil {
		return err
	}
	return s.closeRoom(ctx, room, playerID, model.CloseReasonHostClosed)
}

func (s *Service) closeRoom(ctx context.Context, room *model.Room, by model.PlayerID, reason string) error {
	if err := s.rooms.DeleteByID(ctx, room.ID); err != nil {
		return err
	}

	s.logger.Info("room closed",
		slog.String("room_id", string(room.ID)),
		slog.String("closed_by", string(by)),
		slog.String("reason", reason))
	s.bus.Publish(ctx, model.Event{
		Type:      model.EventRoomClosed,
		Timestamp: s.clock.Now(),
		RoomID:    room.ID,
		PlayerID:  by,
		Payload: model.RoomClosedPayload{
			ClosedBy: by,
			Reason:   reason,
		},
	})
	return nil
}

// GetReady marks the user's player as ready
func (s *Service) GetReady(ctx context.Context, roomID model.RoomID, identity string) (*model.Room, error) {
	return s.setReadiness(ctx, roomID, identity, true)
}

// CancelReady clears the user's readiness
func (s *Service) CancelReady(ctx context.Context, roomID model.RoomID, identity string) (*model.Room, error) {
	return s.setReadiness(ctx, roomID, identity, false)
}

func (s *Service) setReadiness(ctx context.Context, roomID model.RoomID, identity string, ready bool) (*model.Room, error) {
	room, user, unlock, err := s.lockMember(ctx, roomID, identity, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	playerID := model.PlayerID(user.ID)
	if err := room.SetReadiness(playerID, ready); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	room.UpdatedAt = now
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, err
	}

	s.logger.Info("player readiness changed",
		slog.String("room_id", string(room.ID)),
		slog.String("player_id", string(playerID)),
		slog.Bool("ready", ready))
	s.bus.Publish(ctx, model.Event{
		Type:      model.EventPlayerReadinessChanged,
		Timestamp: now,
		RoomID:    room.ID,
		PlayerID:  playerID,
		Payload: model.PlayerReadinessChangedPayload{
			PlayerID:  playerID,
			Readiness: ready,
		},
	})
	return room, nil
}

// GetRoom returns the room with the given id
func (s *Service) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return s.rooms.FindByID(ctx, id)
}

// ListRooms returns one page of rooms with the given status, oldest first
func (s *Service) ListRooms(ctx context.Context, status model.RoomStatus, page model.PageRequest) (model.Pagination[*model.Room], error) {
	return s.rooms.FindByStatus(ctx, status, page)
}
