// Package storagetest holds a behavioural suite every storage backend runs.
package storagetest

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/storage"
)

// Suite exercises the repository contracts against a fresh backend per test
type Suite struct {
	suite.Suite

	// NewStorage returns an empty backend; it is called before every test
	NewStorage func() storage.Storage

	Storage storage.Storage
	Ctx     context.Context
	now     time.Time
}

func (s *Suite) SetupTest() {
	s.Storage = s.NewStorage()
	s.Ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) TearDownTest() {
	s.Require().NoError(s.Storage.Close())
}

// Fixtures

func (s *Suite) newUser(id, email string, identities ...string) *model.User {
	return &model.User{
		ID:         model.UserID(id),
		Email:      email,
		Nickname:   "nick-" + id,
		Identities: identities,
		CreatedAt:  s.now,
	}
}

func (s *Suite) newRoom(id string, createdAt time.Time, players ...string) *model.Room {
	room := &model.Room{
		ID:         model.RoomID(id),
		Game:       model.GameRef{ID: "game-1", UniqueName: "chess", DisplayName: "Chess"},
		Status:     model.RoomStatusWaiting,
		Name:       "room " + id,
		MinPlayers: 1,
		MaxPlayers: 4,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	for i, p := range players {
		player := model.Player{ID: model.PlayerID(p), Nickname: "nick-" + p}
		if i == 0 {
			room.Host = player
		}
		room.Players = append(room.Players, player)
	}
	return room
}

func (s *Suite) newGame(id, uniqueName string) *model.GameRegistration {
	return &model.GameRegistration{
		ID:               model.GameID(id),
		UniqueName:       uniqueName,
		DisplayName:      "Display " + uniqueName,
		ShortDescription: "short",
		Rule:             "rules",
		ImageURL:         "https://example.com/img.png",
		MinPlayers:       2,
		MaxPlayers:       4,
		FrontEndURL:      "https://example.com/fe",
		BackEndURL:       "https://example.com/be",
		CreatedAt:        s.now,
	}
}

// User tests

func (s *Suite) TestCreateAndFindUser() {
	user := s.newUser("u1", "a@example.com", "google|1")
	s.Require().NoError(s.Storage.Users().Create(s.Ctx, user))

	byID, err := s.Storage.Users().FindByID(s.Ctx, "u1")
	s.Require().NoError(err)
	s.Equal("a@example.com", byID.Email)
	s.Equal("nick-u1", byID.Nickname)
	s.Equal([]string{"google|1"}, byID.Identities)
	s.True(byID.CreatedAt.Equal(s.now))

	byIdentity, err := s.Storage.Users().FindByIdentity(s.Ctx, "google|1")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), byIdentity.ID)

	byEmail, err := s.Storage.Users().FindByEmail(s.Ctx, "a@example.com")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), byEmail.ID)
}

func (s *Suite) TestFindUserNotFound() {
	_, err := s.Storage.Users().FindByID(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.Storage.Users().FindByIdentity(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.Storage.Users().FindByEmail(s.Ctx, "missing@example.com")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestUserExists() {
	s.Require().NoError(s.Storage.Users().Create(s.Ctx, s.newUser("u1", "a@example.com", "google|1")))

	exists, err := s.Storage.Users().ExistsByIdentity(s.Ctx, "google|1")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.Storage.Users().ExistsByIdentity(s.Ctx, "google|2")
	s.Require().NoError(err)
	s.False(exists)

	exists, err = s.Storage.Users().ExistsByEmail(s.Ctx, "a@example.com")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.Storage.Users().ExistsByEmail(s.Ctx, "b@example.com")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestCreateUserDuplicates() {
	s.Require().NoError(s.Storage.Users().Create(s.Ctx, s.newUser("u1", "a@example.com", "google|1")))

	err := s.Storage.Users().Create(s.Ctx, s.newUser("u2", "a@example.com", "google|2"))
	s.ErrorIs(err, model.ErrDuplicateEmail)

	err = s.Storage.Users().Create(s.Ctx, s.newUser("u3", "c@example.com", "google|1"))
	s.ErrorIs(err, model.ErrDuplicateIdentity)

	// Failed creates leave nothing behind
	exists, err := s.Storage.Users().ExistsByEmail(s.Ctx, "c@example.com")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestAddIdentity() {
	s.Require().NoError(s.Storage.Users().Create(s.Ctx, s.newUser("u1", "a@example.com", "google|1")))
	s.Require().NoError(s.Storage.Users().Create(s.Ctx, s.newUser("u2", "b@example.com", "github|2")))

	s.Require().NoError(s.Storage.Users().AddIdentity(s.Ctx, "u1", "facebook|1"))

	user, err := s.Storage.Users().FindByIdentity(s.Ctx, "facebook|1")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), user.ID)
	s.ElementsMatch([]string{"google|1", "facebook|1"}, user.Identities)

	err = s.Storage.Users().AddIdentity(s.Ctx, "u1", "github|2")
	s.ErrorIs(err, model.ErrDuplicateIdentity)

	err = s.Storage.Users().AddIdentity(s.Ctx, "missing", "x|1")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestFindAllUsersByID() {
	s.Require().NoError(s.Storage.Users().Create(s.Ctx, s.newUser("u1", "a@example.com")))
	s.Require().NoError(s.Storage.Users().Create(s.Ctx, s.newUser("u2", "b@example.com")))

	users, err := s.Storage.Users().FindAllByID(s.Ctx, []model.UserID{"u2", "missing", "u1"})
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal(model.UserID("u2"), users[0].ID)
	s.Equal(model.UserID("u1"), users[1].ID)
}

func (s *Suite) TestDeleteAllUsers() {
	s.Require().NoError(s.Storage.Users().Create(s.Ctx, s.newUser("u1", "a@example.com", "google|1")))

	s.Require().NoError(s.Storage.Users().DeleteAll(s.Ctx))

	_, err := s.Storage.Users().FindByID(s.Ctx, "u1")
	s.ErrorIs(err, model.ErrUserNotFound)

	exists, err := s.Storage.Users().ExistsByIdentity(s.Ctx, "google|1")
	s.Require().NoError(err)
	s.False(exists)
}

// Room tests

func (s *Suite) TestCreateAndFindRoom() {
	room := s.newRoom("r1", s.now, "u1", "u2")
	room.Players[1].Readiness = true
	s.Require().NoError(room.SetPassword("1234"))

	s.Require().NoError(s.Storage.Rooms().Create(s.Ctx, room))
	s.Equal(int64(1), room.Version)

	found, err := s.Storage.Rooms().FindByID(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Equal(room.Game, found.Game)
	s.Equal(room.Host, found.Host)
	s.Equal(room.Players, found.Players)
	s.Equal(room.Name, found.Name)
	s.Equal(room.Status, found.Status)
	s.Equal(4, found.MaxPlayers)
	s.Equal(1, found.MinPlayers)
	s.Equal(int64(1), found.Version)
	s.True(found.IsLocked())
	s.True(found.IsPasswordCorrect("1234"))
	s.True(found.CreatedAt.Equal(s.now))
}

func (s *Suite) TestFindRoomNotFound() {
	_, err := s.Storage.Rooms().FindByID(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestUpdateRoom() {
	room := s.newRoom("r1", s.now, "u1")
	s.Require().NoError(s.Storage.Rooms().Create(s.Ctx, room))

	s.Require().NoError(room.AddPlayer(model.Player{ID: "u2", Nickname: "Bob"}))
	s.Require().NoError(s.Storage.Rooms().Update(s.Ctx, room))
	s.Equal(int64(2), room.Version)

	found, err := s.Storage.Rooms().FindByID(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Len(found.Players, 2)
	s.Equal(int64(2), found.Version)

	joined, err := s.Storage.Rooms().HasPlayerJoinedRoom(s.Ctx, "u2")
	s.Require().NoError(err)
	s.True(joined)

	// Removing a player clears the membership lookup
	s.Require().NoError(found.LeaveRoom("u2"))
	s.Require().NoError(s.Storage.Rooms().Update(s.Ctx, found))

	joined, err = s.Storage.Rooms().HasPlayerJoinedRoom(s.Ctx, "u2")
	s.Require().NoError(err)
	s.False(joined)
}

func (s *Suite) TestUpdateRoomStaleVersion() {
	room := s.newRoom("r1", s.now, "u1")
	s.Require().NoError(s.Storage.Rooms().Create(s.Ctx, room))

	first, err := s.Storage.Rooms().FindByID(s.Ctx, "r1")
	s.Require().NoError(err)
	second, err := s.Storage.Rooms().FindByID(s.Ctx, "r1")
	s.Require().NoError(err)

	s.Require().NoError(first.AddPlayer(model.Player{ID: "u2"}))
	s.Require().NoError(s.Storage.Rooms().Update(s.Ctx, first))

	s.Require().NoError(second.AddPlayer(model.Player{ID: "u3"}))
	err = s.Storage.Rooms().Update(s.Ctx, second)
	s.ErrorIs(err, model.ErrRoomConflict)

	found, err := s.Storage.Rooms().FindByID(s.Ctx, "r1")
	s.Require().NoError(err)
	s.True(found.HasPlayer("u2"))
	s.False(found.HasPlayer("u3"))
}

func (s *Suite) TestUpdateRoomNotFound() {
	err := s.Storage.Rooms().Update(s.Ctx, s.newRoom("missing", s.now, "u1"))
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestDeleteRoom() {
	s.Require().NoError(s.Storage.Rooms().Create(s.Ctx, s.newRoom("r1", s.now, "u1", "u2")))

	s.Require().NoError(s.Storage.Rooms().DeleteByID(s.Ctx, "r1"))

	_, err := s.Storage.Rooms().FindByID(s.Ctx, "r1")
	s.ErrorIs(err, model.ErrRoomNotFound)

	for _, id := range []model.UserID{"u1", "u2"} {
		joined, err := s.Storage.Rooms().HasPlayerJoinedRoom(s.Ctx, id)
		s.Require().NoError(err)
		s.False(joined)
	}

	// Deleting again is a no-op
	s.NoError(s.Storage.Rooms().DeleteByID(s.Ctx, "r1"))
}

func (s *Suite) TestHasPlayerJoinedRoom() {
	s.Require().NoError(s.Storage.Rooms().Create(s.Ctx, s.newRoom("r1", s.now, "u1")))

	joined, err := s.Storage.Rooms().HasPlayerJoinedRoom(s.Ctx, "u1")
	s.Require().NoError(err)
	s.True(joined)

	joined, err = s.Storage.Rooms().HasPlayerJoinedRoom(s.Ctx, "u2")
	s.Require().NoError(err)
	s.False(joined)
}

func (s *Suite) TestFindRoomsByStatus() {
	for i := range 5 {
		room := s.newRoom(fmt.Sprintf("r%d", i), s.now.Add(time.Duration(i)*time.Minute), fmt.Sprintf("u%d", i))
		s.Require().NoError(s.Storage.Rooms().Create(s.Ctx, room))
	}
	playing := s.newRoom("playing", s.now, "u9")
	playing.Status = model.RoomStatusPlaying
	s.Require().NoError(s.Storage.Rooms().Create(s.Ctx, playing))

	page, err := s.Storage.Rooms().FindByStatus(s.Ctx, model.RoomStatusWaiting, model.PageRequest{Page: 0, Offset: 2})
	s.Require().NoError(err)
	s.Equal(5, page.Total)
	s.Equal(0, page.Page)
	s.Equal(2, page.Offset)
	s.Require().Len(page.Data, 2)
	s.Equal(model.RoomID("r0"), page.Data[0].ID)
	s.Equal(model.RoomID("r1"), page.Data[1].ID)

	page, err = s.Storage.Rooms().FindByStatus(s.Ctx, model.RoomStatusWaiting, model.PageRequest{Page: 2, Offset: 2})
	s.Require().NoError(err)
	s.Require().Len(page.Data, 1)
	s.Equal(model.RoomID("r4"), page.Data[0].ID)

	page, err = s.Storage.Rooms().FindByStatus(s.Ctx, model.RoomStatusPlaying, model.PageRequest{Page: 0, Offset: 10})
	s.Require().NoError(err)
	s.Equal(1, page.Total)

	page, err = s.Storage.Rooms().FindByStatus(s.Ctx, model.RoomStatusClosed, model.PageRequest{Page: 0, Offset: 10})
	s.Require().NoError(err)
	s.Equal(0, page.Total)
	s.Empty(page.Data)
}

func (s *Suite) TestFindRoomsByStatusOrdersOldestFirstThenByID() {
	for i, r := range []struct {
		id     string
		offset time.Duration
	}{
		{"a-late", 2 * time.Nanosecond},
		{"b-early", time.Nanosecond},
		{"d-tie", 3 * time.Nanosecond},
		{"c-tie", 3 * time.Nanosecond},
	} {
		room := s.newRoom(r.id, s.now.Add(r.offset), fmt.Sprintf("u%d", i))
		s.Require().NoError(s.Storage.Rooms().Create(s.Ctx, room))
	}

	page, err := s.Storage.Rooms().FindByStatus(s.Ctx, model.RoomStatusWaiting, model.PageRequest{})
	s.Require().NoError(err)
	ids := make([]model.RoomID, len(page.Data))
	for i, r := range page.Data {
		ids[i] = r.ID
	}
	s.Equal([]model.RoomID{"b-early", "a-late", "c-tie", "d-tie"}, ids)
}

func (s *Suite) TestDeleteAllRooms() {
	s.Require().NoError(s.Storage.Rooms().Create(s.Ctx, s.newRoom("r1", s.now, "u1")))

	s.Require().NoError(s.Storage.Rooms().DeleteAll(s.Ctx))

	_, err := s.Storage.Rooms().FindByID(s.Ctx, "r1")
	s.ErrorIs(err, model.ErrRoomNotFound)

	joined, err := s.Storage.Rooms().HasPlayerJoinedRoom(s.Ctx, "u1")
	s.Require().NoError(err)
	s.False(joined)
}

// Game registration tests

func (s *Suite) TestRegisterAndFindGame() {
	game := s.newGame("g1", "chess")
	s.Require().NoError(s.Storage.Games().RegisterGame(s.Ctx, game))

	byID, err := s.Storage.Games().FindByID(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal(game.UniqueName, byID.UniqueName)
	s.Equal(game.DisplayName, byID.DisplayName)
	s.Equal(game.Rule, byID.Rule)
	s.Equal(game.MinPlayers, byID.MinPlayers)
	s.Equal(game.MaxPlayers, byID.MaxPlayers)
	s.Equal(game.FrontEndURL, byID.FrontEndURL)
	s.Equal(game.BackEndURL, byID.BackEndURL)

	byName, err := s.Storage.Games().FindByUniqueName(s.Ctx, "chess")
	s.Require().NoError(err)
	s.Equal(model.GameID("g1"), byName.ID)
}

func (s *Suite) TestRegisterGameDuplicate() {
	s.Require().NoError(s.Storage.Games().RegisterGame(s.Ctx, s.newGame("g1", "chess")))

	err := s.Storage.Games().RegisterGame(s.Ctx, s.newGame("g2", "chess"))
	s.ErrorIs(err, model.ErrDuplicateGame)
}

func (s *Suite) TestFindGameNotFound() {
	_, err := s.Storage.Games().FindByID(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)

	_, err = s.Storage.Games().FindByUniqueName(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestUpdateGame() {
	s.Require().NoError(s.Storage.Games().RegisterGame(s.Ctx, s.newGame("g1", "chess")))
	s.Require().NoError(s.Storage.Games().RegisterGame(s.Ctx, s.newGame("g2", "go")))

	renamed := s.newGame("g1", "chess960")
	renamed.MaxPlayers = 2
	s.Require().NoError(s.Storage.Games().UpdateGame(s.Ctx, renamed))

	found, err := s.Storage.Games().FindByUniqueName(s.Ctx, "chess960")
	s.Require().NoError(err)
	s.Equal(model.GameID("g1"), found.ID)
	s.Equal(2, found.MaxPlayers)

	_, err = s.Storage.Games().FindByUniqueName(s.Ctx, "chess")
	s.ErrorIs(err, model.ErrGameNotFound)

	err = s.Storage.Games().UpdateGame(s.Ctx, s.newGame("g2", "chess960"))
	s.ErrorIs(err, model.ErrDuplicateGame)

	err = s.Storage.Games().UpdateGame(s.Ctx, s.newGame("missing", "x"))
	s.ErrorIs(err, model.ErrGameNotFound)
}
