package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/gamelobby/internal/api/apierr"
	"github.com/mcoot/gamelobby/internal/api/response"
	"github.com/mcoot/gamelobby/internal/factory"
	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/services/game"
	"github.com/mcoot/gamelobby/internal/services/room"
)

type APISuite struct {
	suite.Suite
	app     *factory.TestApp
	handler http.Handler
	tokens  map[string]string
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.handler = s.app.Router()
	s.tokens = map[string]string{}
	for _, name := range []string{"host", "bob", "carol", "dave", "erin"} {
		s.tokens[name] = s.app.Token(model.Principal{
			Identity: "auth|" + name,
			Email:    name + "@example.com",
			Nickname: name,
		})
	}
}

func (s *APISuite) TearDownTest() {
	s.app.HubManager.Close()
}

func (s *APISuite) request(method, path string, body any, who string) *httptest.ResponseRecorder {
	var reqBody bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&reqBody).Encode(body))
	}

	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	if who != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[who])
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](s *APISuite, rr *httptest.ResponseRecorder) T {
	var v T
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (s *APISuite) requireError(rr *httptest.ResponseRecorder, status int, code string) apierr.APIError {
	s.Require().Equal(status, rr.Code, rr.Body.String())
	resp := decode[apierr.ErrorResponse](s, rr)
	s.Equal(code, resp.Error.Code)
	return resp.Error
}

// login registers each named user through the API
func (s *APISuite) login(names ...string) {
	for _, name := range names {
		rr := s.request(http.MethodPost, "/api/v1/users/me", nil, name)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	}
}

func (s *APISuite) registerGame() response.Game {
	rr := s.request(http.MethodPost, "/api/v1/games", map[string]any{
		"uniqueName":  "big2",
		"displayName": "Big Two",
		"minPlayers":  2,
		"maxPlayers":  4,
	}, "host")
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Game](s, rr)
}

func (s *APISuite) createRoom(password string) response.Room {
	s.login("host")
	g := s.registerGame()
	rr := s.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"gameId":     g.ID,
		"name":       "friday night",
		"password":   password,
		"minPlayers": 2,
		"maxPlayers": 4,
	}, "host")
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Room](s, rr)
}

func (s *APISuite) TestHealthCheck() {
	rr := s.request(http.MethodGet, "/api/v1/health", nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.Equal(response.Health{Status: "ok", Storage: "memory"}, decode[response.Health](s, rr))
}

func (s *APISuite) TestRequiresToken() {
	rr := s.request(http.MethodGet, "/api/v1/rooms", nil, "")
	s.requireError(rr, http.StatusUnauthorized, apierr.CodeUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	s.requireError(rr, http.StatusUnauthorized, apierr.CodeUnauthorized)
}

func (s *APISuite) TestUnknownRoute() {
	rr := s.request(http.MethodGet, "/api/v1/nope", nil, "host")
	s.requireError(rr, http.StatusNotFound, apierr.CodeNotFound)
}

// User endpoints

func (s *APISuite) TestUsers() {
	s.app.MockIDs.Queue("user-host")

	rr := s.request(http.MethodGet, "/api/v1/users/me", nil, "host")
	s.requireError(rr, http.StatusNotFound, apierr.CodeUserNotFound)

	rr = s.request(http.MethodPost, "/api/v1/users/me", map[string]string{"nickname": "The Host"}, "host")
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	created := decode[response.User](s, rr)
	s.Equal("user-host", created.ID)
	s.Equal("The Host", created.Nickname)
	s.Equal([]string{"auth|host"}, created.Identities)

	// second login returns the same user
	rr = s.request(http.MethodPost, "/api/v1/users/me", nil, "host")
	s.Equal(created.ID, decode[response.User](s, rr).ID)

	rr = s.request(http.MethodGet, "/api/v1/users/me", nil, "host")
	s.Equal(created, decode[response.User](s, rr))

	rr = s.request(http.MethodGet, "/api/v1/users/user-host", nil, "bob")
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal("host@example.com", decode[response.User](s, rr).Email)

	rr = s.request(http.MethodGet, "/api/v1/users/missing", nil, "bob")
	s.requireError(rr, http.StatusNotFound, apierr.CodeUserNotFound)
}

func (s *APISuite) TestUnknownFieldsRejected() {
	rr := s.request(http.MethodPost, "/api/v1/users/me", map[string]string{"admin": "yes"}, "host")
	s.requireError(rr, http.StatusBadRequest, apierr.CodeInvalidRequest)
}

// Game endpoints

func (s *APISuite) TestGames() {
	s.app.MockIDs.Queue("game-1")
	g := s.registerGame()
	s.Equal("game-1", g.ID)
	s.Equal(4, g.MaxPlayers)

	rr := s.request(http.MethodGet, "/api/v1/games/game-1", nil, "bob")
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal(g, decode[response.Game](s, rr))

	rr = s.request(http.MethodPut, "/api/v1/games/game-1", map[string]any{
		"uniqueName":  "big2",
		"displayName": "Big Two Deluxe",
		"minPlayers":  2,
		"maxPlayers":  6,
	}, "host")
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Equal("Big Two Deluxe", decode[response.Game](s, rr).DisplayName)

	rr = s.request(http.MethodPost, "/api/v1/games", map[string]any{
		"uniqueName": "big2", "displayName": "Again", "minPlayers": 2, "maxPlayers": 4,
	}, "host")
	s.requireError(rr, http.StatusBadRequest, apierr.CodeDuplicateGame)

	rr = s.request(http.MethodPost, "/api/v1/games", map[string]any{
		"uniqueName": "bad", "displayName": "Bad", "minPlayers": 5, "maxPlayers": 4,
	}, "host")
	s.requireError(rr, http.StatusBadRequest, apierr.CodeInvalidRequest)

	rr = s.request(http.MethodGet, "/api/v1/games/missing", nil, "bob")
	s.requireError(rr, http.StatusNotFound, apierr.CodeGameNotFound)
}

// Room endpoints

func (s *APISuite) TestCreateAndGetRoom() {
	s.app.MockIDs.Queue("user-host", "game-1", "room-1")
	created := s.createRoom("1234")

	s.Equal("room-1", created.ID)
	s.Equal("WAITING", created.Status)
	s.True(created.IsLocked)
	s.Equal(1, created.CurrentPlayers)
	s.Equal("user-host", created.Host.ID)
	s.Equal(response.GameRef{ID: "game-1", UniqueName: "big2", DisplayName: "Big Two"}, created.Game)
	s.NotContains(s.request(http.MethodGet, "/api/v1/rooms/room-1", nil, "bob").Body.String(), "$2a$")

	rr := s.request(http.MethodGet, "/api/v1/rooms/room-1", nil, "bob")
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal(created, decode[response.Room](s, rr))

	rr = s.request(http.MethodGet, "/api/v1/rooms/missing", nil, "bob")
	s.requireError(rr, http.StatusNotFound, apierr.CodeRoomNotFound)
}

func (s *APISuite) TestCreateRoomErrors() {
	s.createRoom("")

	rr := s.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"gameId": "whatever", "name": "again", "minPlayers": 2, "maxPlayers": 4,
	}, "host")
	s.requireError(rr, http.StatusNotFound, apierr.CodeGameNotFound)

	game, err := s.app.GameService.GetGameByUniqueName(context.Background(), "big2")
	s.Require().NoError(err)

	rr = s.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"gameId": game.ID, "name": "again", "minPlayers": 2, "maxPlayers": 4,
	}, "host")
	apiErr := s.requireError(rr, http.StatusBadRequest, apierr.CodeHostAlreadyInRoom)
	s.Equal("A user can only create one room at a time.", apiErr.Message)

	s.login("bob")
	rr = s.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"gameId": game.ID, "name": "locked", "password": "12", "minPlayers": 2, "maxPlayers": 4,
	}, "bob")
	apiErr = s.requireError(rr, http.StatusBadRequest, apierr.CodeInvalidPassword)
	s.Equal("The length must be 4 and can only contain digits.", apiErr.Message)

	rr = s.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"gameId": game.ID, "name": "huge", "minPlayers": 2, "maxPlayers": 10,
	}, "bob")
	s.requireError(rr, http.StatusBadRequest, apierr.CodeInvalidPlayerRange)

	// a user who never logged in
	rr = s.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"gameId": game.ID, "name": "ghost", "minPlayers": 2, "maxPlayers": 4,
	}, "erin")
	s.requireError(rr, http.StatusNotFound, apierr.CodeUserNotFound)
}

func (s *APISuite) TestJoinUntilFull() {
	created := s.createRoom("")
	s.login("bob", "carol", "dave", "erin")

	for _, name := range []string{"bob", "carol", "dave"} {
		rr := s.request(http.MethodPost, "/api/v1/rooms/"+created.ID+"/players", nil, name)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	}

	rr := s.request(http.MethodGet, "/api/v1/rooms/"+created.ID, nil, "bob")
	s.Equal(4, decode[response.Room](s, rr).CurrentPlayers)

	rr = s.request(http.MethodPost, "/api/v1/rooms/"+created.ID+"/players", nil, "erin")
	apiErr := s.requireError(rr, http.StatusBadRequest, apierr.CodeRoomFull)
	s.Equal("The room ("+created.ID+") is full. Please select another room or try again later.", apiErr.Message)
}

func (s *APISuite) TestJoinLockedRoom() {
	created := s.createRoom("1234")
	s.login("bob")
	path := "/api/v1/rooms/" + created.ID + "/players"

	rr := s.request(http.MethodPost, path, map[string]string{"password": "wrong"}, "bob")
	s.requireError(rr, http.StatusBadRequest, apierr.CodeWrongPassword)

	rr = s.request(http.MethodPost, path, map[string]string{"password": "1234"}, "bob")
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Equal(2, decode[response.Room](s, rr).CurrentPlayers)

	rr = s.request(http.MethodPost, path, map[string]string{"password": "1234"}, "bob")
	s.requireError(rr, http.StatusBadRequest, apierr.CodePlayerAlreadyInRoom)
}

func (s *APISuite) TestReadinessAndLeave() {
	created := s.createRoom("")
	s.login("bob")
	base := "/api/v1/rooms/" + created.ID

	rr := s.request(http.MethodPost, base+"/players/me:ready", nil, "bob")
	s.requireError(rr, http.StatusBadRequest, apierr.CodePlayerNotJoined)

	s.Require().Equal(http.StatusOK, s.request(http.MethodPost, base+"/players", nil, "bob").Code)

	rr = s.request(http.MethodPost, base+"/players/me:ready", nil, "bob")
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.True(decode[response.Room](s, rr).Players[1].Readiness)

	rr = s.request(http.MethodPost, base+"/players/me:cancel", nil, "bob")
	s.Require().Equal(http.StatusOK, rr.Code)
	s.False(decode[response.Room](s, rr).Players[1].Readiness)

	rr = s.request(http.MethodDelete, base+"/players/me", nil, "bob")
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.request(http.MethodDelete, base+"/players/me", nil, "bob")
	s.requireError(rr, http.StatusBadRequest, apierr.CodePlayerNotJoined)

	rr = s.request(http.MethodGet, base, nil, "bob")
	s.Equal(1, decode[response.Room](s, rr).CurrentPlayers)
}

func (s *APISuite) TestCloseRoom() {
	s.app.MockIDs.Queue("user-host", "game-1", "room-1", "user-bob")
	created := s.createRoom("")
	s.login("bob")
	base := "/api/v1/rooms/" + created.ID
	s.Require().Equal(http.StatusOK, s.request(http.MethodPost, base+"/players", nil, "bob").Code)

	rr := s.request(http.MethodDelete, base, nil, "bob")
	apiErr := s.requireError(rr, http.StatusBadRequest, apierr.CodeNotRoomHost)
	s.Equal("Player(user-bob) is not the host", apiErr.Message)

	rr = s.request(http.MethodDelete, base, nil, "host")
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.request(http.MethodGet, base, nil, "host")
	s.requireError(rr, http.StatusNotFound, apierr.CodeRoomNotFound)
}

func (s *APISuite) TestListRooms() {
	s.createRoom("")
	s.login("bob")
	game, err := s.app.GameService.GetGameByUniqueName(context.Background(), "big2")
	s.Require().NoError(err)

	s.app.MockClock.Advance(time.Minute)
	rr := s.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"gameId": game.ID, "name": "second", "minPlayers": 2, "maxPlayers": 3,
	}, "bob")
	s.Require().Equal(http.StatusCreated, rr.Code)

	rr = s.request(http.MethodGet, "/api/v1/rooms?status=WAITING&page=0&offset=1", nil, "bob")
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	page := decode[response.Page[response.Room]](s, rr)
	s.Equal(2, page.Total)
	s.Equal(1, page.Offset)
	s.Require().Len(page.Data, 1)
	s.Equal("friday night", page.Data[0].Name)

	rr = s.request(http.MethodGet, "/api/v1/rooms?page=1&offset=1", nil, "bob")
	page = decode[response.Page[response.Room]](s, rr)
	s.Require().Len(page.Data, 1)
	s.Equal("second", page.Data[0].Name)

	rr = s.request(http.MethodGet, "/api/v1/rooms?status=PLAYING", nil, "bob")
	page = decode[response.Page[response.Room]](s, rr)
	s.Zero(page.Total)
	s.NotNil(page.Data)

	rr = s.request(http.MethodGet, "/api/v1/rooms?status=DANCING", nil, "bob")
	s.requireError(rr, http.StatusBadRequest, apierr.CodeInvalidRequest)

	rr = s.request(http.MethodGet, "/api/v1/rooms?page=first", nil, "bob")
	s.requireError(rr, http.StatusBadRequest, apierr.CodeInvalidRequest)
}

// Event stream

func TestRoomEventStream(t *testing.T) {
	app := factory.NewTestApp()
	srv := httptest.NewServer(app.Router())
	defer srv.Close()
	defer app.HubManager.Close()

	ctx := context.Background()
	for _, name := range []string{"host", "bob"} {
		_, err := app.UserService.EnsureUser(ctx, model.Principal{Identity: "auth|" + name, Email: name + "@example.com", Nickname: name})
		require.NoError(t, err)
	}
	app.MockIDs.Queue("game-1", "room-1")
	g, err := app.GameService.RegisterGame(ctx, gameRegistration())
	require.NoError(t, err)
	created, err := app.RoomService.CreateRoom(ctx, roomRequest(g.ID))
	require.NoError(t, err)

	token := app.Token(model.Principal{Identity: "auth|bob", Email: "bob@example.com"})
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/rooms/"+string(created.ID)+"/events?access_token="+token, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream ended before %q", prefix)
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-timeout:
				t.Fatalf("no line starting with %q", prefix)
			}
		}
	}

	waitFor("event: connected")
	require.Eventually(t, func() bool {
		hub := app.HubManager.GetHub(created.ID)
		return hub != nil && hub.ClientCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	_, err = app.RoomService.JoinRoom(ctx, created.ID, "auth|bob", "")
	require.NoError(t, err)

	waitFor("event: player_joined")
	data := waitFor("data: ")
	var event response.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(data, "data: ")), &event))
	assert.Equal(t, "player_joined", event.Type)
	assert.Equal(t, string(created.ID), event.RoomID)

	require.NoError(t, app.RoomService.CloseRoom(ctx, created.ID, "auth|host"))
	waitFor("event: room_closed")
	assert.Eventually(t, func() bool { return app.HubManager.GetHub(created.ID) == nil }, 5*time.Second, 10*time.Millisecond)
}

func TestRoomEventStreamDisconnectDropsHub(t *testing.T) {
	app := factory.NewTestApp()
	srv := httptest.NewServer(app.Router())
	defer srv.Close()
	defer app.HubManager.Close()

	ctx := context.Background()
	_, err := app.UserService.EnsureUser(ctx, model.Principal{Identity: "auth|host", Email: "host@example.com", Nickname: "host"})
	require.NoError(t, err)
	app.MockIDs.Queue("game-1", "room-1")
	g, err := app.GameService.RegisterGame(ctx, gameRegistration())
	require.NoError(t, err)
	created, err := app.RoomService.CreateRoom(ctx, roomRequest(g.ID))
	require.NoError(t, err)

	streamCtx, cancel := context.WithCancel(ctx)
	token := app.Token(model.Principal{Identity: "auth|bob", Email: "bob@example.com"})
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, srv.URL+"/api/v1/rooms/"+string(created.ID)+"/events?access_token="+token, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		hub := app.HubManager.GetHub(created.ID)
		return hub != nil && hub.ClientCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return app.HubManager.GetHub(created.ID) == nil }, 5*time.Second, 10*time.Millisecond)
}

func TestRoomEventStreamMissingRoom(t *testing.T) {
	app := factory.NewTestApp()
	handler := app.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/missing/events", nil)
	req.Header.Set("Authorization", "Bearer "+app.Token(model.Principal{Identity: "auth|bob"}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Nil(t, app.HubManager.GetHub("missing"))
}

func gameRegistration() game.Registration {
	return game.Registration{
		UniqueName:  "big2",
		DisplayName: "Big Two",
		MinPlayers:  2,
		MaxPlayers:  4,
	}
}

func roomRequest(gameID model.GameID) room.CreateRoomRequest {
	return room.CreateRoomRequest{
		GameID:       gameID,
		HostIdentity: "auth|host",
		Name:         "friday night",
		MinPlayers:   2,
		MaxPlayers:   4,
	}
}
