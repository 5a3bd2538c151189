package sse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{"single line data", "player_joined", `{"a":1}`, "event: player_joined\ndata: {\"a\":1}\n\n"},
		{"multi-line data", "update", "line1\nline2", "event: update\ndata: line1\ndata: line2\n\n"},
		{"empty data", "ping", "", "event: ping\ndata: \n\n"},
		{"carriage returns", "test", "line1\r\nline2\r\n", "event: test\ndata: line1\ndata: line2\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func receive(t *testing.T, client *Client) string {
	t.Helper()
	select {
	case msg, ok := <-client.send:
		require.True(t, ok, "client channel closed")
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
		return ""
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub("room-1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client1 := NewClient(hub, "auth|alice")
	client2 := NewClient(hub, "auth|bob")
	require.True(t, hub.Register(client1))
	require.True(t, hub.Register(client2))
	assert.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.BroadcastEvent("test-event", "test data")

	assert.Equal(t, "event: test-event\ndata: test data\n\n", receive(t, client1))
	assert.Equal(t, "event: test-event\ndata: test data\n\n", receive(t, client2))
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub("room-1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "auth|alice")
	require.True(t, hub.Register(client))
	hub.Unregister(client)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-client.send
	assert.False(t, ok)
}

func TestHub_ClosedHubRejectsClients(t *testing.T) {
	hub := NewHub("room-1", testutil.NopLogger())
	go hub.Run()
	hub.Close()
	hub.Close()

	client := NewClient(hub, "auth|alice")
	assert.False(t, hub.Register(client))
	hub.Unregister(client)
}

func TestHubManager_Hubs(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	assert.Nil(t, manager.GetHub("room-1"))

	hub1 := manager.GetOrCreateHub("room-1")
	assert.Same(t, hub1, manager.GetOrCreateHub("room-1"))
	assert.Same(t, hub1, manager.GetHub("room-1"))
	assert.NotSame(t, hub1, manager.GetOrCreateHub("room-2"))

	manager.RemoveHub("room-1")
	assert.Nil(t, manager.GetHub("room-1"))
	manager.RemoveHub("missing")
}

func TestHubManager_ReleaseDropsIdleHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	hub := manager.GetOrCreateHub("room-1")
	manager.GetOrCreateHub("room-1")

	manager.Release(hub)
	assert.Same(t, hub, manager.GetHub("room-1"))

	manager.Release(hub)
	assert.Nil(t, manager.GetHub("room-1"))
	assert.False(t, hub.Register(NewClient(hub, "auth|alice")))

	// a later watcher gets a fresh hub
	assert.NotSame(t, hub, manager.GetOrCreateHub("room-1"))
}

func TestHubManager_SweepClosesVanishedRooms(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	gone := manager.GetOrCreateHub("gone")
	goneClient := NewClient(gone, "auth|alice")
	require.True(t, gone.Register(goneClient))
	kept := manager.GetOrCreateHub("kept")
	flaky := manager.GetOrCreateHub("flaky")

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	manager.Sweep(context.Background(), func(_ context.Context, id model.RoomID) (bool, error) {
		switch id {
		case "gone":
			return false, nil
		case "flaky":
			return false, errors.New("connection refused")
		}
		return true, nil
	}, at)

	msg := receive(t, goneClient)
	assert.Contains(t, msg, "event: room_closed")
	assert.Contains(t, msg, `"reason":"expired"`)
	assert.Nil(t, manager.GetHub("gone"))
	assert.Same(t, kept, manager.GetHub("kept"))
	assert.Same(t, flaky, manager.GetHub("flaky"))
}

func TestHubManager_RunSweeperStopsWithContext(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	manager.GetOrCreateHub("room-1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		manager.RunSweeper(ctx, 5*time.Millisecond, func(context.Context, model.RoomID) (bool, error) {
			return false, nil
		})
	}()

	assert.Eventually(t, func() bool { return manager.GetHub("room-1") == nil }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestHubManager_HandleForwardsEvents(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	hub := manager.GetOrCreateHub("room-1")
	client := NewClient(hub, "auth|alice")
	require.True(t, hub.Register(client))

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	manager.Handle(context.Background(), model.Event{
		Type:      model.EventPlayerJoined,
		Timestamp: at,
		RoomID:    "room-1",
		PlayerID:  "user-bob",
		Payload: model.PlayerJoinedPayload{
			Player:         model.Player{ID: "user-bob", Nickname: "bob"},
			CurrentPlayers: 2,
		},
	})
	// other rooms are ignored
	manager.Handle(context.Background(), model.Event{Type: model.EventPlayerJoined, RoomID: "room-2"})

	msg := receive(t, client)
	require.True(t, strings.HasPrefix(msg, "event: player_joined\ndata: "))

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(msg, "event: player_joined\ndata: "))), &event))
	assert.Equal(t, "player_joined", event["type"])
	assert.Equal(t, "room-1", event["roomId"])
	payload := event["payload"].(map[string]any)
	assert.Equal(t, float64(2), payload["currentPlayers"])
	assert.Equal(t, "bob", payload["player"].(map[string]any)["nickname"])
}

func TestHubManager_RoomClosedEndsStream(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	hub := manager.GetOrCreateHub("room-1")
	client := NewClient(hub, "auth|alice")
	require.True(t, hub.Register(client))

	manager.Handle(context.Background(), model.Event{
		Type:    model.EventRoomClosed,
		RoomID:  "room-1",
		Payload: model.RoomClosedPayload{ClosedBy: "user-host", Reason: model.CloseReasonHostClosed},
	})

	assert.Contains(t, receive(t, client), "event: room_closed")
	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client channel was not closed")
	}
	assert.Nil(t, manager.GetHub("room-1"))
}

func TestServeSSE(t *testing.T) {
	hub := NewHub("room-1", testutil.NopLogger())
	go hub.Run()

	req := httptest.NewRequest(http.MethodGet, "/rooms/room-1/events", nil)
	rr := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ServeSSE(rr, req, hub, "auth|alice")
	}()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.BroadcastEvent("player_left", `{"playerId":"user-bob"}`)
	hub.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end when the hub closed")
	}

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))
	body := rr.Body.String()
	assert.Contains(t, body, "retry: 3000\n\n")
	assert.Contains(t, body, "event: connected\ndata: {\"roomId\":\"room-1\"}\n\n")
	assert.Contains(t, body, "event: player_left\ndata: {\"playerId\":\"user-bob\"}\n\n")
}

func TestServeSSE_DropsHubWhenLastClientLeaves(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	hub := manager.GetOrCreateHub("room-1")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/rooms/room-1/events", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ServeSSE(httptest.NewRecorder(), req, hub, "auth|alice")
	}()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not end when the client went away")
	}

	assert.Nil(t, manager.GetHub("room-1"))
}

func TestServeSSE_RoomClosedBeforeRegister(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	hub := manager.GetOrCreateHub("room-1")

	manager.Handle(context.Background(), model.Event{
		Type:    model.EventRoomClosed,
		RoomID:  "room-1",
		Payload: model.RoomClosedPayload{Reason: model.CloseReasonHostClosed},
	})

	rr := httptest.NewRecorder()
	ServeSSE(rr, httptest.NewRequest(http.MethodGet, "/rooms/room-1/events", nil), hub, "auth|alice")

	assert.Equal(t, http.StatusGone, rr.Code)
	assert.Nil(t, manager.GetHub("room-1"))
}
