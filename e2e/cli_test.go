package e2e_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/gamelobby/internal/api"
	"github.com/mcoot/gamelobby/internal/api/response"
	"github.com/mcoot/gamelobby/internal/factory"
	"github.com/mcoot/gamelobby/internal/services/auth"
	"github.com/mcoot/gamelobby/internal/testutil"
)

const testSecret = "e2e-secret-of-sufficient-length"

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	dir        string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(t.TempDir(), "lobbyctl")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/lobbyctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		dir:        t.TempDir(),
	}
}

// run executes the CLI as the named user, each with its own token file
func (r *cliRunner) run(user string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", filepath.Join(r.dir, user+".token"),
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = append(os.Environ(), "LOBBY_JWT_SECRET="+testSecret, "LOBBYCTL_TOKEN=")
	output, err := cmd.Output()
	return string(output), err
}

func (r *cliRunner) login(t *testing.T, user string) response.User {
	t.Helper()
	_, err := r.run(user, "token", "issue", "--identity", "e2e|"+user, "--email", user+"@example.com", "--nickname", user)
	require.NoError(t, err)
	return runJSON[response.User](t)(r.run(user, "user", "login"))
}

func runJSON[T any](t *testing.T) func(string, error) T {
	return func(out string, err error) T {
		t.Helper()
		require.NoError(t, err, "output: %s", out)
		var v T
		require.NoError(t, json.Unmarshal([]byte(out), &v), out)
		return v
	}
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// startTestServer runs the real server stack on a free local port
func startTestServer(t *testing.T) string {
	t.Helper()

	authCfg := auth.DefaultConfig()
	authCfg.Secret = testSecret
	app, err := factory.New(context.Background(), factory.Config{
		AuthConfig: authCfg,
		Logger:     testutil.NopLogger(),
	})
	require.NoError(t, err)

	cfg := api.DefaultServerConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = 5 * time.Second
	server := api.NewServer(app.Router(), cfg, testutil.NopLogger())
	server.OnShutdown(app.HubManager.Close)
	require.NoError(t, server.Listen())

	go func() {
		if err := server.Start(); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	t.Cleanup(func() {
		_ = server.Shutdown(context.Background())
		_ = app.Close()
	})

	serverURL := "http://" + server.Addr()
	waitForServer(t, serverURL+"/api/v1/health")
	return serverURL
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the CLI binary")
	}
	cli := newCLIRunner(t, startTestServer(t))

	health := runJSON[response.Health](t)(cli.run("anon", "health"))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "memory", health.Storage)
}

func TestCLI_RoomLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the CLI binary")
	}
	cli := newCLIRunner(t, startTestServer(t))

	host := cli.login(t, "host")
	alice := cli.login(t, "alice")
	cli.login(t, "bob")

	game := runJSON[response.Game](t)(cli.run("host", "game", "register",
		"--name", "tictactoe", "--display-name", "Tic Tac Toe", "--min-players", "2", "--max-players", "2"))

	room := runJSON[response.Room](t)(cli.run("host", "room", "create",
		"--game", game.ID, "--name", "duel", "--min-players", "2", "--max-players", "2"))
	assert.Equal(t, host.ID, room.Host.ID)
	assert.False(t, room.IsLocked)

	// Watch the room while the others act on it
	events := exec.Command(cli.binaryPath,
		"--server", cli.serverURL, "--token-file", filepath.Join(cli.dir, "bob.token"),
		"room", "events", room.ID, "--json")
	events.Env = append(os.Environ(), "LOBBYCTL_TOKEN=")
	var eventsOut strings.Builder
	events.Stdout = &eventsOut
	require.NoError(t, events.Start())

	// Give the stream a moment to subscribe before the first event
	time.Sleep(300 * time.Millisecond)

	joined := runJSON[response.Room](t)(cli.run("alice", "room", "join", room.ID))
	assert.Equal(t, 2, joined.CurrentPlayers)

	_, err := cli.run("bob", "room", "join", room.ID)
	require.Error(t, err, "room is full")

	ready := runJSON[response.Room](t)(cli.run("alice", "room", "ready", room.ID))
	require.Len(t, ready.Players, 2)
	assert.Equal(t, alice.ID, ready.Players[1].ID)
	assert.True(t, ready.Players[1].Readiness)

	// The host leaving closes the room
	_, err = cli.run("host", "room", "leave", room.ID)
	require.NoError(t, err)

	waitErr := make(chan error, 1)
	go func() { waitErr <- events.Wait() }()
	select {
	case err := <-waitErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		_ = events.Process.Kill()
		t.Fatal("event stream did not end after the room closed")
	}

	var names []string
	for _, line := range strings.Split(strings.TrimSpace(eventsOut.String()), "\n") {
		var e struct {
			Event string `json:"event"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		names = append(names, e.Event)
	}
	assert.Equal(t, []string{"connected", "player_joined", "player_readiness_changed", "room_closed"}, names)

	_, err = cli.run("alice", "room", "get", room.ID)
	require.Error(t, err)

	// alice is free to host now
	runJSON[response.Room](t)(cli.run("alice", "room", "create", "--game", game.ID, "--name", "rematch", "--max-players", "2"))
}
