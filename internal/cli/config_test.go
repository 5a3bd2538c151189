package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOBBYCTL_SERVER", "")
	t.Setenv("LOBBYCTL_TOKEN", "")
	t.Setenv("LOBBYCTL_TOKEN_FILE", "")

	c := DefaultConfig()
	assert.Equal(t, "http://localhost:8080", c.ServerURL)
	assert.Equal(t, "text", c.Output)
	assert.True(t, strings.HasSuffix(c.TokenFile, filepath.Join(".lobbyctl", "token")), c.TokenFile)
	assert.Empty(t, c.Token)
	assert.Empty(t, c.TokenSource)
	assert.False(t, c.Verbose)

	t.Setenv("LOBBYCTL_SERVER", "https://lobby.example.com")
	t.Setenv("LOBBYCTL_TOKEN", "env-token")
	t.Setenv("LOBBYCTL_TOKEN_FILE", "/tmp/lobby-token")

	c = DefaultConfig()
	assert.Equal(t, "https://lobby.example.com", c.ServerURL)
	assert.Equal(t, "env-token", c.Token)
	assert.Equal(t, TokenFromEnv, c.TokenSource)
	assert.Equal(t, "/tmp/lobby-token", c.TokenFile)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		server  string
		output  string
		wantErr string
	}{
		{"defaults", "http://localhost:8080", "text", ""},
		{"https json", "https://lobby.example.com/", "json", ""},
		{"missing scheme", "localhost:8080", "text", "--server"},
		{"wrong scheme", "ftp://lobby.example.com", "text", "--server"},
		{"no host", "http://", "text", "--server"},
		{"unknown output", "http://localhost:8080", "yaml", "--output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Config{ServerURL: tt.server, Output: tt.output}).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigTokenFile(t *testing.T) {
	c := &Config{TokenFile: filepath.Join(t.TempDir(), "nested", "token")}

	// a missing file is not an error
	require.NoError(t, c.LoadToken())
	assert.Empty(t, c.Token)

	require.NoError(t, c.SaveToken("abc.def.ghi"))
	assert.Equal(t, TokenFromFile, c.TokenSource)
	info, err := os.Stat(c.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := &Config{TokenFile: c.TokenFile}
	require.NoError(t, loaded.LoadToken())
	assert.Equal(t, "abc.def.ghi", loaded.Token)
	assert.Equal(t, TokenFromFile, loaded.TokenSource)

	// a token from flag or env wins over the file
	flagged := &Config{TokenFile: c.TokenFile, Token: "flag-token", TokenSource: TokenFromFlag}
	require.NoError(t, flagged.LoadToken())
	assert.Equal(t, "flag-token", flagged.Token)

	require.NoError(t, flagged.ClearToken())
	assert.Equal(t, "flag-token", flagged.Token)
	assert.NoFileExists(t, c.TokenFile)

	require.NoError(t, loaded.ClearToken())
	assert.Empty(t, loaded.Token)
	assert.Empty(t, loaded.TokenSource)
}
