package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Where the bearer token was found
const (
	TokenFromFlag = "flag"
	TokenFromEnv  = "env"
	TokenFromFile = "file"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
	Verbose   bool

	// TokenSource is one of the TokenFrom* values, or empty with no token
	TokenSource string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	c := &Config{
		ServerURL: getEnvOrDefault("LOBBYCTL_SERVER", "http://localhost:8080"),
		Token:     os.Getenv("LOBBYCTL_TOKEN"),
		TokenFile: getEnvOrDefault("LOBBYCTL_TOKEN_FILE", defaultTokenFile()),
		Output:    "text",
	}
	if c.Token != "" {
		c.TokenSource = TokenFromEnv
	}
	return c
}

// Validate checks the settings that flags and env can get wrong
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("--server must be an http(s) URL, got %q", c.ServerURL)
	}
	switch c.Output {
	case "text", "json":
	default:
		return fmt.Errorf("--output must be text or json, got %q", c.Output)
	}
	return nil
}

// LoadToken loads the token from file if not already set
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // No token file is fine
		}
		return err
	}

	c.Token = strings.TrimSpace(string(data))
	if c.Token != "" {
		c.TokenSource = TokenFromFile
	}
	return nil
}

// SaveToken saves the token to the token file
func (c *Config) SaveToken(token string) error {
	dir := filepath.Dir(c.TokenFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	if err := os.WriteFile(c.TokenFile, []byte(token+"\n"), 0600); err != nil {
		return err
	}

	c.Token = token
	c.TokenSource = TokenFromFile
	return nil
}

// ClearToken deletes the token file. A token given by flag or env is kept.
func (c *Config) ClearToken() error {
	if err := os.Remove(c.TokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if c.TokenSource == TokenFromFile {
		c.Token = ""
		c.TokenSource = ""
	}
	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lobbyctl/token"
	}
	return filepath.Join(home, ".lobbyctl", "token")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
