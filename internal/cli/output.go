package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/gamelobby/internal/api/response"
	"github.com/mcoot/gamelobby/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

func newOutput(cmd *cobra.Command) *Output {
	return NewOutput(cfg.Output, cmd.OutOrStdout())
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		o.printf("%s\n", msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.User:
		o.printUser(v)
	case response.Game:
		o.printGame(v)
	case response.Room:
		o.printRoom(v)
	case response.Page[response.Room]:
		o.printRoomPage(v)
	case response.Health:
		o.printf("Status: %s\nStorage: %s\n", v.Status, v.Storage)
	case IssuedToken:
		o.printf("%s\n", v.Token)
	case TokenInfo:
		o.printf("Identity: %s\nEmail: %s\nSource: %s\n", v.Identity, v.Email, v.Source)
		if v.File != "" {
			o.printf("File: %s\n", v.File)
		}
		if v.ExpiresAt != nil {
			o.printf("Expires: %s\n", v.ExpiresAt.Format(time.RFC3339))
		}
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printUser(u response.User) {
	o.printf("User: %s (%s)\n", u.Nickname, u.ID)
	o.printf("Email: %s\n", u.Email)
	o.printf("Identities: %s\n", strings.Join(u.Identities, ", "))
}

func (o *Output) printGame(g response.Game) {
	o.printf("Game: %s [%s] (%s)\n", g.DisplayName, g.UniqueName, g.ID)
	o.printf("Players: %d-%d\n", g.MinPlayers, g.MaxPlayers)
	if g.ShortDescription != "" {
		o.printf("Description: %s\n", g.ShortDescription)
	}
	if g.FrontEndURL != "" {
		o.printf("Front end: %s\n", g.FrontEndURL)
	}
}

func (o *Output) printRoom(r response.Room) {
	lock := ""
	if r.IsLocked {
		lock = " [locked]"
	}
	o.printf("Room: %s (%s)%s\n", r.Name, r.ID, lock)
	o.printf("Game: %s\n", r.Game.DisplayName)
	o.printf("Status: %s\n", r.Status)
	o.printf("Players (%d/%d, min %d):\n", r.CurrentPlayers, r.MaxPlayers, r.MinPlayers)
	for _, p := range r.Players {
		var tags []string
		if p.ID == r.Host.ID {
			tags = append(tags, "host")
		}
		if p.Readiness {
			tags = append(tags, "ready")
		}
		suffix := ""
		if len(tags) > 0 {
			suffix = " [" + strings.Join(tags, ", ") + "]"
		}
		o.printf("  - %s (%s)%s\n", p.Nickname, p.ID, suffix)
	}
}

func (o *Output) printRoomPage(p response.Page[response.Room]) {
	start := model.PageRequest{Page: p.Page, Offset: p.Offset}.Normalize().Start()
	o.printf("Rooms %d-%d of %d\n", min(start+1, p.Total), min(start+len(p.Data), p.Total), p.Total)
	for _, r := range p.Data {
		lock := ""
		if r.IsLocked {
			lock = " [locked]"
		}
		o.printf("  %s  %-20s %-12s %d/%d%s\n", r.ID, r.Name, r.Game.UniqueName, r.CurrentPlayers, r.MaxPlayers, lock)
	}
}
