package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/gamelobby/internal/api/request"
	"github.com/mcoot/gamelobby/internal/api/response"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomListCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomLeaveCmd())
	cmd.AddCommand(newRoomCloseCmd())
	cmd.AddCommand(newRoomReadyCmd("ready", "Mark yourself ready", "me:ready"))
	cmd.AddCommand(newRoomReadyCmd("unready", "Cancel your readiness", "me:cancel"))
	cmd.AddCommand(newEventsCmd())

	return cmd
}

func roomPath(id string) string {
	return "/api/v1/rooms/" + url.PathEscape(id)
}

func newRoomCreateCmd() *cobra.Command {
	var req request.CreateRoomRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room and join it as host",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Room

			if err := client.Post(cmd.Context(), "/api/v1/rooms", req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.GameID, "game", "", "Game id (required)")
	cmd.Flags().StringVar(&req.Name, "name", "", "Room name (required)")
	cmd.Flags().StringVar(&req.Password, "password", "", "Four-digit password; empty for an open room")
	cmd.Flags().IntVar(&req.MinPlayers, "min-players", 2, "Minimum players")
	cmd.Flags().IntVar(&req.MaxPlayers, "max-players", 4, "Maximum players")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newRoomListCmd() *cobra.Command {
	var (
		status       string
		page, offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rooms by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("status", status)
			q.Set("page", strconv.Itoa(page))
			q.Set("offset", strconv.Itoa(offset))

			var result response.Page[response.Room]

			if err := client.Get(cmd.Context(), "/api/v1/rooms?"+q.Encode(), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "WAITING", "Room status: WAITING or PLAYING")
	cmd.Flags().IntVar(&page, "page", 0, "Page number, starting at 0")
	cmd.Flags().IntVar(&offset, "offset", 10, "Page size")

	return cmd
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get room details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Room

			if err := client.Get(cmd.Context(), roomPath(args[0]), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newRoomJoinCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "join <id>",
		Short: "Join a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Room

			req := request.JoinRoomRequest{Password: password}
			if err := client.Post(cmd.Context(), roomPath(args[0])+"/players", req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Room password")

	return cmd
}

func newRoomLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <id>",
		Short: "Leave a room; the room closes if you are the host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), roomPath(args[0])+"/players/me"); err != nil {
				return err
			}

			newOutput(cmd).PrintMessage(fmt.Sprintf("Left room %s", args[0]))
			return nil
		},
	}
}

func newRoomCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Close a room you host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), roomPath(args[0])); err != nil {
				return err
			}

			newOutput(cmd).PrintMessage(fmt.Sprintf("Closed room %s", args[0]))
			return nil
		},
	}
}

func newRoomReadyCmd(use, short, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Room

			if err := client.Post(cmd.Context(), roomPath(args[0])+"/players/"+action, nil, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}
