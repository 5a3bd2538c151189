package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/gamelobby/internal/api/request"
	"github.com/mcoot/gamelobby/internal/api/response"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game registration commands",
	}

	cmd.AddCommand(newGameRegisterCmd())
	cmd.AddCommand(newGameUpdateCmd())
	cmd.AddCommand(newGameGetCmd())

	return cmd
}

// gameFlags binds the registration fields shared by register and update
func gameFlags(cmd *cobra.Command, req *request.GameRequest) {
	cmd.Flags().StringVar(&req.UniqueName, "name", "", "Unique name (required)")
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "Display name (required)")
	cmd.Flags().StringVar(&req.ShortDescription, "description", "", "Short description")
	cmd.Flags().StringVar(&req.Rule, "rule", "", "Rules text")
	cmd.Flags().StringVar(&req.ImageURL, "image-url", "", "Image URL")
	cmd.Flags().IntVar(&req.MinPlayers, "min-players", 2, "Minimum players")
	cmd.Flags().IntVar(&req.MaxPlayers, "max-players", 4, "Maximum players")
	cmd.Flags().StringVar(&req.FrontEndURL, "frontend-url", "", "Game front end URL")
	cmd.Flags().StringVar(&req.BackEndURL, "backend-url", "", "Game back end URL")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("display-name")
}

func newGameRegisterCmd() *cobra.Command {
	var req request.GameRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a game",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game

			if err := client.Post(cmd.Context(), "/api/v1/games", req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	gameFlags(cmd, &req)

	return cmd
}

func newGameUpdateCmd() *cobra.Command {
	var req request.GameRequest

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a game registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game

			if err := client.Put(cmd.Context(), fmt.Sprintf("/api/v1/games/%s", args[0]), req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	gameFlags(cmd, &req)

	return cmd
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a game registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Game

			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/v1/games/%s", args[0]), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}
