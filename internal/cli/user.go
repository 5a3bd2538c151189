package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/gamelobby/internal/api/request"
	"github.com/mcoot/gamelobby/internal/api/response"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User commands",
	}

	cmd.AddCommand(newUserLoginCmd())
	cmd.AddCommand(newUserMeCmd())
	cmd.AddCommand(newUserGetCmd())

	return cmd
}

func newUserLoginCmd() *cobra.Command {
	var nickname string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Register the token's principal, or link it to an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.User

			req := request.EnsureUserRequest{Nickname: nickname}
			if err := client.Post(cmd.Context(), "/api/v1/users/me", req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&nickname, "nickname", "", "Nickname override")

	return cmd
}

func newUserMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show current user info",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.User

			if err := client.Get(cmd.Context(), "/api/v1/users/me", &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newUserGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a user by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.User

			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/v1/users/%s", args[0]), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}
