package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/mcoot/gamelobby/internal/dependencies/clock"
	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/services/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer token commands",
	}

	cmd.AddCommand(newTokenIssueCmd())
	cmd.AddCommand(newTokenShowCmd())
	cmd.AddCommand(newTokenClearCmd())

	return cmd
}

// IssuedToken is printed by "token issue"
type IssuedToken struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

func newTokenIssueCmd() *cobra.Command {
	var (
		secret, issuer            string
		identity, email, nickname string
		ttl                       time.Duration
		noSave                    bool
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a development token with the server's secret",
		Long: `Sign a principal token locally with the same HS256 secret the server
verifies with. Intended for development; production tokens come from the
identity provider. The token is saved to the token file unless --no-save.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret is required (env: LOBBY_JWT_SECRET)")
			}

			signer := auth.New(clock.New(), auth.Config{
				Secret:        secret,
				Issuer:        issuer,
				TokenDuration: ttl,
			})
			token, err := signer.Issue(model.Principal{
				Identity: identity,
				Email:    email,
				Nickname: nickname,
			})
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			if !noSave {
				if err := cfg.SaveToken(token); err != nil {
					return fmt.Errorf("failed to save token: %w", err)
				}
			}

			newOutput(cmd).Print(IssuedToken{Token: token, Identity: identity})
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("LOBBY_JWT_SECRET"), "Signing secret (env: LOBBY_JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", getEnvOrDefault("LOBBY_JWT_ISSUER", "gamelobby"), "Token issuer")
	cmd.Flags().StringVar(&identity, "identity", "", "Identity-provider subject, e.g. github|42 (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email claim (required)")
	cmd.Flags().StringVar(&nickname, "nickname", "", "Nickname claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Print the token without saving it")
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// TokenInfo is printed by "token show". Claims are decoded without checking
// the signature; only the server can do that.
type TokenInfo struct {
	Source    string     `json:"source"`
	File      string     `json:"file,omitempty"`
	Identity  string     `json:"identity"`
	Email     string     `json:"email"`
	Nickname  string     `json:"nickname,omitempty"`
	Issuer    string     `json:"issuer,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func newTokenShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current token's source and claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return errors.New(`no token: pass --token, set LOBBYCTL_TOKEN or run "token issue"`)
			}

			var claims auth.Claims
			if _, _, err := jwt.NewParser().ParseUnverified(cfg.Token, &claims); err != nil {
				return fmt.Errorf("decode token: %w", err)
			}

			info := TokenInfo{
				Source:   cfg.TokenSource,
				Identity: claims.Subject,
				Email:    claims.Email,
				Nickname: claims.Nickname,
				Issuer:   claims.Issuer,
			}
			if cfg.TokenSource == TokenFromFile {
				info.File = cfg.TokenFile
			}
			if claims.ExpiresAt != nil {
				exp := claims.ExpiresAt.UTC()
				info.ExpiresAt = &exp
			}
			newOutput(cmd).Print(info)
			return nil
		},
	}
}

func newTokenClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved token file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to clear token: %w", err)
			}
			newOutput(cmd).PrintMessage("Removed " + cfg.TokenFile)
			return nil
		},
	}
}
