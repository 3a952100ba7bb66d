package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mariodrm17/Practica1/pkg/jwt"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Username string
	Role     string
}

// NewTokenCommand creates a command that signs an identity token with the configured
// secret, for local testing without the session gateway.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a development identity token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			username := opts.Username
			if username == "" {
				username = args[0]
			}
			token, err := tokens.Issue(args[0], username, opts.Role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "display username (defaults to the user id)")
	cmd.Flags().StringVar(&opts.Role, "role", "customer", "role claim")

	return cmd
}
