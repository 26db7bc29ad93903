package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/domain"
)

type tokenOptions struct {
	userID string
	name   string
	email  string
	admin  bool
}

// NewTokenCommand issues bearer tokens signed with the configured secret.
// It replaces seeding an admin account.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}

			role := domain.RoleUser
			if opts.admin {
				role = domain.RoleAdmin
			}
			token, err := auth.NewGate(cfg.JWTSecret, cfg.TokenTTL).Issue(domain.Identity{
				UserID: opts.userID,
				Role:   role,
				Name:   opts.name,
				Email:  opts.email,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.userID, "user", "", "user id carried as the token subject")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.email, "email", "", "email")
	cmd.Flags().BoolVar(&opts.admin, "admin", false, "grant the admin role")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
