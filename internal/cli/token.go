package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"studyhub/internal/auth"
	"studyhub/internal/config"
	"studyhub/internal/domain"
)

// NewTokenCmd mints a signed token for a user, for local testing and
// administrator access.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = config.TTLDuration(cfg.Auth.TTL, 24*time.Hour)
			}
			r := domain.Role(role)
			if r != domain.RoleStudent && r != domain.RoleAdmin {
				return fmt.Errorf("unknown role %q", role)
			}
			token, err := auth.NewAuthenticator(cfg.Auth.Secret).Issue(userID, r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "student or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.ttl)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
