package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/clinicagenda/libs/auth"
	"github.com/md-rashed-zaman/clinicagenda/libs/config"
)

// tokenCmd mints HS256 tokens for local development against JWT_SECRET.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := config.RequiredString("JWT_SECRET")
			if err != nil {
				return err
			}
			user, _ := cmd.Flags().GetString("user")
			tenant, _ := cmd.Flags().GetString("tenant")
			role, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			token, err := auth.SignHS256(auth.Session{UserID: user, TenantID: tenant, Role: role}, secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("user", "dev-user", "subject of the token")
	cmd.Flags().String("tenant", "dev-clinic", "tenant id")
	cmd.Flags().String("role", auth.RoleAdmin, "role claim")
	cmd.Flags().Duration("ttl", 12*time.Hour, "token lifetime")
	return cmd
}
