package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "adjudicator/internal/jwt_token"
	"adjudicator/internal/platform/config"
	"adjudicator/internal/refund/models"
)

func tokenService(cfg config.Config) *jwttoken.Service {
	return jwttoken.NewService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
}

func tokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a bearer token for local testing and operator scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			token, err := tokenService(cfg).Mint(args[0], models.Role(role), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&role, "role", string(models.RoleStakeholder), "role carried by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
