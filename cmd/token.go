package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storefront/storebot/internal/config"
	jwtpkg "storefront/storebot/pkg/jwt"
)

func newTokenCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a storefront API access token for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.JWT.SigningKey == "" {
				return fmt.Errorf("jwt signing_key is required to mint tokens")
			}

			manager := jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
			token, err := manager.GenerateAccessToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
