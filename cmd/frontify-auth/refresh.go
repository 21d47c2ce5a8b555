package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frontify/authenticator-go/pkg/auth"
	"github.com/frontify/authenticator-go/pkg/auth/types"
)

func newRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange a refresh token for a new token",
		RunE:  runRefresh,
	}

	cmd.Flags().String("domain", "", "Frontify instance domain")
	cmd.Flags().String("client-id", "", "OAuth2 client ID")
	cmd.Flags().StringSlice("scope", nil, "Requested scope (repeatable)")
	cmd.Flags().String("refresh-token", "", "The refresh token to redeem")
	_ = cmd.MarkFlagRequired("refresh-token")

	return cmd
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Domain == "" {
		return fmt.Errorf("domain is required (flag, FRONTIFY_AUTH_DOMAIN, or config file)")
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("client_id is required (flag, FRONTIFY_AUTH_CLIENT_ID, or config file)")
	}

	refreshToken, _ := cmd.Flags().GetString("refresh-token")

	authenticator := auth.New(auth.WithLogger(logger))

	token, err := authenticator.Refresh(cmd.Context(), &types.Token{
		Bearer: types.BearerToken{
			TokenType:    "Bearer",
			RefreshToken: refreshToken,
			Domain:       types.NormalizeDomain(cfg.Domain),
		},
		ClientID: cfg.ClientID,
		Scopes:   cfg.Scopes,
	})
	if err != nil {
		return err
	}

	return printToken(cmd, token)
}
