package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/frontify/authenticator-go/pkg/auth"
	"github.com/frontify/authenticator-go/pkg/auth/types"
)

func newRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke an access token on its instance",
		RunE:  runRevoke,
	}

	cmd.Flags().String("domain", "", "Frontify instance domain")
	cmd.Flags().String("access-token", "", "The access token to revoke")
	_ = cmd.MarkFlagRequired("access-token")

	return cmd
}

func runRevoke(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Domain == "" {
		return fmt.Errorf("domain is required (flag, FRONTIFY_AUTH_DOMAIN, or config file)")
	}

	accessToken, _ := cmd.Flags().GetString("access-token")

	authenticator := auth.New(auth.WithLogger(logger))

	_, err = authenticator.Revoke(cmd.Context(), &types.Token{
		Bearer: types.BearerToken{
			AccessToken: accessToken,
			Domain:      types.NormalizeDomain(cfg.Domain),
		},
	})
	if err != nil {
		// A failed revocation leaves the remote token merely un-revoked;
		// the local credential is gone either way.
		logger.Warn().Err(err).Msg("revocation failed")
		pterm.Warning.Println("Revocation failed; the token may still be active on the instance.")
		return nil
	}

	pterm.Success.Println("Token revoked")
	return nil
}
