package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/frontify/authenticator-go/pkg/auth"
	"github.com/frontify/authenticator-go/pkg/auth/types"
	"github.com/frontify/authenticator-go/pkg/popup"
)

func newAuthorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Run the interactive authorization flow",
		Long: `Opens the browser, drives the OAuth2 PKCE flow against the configured
Frontify instance, and prints the resulting token. When no domain is
configured, the browser first shows the domain-selection page.`,
		RunE: runAuthorize,
	}

	cmd.Flags().String("domain", "", "Frontify instance domain (selected in the browser when omitted)")
	cmd.Flags().String("client-id", "", "OAuth2 client ID")
	cmd.Flags().StringSlice("scope", nil, "Requested scope (repeatable)")
	cmd.Flags().Duration("timeout", auth.DefaultTimeout, "How long to wait for each interactive step")

	return cmd
}

func runAuthorize(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("client_id is required (flag, FRONTIFY_AUTH_CLIENT_ID, or config file)")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")

	authenticator := auth.New(
		auth.WithLogger(logger),
		auth.WithTimeout(timeout),
	)

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = " Waiting for authorization in the browser..."
	spin.Start()

	token, err := authenticator.Authorize(cmd.Context(), &types.Config{
		Domain:   cfg.Domain,
		ClientID: cfg.ClientID,
		Scopes:   cfg.Scopes,
	}, &popup.Config{
		Title:  cfg.Popup.Title,
		Width:  cfg.Popup.Width,
		Height: cfg.Popup.Height,
		Top:    cfg.Popup.Top,
		Left:   cfg.Popup.Left,
	})

	spin.Stop()

	if err != nil {
		return err
	}

	return printToken(cmd, token)
}

func printToken(cmd *cobra.Command, token *types.Token) error {
	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		data, err := json.MarshalIndent(token, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	pterm.Success.Println("Authorization complete")

	expiry := "unknown"
	if exp := token.ExpiresAt(); !exp.IsZero() {
		expiry = exp.Format(time.RFC3339)
	}

	return pterm.DefaultTable.WithData(pterm.TableData{
		{"Domain", token.Bearer.Domain},
		{"Client ID", token.ClientID},
		{"Scopes", fmt.Sprintf("%v", token.Scopes)},
		{"Expires", expiry},
		{"Access token", token.Bearer.AccessToken},
		{"Refresh token", token.Bearer.RefreshToken},
	}).Render()
}
