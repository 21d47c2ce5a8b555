// Package main implements the frontify-auth CLI, a thin wrapper around the
// authenticator library for obtaining, refreshing, and revoking tokens
// from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frontify-auth",
		Short: "Obtain OAuth2 PKCE tokens from a Frontify instance",
		Long: `frontify-auth drives the interactive OAuth2 PKCE flow against a
Frontify instance. The authorization itself happens in your browser; this
tool opens it, waits for the flow to complete, and prints the token.

Tokens are never stored: capture the output yourself.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringP("output", "o", "text", "Output format (text or json)")

	cmd.AddCommand(newAuthorizeCmd())
	cmd.AddCommand(newRefreshCmd())
	cmd.AddCommand(newRevokeCmd())

	return cmd
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
