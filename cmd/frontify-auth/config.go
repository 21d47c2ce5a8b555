package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/frontify/authenticator-go/pkg/popup"
)

// fileConfig is the YAML config file schema.
type fileConfig struct {
	Domain   string       `yaml:"domain,omitempty"`
	ClientID string       `yaml:"client_id"`
	Scopes   []string     `yaml:"scopes"`
	Popup    popup.Config `yaml:"popup,omitempty"`
}

// resolveConfig merges the config file, FRONTIFY_AUTH_* environment
// variables, and command flags. Priority: ENV > flag > file.
func resolveConfig(cmd *cobra.Command) (*fileConfig, error) {
	cfg := &fileConfig{}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cmd.Flags().Changed("domain") {
		cfg.Domain, _ = cmd.Flags().GetString("domain")
	}
	if cmd.Flags().Changed("client-id") {
		cfg.ClientID, _ = cmd.Flags().GetString("client-id")
	}
	if cmd.Flags().Changed("scope") {
		cfg.Scopes, _ = cmd.Flags().GetStringSlice("scope")
	}

	v := viper.New()
	v.SetEnvPrefix("FRONTIFY_AUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if s := v.GetString("domain"); s != "" {
		cfg.Domain = s
	}
	if s := v.GetString("client_id"); s != "" {
		cfg.ClientID = s
	}
	if s := v.GetString("scopes"); s != "" {
		cfg.Scopes = strings.Split(s, ",")
	}

	return cfg, nil
}
