package main

import (
	"github.com/spf13/cobra"
)

const redacted = "********"

// newConfigCmd prints the effective configuration, which doubles as a
// starting point for a --config file.
func newConfigCmd() *cobra.Command {
	var configPath string
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "config [url]",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := layerConfig(cmd, configPath, args)
			if err != nil {
				return err
			}
			if !showSecrets {
				if cfg.Auth.Password != "" {
					cfg.Auth.Password = redacted
				}
				if cfg.Auth.Token != "" {
					cfg.Auth.Token = redacted
				}
			}
			return cfg.Encode(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print password and token unmasked")
	addConfigFlags(cmd)
	return cmd
}
