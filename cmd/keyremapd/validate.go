package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"keyremapd/internal/config"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Parse a config file and report errors without running",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := v.GetString("config")
			if len(args) == 1 {
				path = args[0]
			}

			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("validate: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d layers, %d macros, %d commands)\n",
				path, len(cfg.Layers), len(cfg.Macros), len(cfg.Commands))
			return nil
		},
	}
}
