package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wikijournalbot/pkg/config"
)

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "init-config",
		Short:        "Generate the default config file and exit",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if err := config.GenerateDefault(path); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Config file generated: %s\n", path)
			return err
		},
	}
}
