package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wikijournalbot/pkg/config"
	"wikijournalbot/pkg/store"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "set <key> <value>",
		Short:        fmt.Sprintf("Persist an operator override for later runs (%v)", config.OverrideKeys),
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, val := args[0], args[1]
			if err := config.ValidateOverride(key, val); err != nil {
				return err
			}
			return withStore(cmd, func(st *store.SQLiteStore) error {
				if err := st.SetState(cmd.Context(), key, val); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, val)
				return err
			})
		},
	}
}

func newUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "unset <key>",
		Short:        "Remove an operator override",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *store.SQLiteStore) error {
				return st.DeleteState(cmd.Context(), args[0])
			})
		},
	}
}

// withStore opens the database named by the --config file for a one-shot command.
func withStore(cmd *cobra.Command, fn func(st *store.SQLiteStore) error) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbConn, st, err := initDB(cfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()
	return fn(st)
}
