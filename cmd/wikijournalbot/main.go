package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	defaultConfigPath = "configs/wikijournalbot.yaml"
	defaultEnvPath    = ".env"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wikijournalbot",
		Short: "Keeps WikiJournal article lists in sync with Wikidata",
	}
	root.PersistentFlags().String("config", defaultConfigPath, "Path to the YAML config file")

	root.AddCommand(newUpdateCmd())
	root.AddCommand(newInitConfigCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newSetCmd())
	root.AddCommand(newUnsetCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		os.Exit(1)
	}
}
