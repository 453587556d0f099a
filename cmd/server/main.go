package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"idvgate/internal/platform/config"
)

// main builds the idv command tree. Business logic lives in internal
// packages; commands only wire dependencies.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string
	var cfg config.Server

	root := &cobra.Command{
		Use:           "idv",
		Short:         "Identity verification hook for login flows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.Load(envFiles...)
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading the environment")

	root.AddCommand(
		newServeCmd(&cfg),
		newMigrateCmd(&cfg),
		newEligibilityCmd(&cfg),
	)
	return root
}
