package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardfill/internal/buildinfo"
	"cardfill/internal/cli"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var envFiles []string

	rootCmd := &cobra.Command{
		Use:     "cardfill",
		Short:   "Shared card fill tracker for Telegram",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile(envFiles...)
		},
	}

	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load before reading configuration (default .env)")

	rootCmd.AddCommand(
		newServeCommand(),
		newPollCommand(),
		newWorkerCommand(),
		newMigrateCommand(),
		newReportCommand(),
		newScopeCommand(),
		newBudgetCommand(),
	)

	return rootCmd
}
