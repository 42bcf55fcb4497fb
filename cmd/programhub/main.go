// Command programhub runs the program management API and its operator tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"programhub/internal/config"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// cfg is loaded by PersistentPreRunE for every subcommand.
	cfg config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "programhub",
	Short: "Programhub tracks programs, projects, tasks, risks and documents",
	Long: `Programhub serves the program management API and offers operator
commands for registering users and reading budget reports.

Settings come from the optional --config file and PROGRAMHUB_* environment
variables, for example PROGRAMHUB_STORAGE_DRIVER=postgres.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(reportCmd)
}
