package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Ledgerctl - Inspect and update the shared task ledger",
	Long: `Ledgerctl is the operator CLI for the task ledger: a single shared,
human-readable document that tracks each author's current task list.

The ledger is persisted in a versioned content store; every update is a
compare-and-swap on the whole document, so concurrent writers never
silently overwrite each other.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "ledger.yml", "Path to the ledger configuration file")

	// Silence Cobra's default error and usage printing; the printer package
	// already writes formatted errors to stderr.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}
