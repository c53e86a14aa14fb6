package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// DefaultEnvFile is loaded before the environment is read, if it exists.
const DefaultEnvFile = "/etc/stratux-companion/companion.env"

var (
	version string
	commit  string
	date    string

	envFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Stratux companion - traffic alarms and status display",
	Long: `The Stratux companion runs next to a Stratux ADS-B receiver. It tracks
nearby traffic from the receiver's websocket feed, announces aircraft that
come too close and drives a small status display.

Process configuration comes from COMPANION_* environment variables (optionally
loaded from an env file). Device settings live in a YAML settings file and
can be changed with "companion settings set".`,
	Version: version,
	// Show help rather than silently succeeding without a subcommand
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Errors are printed by the printer package, not by cobra
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
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
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", DefaultEnvFile, "Environment file loaded before COMPANION_* variables are read")
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
