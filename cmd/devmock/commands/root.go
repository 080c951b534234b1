// Package commands implements the CLI commands for the devmock binary.
package commands

import (
	"github.com/spf13/cobra"

	configcmd "github.com/devmock/devmock/cmd/devmock/commands/config"
)

// Build identity, stamped by the release build through SetVersionInfo.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "devmock",
	Short: "DevMock - Development mock backend",
	Long: `devmock serves a mock REST and WebSocket backend for frontend development.

The REST surface is driven by a directory of JSON files: the URL path maps
onto the file tree, and list responses understand pagination and filter
query parameters out of the box. WebSocket endpoints, custom handlers and
middlewares are declared in the configuration file or on the Go API.

Use "devmock [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersionInfo records the build identity stamped into the binary.
func SetVersionInfo(version, commit, date string) {
	Version, Commit, Date = version, commit, date
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetConfigFile returns the --config flag value, empty when the default
// location should be used.
func GetConfigFile() string {
	return configFile
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file (default: $XDG_CONFIG_HOME/devmock/config.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// devmock ships its own completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
