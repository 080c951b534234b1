// Package config implements configuration management commands for devmock.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for configuration management.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Inspect and maintain the devmock configuration file.

Examples:
  # Validate the configuration
  devmock config validate

  # Open the configuration in $EDITOR
  devmock config edit

  # Generate a JSON schema for IDE autocompletion
  devmock config schema --output devmock.schema.json`,
}

func init() {
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(editCmd)
	Cmd.AddCommand(schemaCmd)
}
