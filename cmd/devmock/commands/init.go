package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devmock/devmock/internal/cli/output"
	"github.com/devmock/devmock/internal/cli/prompt"
	"github.com/devmock/devmock/pkg/config"
)

var (
	initForce       bool
	initInteractive bool
	initDir         string
	initSkipSeed    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration and example mock tree",
	Long: `Create a devmock configuration file and seed an example mock tree.

The configuration file is written to the --config path, or to the default
location at $XDG_CONFIG_HOME/devmock/config.yaml. The mock tree is seeded
with a handful of example JSON resources; existing files are never
overwritten.

Examples:
  # Create config and mock tree with defaults
  devmock init

  # Answer a few questions instead of taking the defaults
  devmock init --interactive

  # Overwrite an existing configuration file
  devmock init --force

  # Seed the mock tree somewhere else
  devmock init --dir ./fixtures`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file without asking")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the common settings")
	initCmd.Flags().StringVarP(&initDir, "dir", "d", "", "Mock tree directory (default ./mock)")
	initCmd.Flags().BoolVar(&initSkipSeed, "skip-seed", false, "Do not write the example mock tree")
}

func runInit(cmd *cobra.Command, args []string) error {
	opts := config.DefaultInitOptions()
	if initDir != "" {
		opts.FSDir = initDir
	}

	if initInteractive {
		if err := promptInitOptions(&opts); err != nil {
			return HandleAbort(err)
		}
	}

	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		confirmed, err := prompt.ConfirmWithForce(
			fmt.Sprintf("Overwrite existing configuration at %s?", path), initForce)
		if err != nil {
			return HandleAbort(err)
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := config.WriteSampleConfig(path, opts, true); err != nil {
		return err
	}

	printer := output.DefaultPrinter()
	printer.Success(fmt.Sprintf("Configuration written to %s", path))

	if !initSkipSeed {
		created, err := config.SeedMockTree(opts.FSDir)
		if err != nil {
			return fmt.Errorf("failed to seed mock tree: %w", err)
		}
		if len(created) > 0 {
			printer.Success(fmt.Sprintf("Seeded %d example files under %s", len(created), opts.FSDir))
		} else {
			printer.Println("Mock tree already present, nothing seeded.")
		}
	}

	fmt.Println()
	fmt.Println("Start the server with:")
	fmt.Println("  devmock start")
	return nil
}

// promptInitOptions asks for the common settings, starting from the
// defaults already in opts.
func promptInitOptions(opts *config.InitOptions) error {
	var err error

	opts.Port, err = prompt.InputPort("Server port", opts.Port)
	if err != nil {
		return err
	}

	opts.Prefix, err = prompt.InputValidated("URL prefix to mock", opts.Prefix, func(input string) error {
		if input == "" || input[0] != '/' {
			return fmt.Errorf("prefix must start with /")
		}
		return nil
	})
	if err != nil {
		return err
	}

	opts.FSDir, err = prompt.Input("Mock tree directory", opts.FSDir)
	if err != nil {
		return err
	}

	opts.EnableWS, err = prompt.Confirm("Enable WebSocket endpoints", opts.EnableWS)
	if err != nil {
		return err
	}

	opts.LogLevel, err = prompt.Select("Log level", []prompt.SelectOption{
		{Label: "INFO", Value: "INFO", Description: "Request completions and lifecycle events"},
		{Label: "DEBUG", Value: "DEBUG", Description: "Everything, including file resolution and frames"},
		{Label: "WARN", Value: "WARN", Description: "Only problems"},
		{Label: "ERROR", Value: "ERROR", Description: "Only failures"},
	})
	if err != nil {
		return err
	}

	return nil
}
