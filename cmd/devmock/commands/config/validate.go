package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devmock/devmock/internal/cli/output"
	"github.com/devmock/devmock/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the devmock configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  devmock config validate

  # Validate specific config file
  devmock config validate --config ./devmock.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	p := output.DefaultPrinter()
	p.Printf("Configuration file: %s\n", displayPath)
	p.Success("Validation: OK")

	if warnings := collectWarnings(cfg); len(warnings) > 0 {
		p.Println("\nWarnings:")
		for _, w := range warnings {
			p.Warning("  - " + w)
		}
	}

	p.Println("\nConfiguration summary:")
	for _, row := range [][2]string{
		{"Server port", strconv.Itoa(cfg.Server.Port)},
		{"Prefixes", strings.Join(cfg.Engine.Prefixes, ", ")},
		{"Mock tree", cfg.Engine.FSDir},
		{"WebSockets", strconv.FormatBool(cfg.Engine.EnableWS)},
		{"Log level", cfg.Logging.Level},
	} {
		p.Printf("  %-16s %s\n", row[0]+":", row[1])
	}
	return nil
}

// collectWarnings flags configurations that load fine but will surprise at
// runtime.
func collectWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.Engine.FSDir == "" {
		warnings = append(warnings, "no mock tree configured - the filesystem surface is disabled")
	} else if _, err := os.Stat(cfg.Engine.FSDir); os.IsNotExist(err) {
		warnings = append(warnings,
			fmt.Sprintf("mock tree directory %s does not exist - filesystem routes will answer 404", cfg.Engine.FSDir))
	}
	if cfg.Engine.Disabled {
		warnings = append(warnings, "engine disabled - only health, metrics and static files are served")
	}
	return warnings
}
