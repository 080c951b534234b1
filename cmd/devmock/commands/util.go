package commands

import (
	"fmt"

	"github.com/devmock/devmock/internal/cli/prompt"
	"github.com/devmock/devmock/internal/logger"
	"github.com/devmock/devmock/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads the configuration for serving commands. An explicit
// --config path must exist; without one the default location is used when
// present, and the built-in defaults otherwise, so the server runs with no
// setup at all.
func loadConfig(configFile string) (*config.Config, error) {
	if configFile != "" {
		return config.MustLoad(configFile)
	}
	return config.Load("")
}

// HandleAbort checks if error is an abort (Ctrl+C) and prints a message.
// Returns nil for abort (user cancelled), otherwise returns the original error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
