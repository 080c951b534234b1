package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devmock/devmock/internal/logger"
	"github.com/devmock/devmock/pkg/config"
	"github.com/devmock/devmock/pkg/engine"
	"github.com/devmock/devmock/pkg/metrics"
	"github.com/devmock/devmock/pkg/metrics/prometheus"
	"github.com/devmock/devmock/pkg/server"
)

var (
	startPort int
	startDir  string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the devmock server",
	Long: `Start the devmock server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/devmock/config.yaml. Without a
configuration file the server starts with the built-in defaults: the mock
tree at ./mock served under /api on port 8080.

Examples:
  # Start with defaults or the default config file
  devmock start

  # Start with a custom config file
  devmock start --config ./devmock.yaml

  # Override the listen port and mock tree for this run
  devmock start --port 9000 --dir ./fixtures

  # Start with environment variable overrides
  DEVMOCK_LOGGING_LEVEL=DEBUG devmock start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVarP(&startPort, "port", "p", 0, "Listen port (overrides configuration)")
	startCmd.Flags().StringVarP(&startDir, "dir", "d", "", "Mock tree directory (overrides configuration)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(GetConfigFile())
	if err != nil {
		return err
	}

	// Flag overrides beat both file and environment
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = startPort
	}
	if cmd.Flags().Changed("dir") {
		cfg.Engine.FSDir = startDir
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	fmt.Println("DevMock - Development mock backend")
	logger.Info("configuration loaded",
		"source", getConfigSource(GetConfigFile()),
		"log_level", cfg.Logging.Level)

	opts := cfg.Engine.ToOptions()
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		opts.Metrics = prometheus.NewEngineMetrics()
		opts.WSMetrics = prometheus.NewWSMetrics()
		logger.Info("metrics enabled", "endpoint", "/metrics")
	} else {
		logger.Debug("metrics disabled")
	}

	eng, err := engine.New(&opts)
	if err != nil {
		return fmt.Errorf("failed to create mock engine: %w", err)
	}

	server.Version = Version
	srv := server.New(cfg, eng)

	// Ctrl+C or SIGTERM cancels the context and the server drains.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		// Once the drain starts, restore the default handler so a second
		// signal kills the process instead of being swallowed.
		<-ctx.Done()
		stop()
	}()

	if err := srv.Start(ctx); err != nil {
		logger.Error("server exited", logger.Err(err))
		return err
	}

	return nil
}
