package config

import (
	"strings"
	"time"

	"github.com/devmock/devmock/internal/bytesize"
	"github.com/devmock/devmock/pkg/engine"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyEngineDefaults(&cfg.Engine)
	applyShutdownTimeoutDefaults(cfg)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets standalone server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// applyEngineDefaults sets mock engine defaults.
func applyEngineDefaults(cfg *EngineConfig) {
	if len(cfg.Prefixes) == 0 {
		cfg.Prefixes = []string{"/api"}
	}
	if cfg.UnmatchedAction == "" {
		cfg.UnmatchedAction = string(engine.UnmatchedNotFound)
	}
	if cfg.Parser.MaxBodySize == 0 {
		cfg.Parser.MaxBodySize = 10 * bytesize.MiB
	}
	for i := range cfg.Routes {
		if cfg.Routes[i].Method == "" {
			cfg.Routes[i].Method = "GET"
		}
		// Normalize methods to uppercase for consistent matching
		cfg.Routes[i].Method = strings.ToUpper(cfg.Routes[i].Method)
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Running without a config file
func GetDefaultConfig() *Config {
	cfg := &Config{
		Engine: EngineConfig{
			FSDir:    "./mock",
			EnableWS: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
