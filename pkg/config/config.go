// Package config loads and validates the devmock configuration.
//
// The file captures everything the standalone server needs plus the
// file-expressible subset of the engine options: prefixes, mock tree
// location, delays, timeouts, parser limits, global listing directives and
// declarative filesystem routes. Programmatic concerns (custom handler
// functions, middlewares, WebSocket handlers, function filters) only exist
// on the Go API and are attached by the embedding host.
//
// Sources are layered, highest precedence first: DEVMOCK_* environment
// variables, the configuration file (YAML or TOML), built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/devmock/devmock/internal/bytesize"
	"github.com/devmock/devmock/pkg/listing"
	"github.com/devmock/devmock/pkg/rest"
)

// Config is the devmock configuration.
type Config struct {
	// Logging selects level, format and destination for the process log
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server configures the standalone HTTP server run by `devmock start`
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics toggles the Prometheus registry and the /metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Engine is the mock engine configuration: prefixes, mock tree,
	// delays, listing directives and declarative routes
	Engine EngineConfig `mapstructure:"engine" yaml:"engine"`

	// ShutdownTimeout bounds the graceful shutdown drain
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig selects what the process log emits and where it goes.
type LoggingConfig struct {
	// Level is the minimum severity written, one of DEBUG, INFO, WARN or
	// ERROR in either case
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is "text" for the console handler or "json" for one JSON
	// object per line
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is "stdout", "stderr" or a file path opened for append
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ServerConfig configures the standalone HTTP server.
type ServerConfig struct {
	// Host is the listen address. Empty binds all interfaces.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the HTTP listen port
	// Default: 8080
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// ReadTimeout bounds reading the request head and body.
	// WebSocket connections are hijacked and manage their own liveness.
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// IdleTimeout bounds keep-alive connections between requests
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// StaticDir serves plain files for requests the engine forwards.
	// Empty disables the static fallback; forwarded requests then get the
	// server's own 404.
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir,omitempty"`
}

// MetricsConfig toggles Prometheus metrics. Nothing is collected and no
// /metrics endpoint is mounted while Enabled is false.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// EngineConfig is the file-expressible subset of the engine options.
type EngineConfig struct {
	// Disabled turns the engine into a pass-through
	Disabled bool `mapstructure:"disabled" yaml:"disabled"`

	// Prefixes are the URL prefixes the engine claims
	// Default: ["/api"]
	Prefixes []string `mapstructure:"prefixes" validate:"required,min=1,dive,startswith=/" yaml:"prefixes"`

	// FSDir is the root of the mock tree. Relative paths resolve against
	// the working directory. Empty disables the filesystem surface.
	FSDir string `mapstructure:"fs_dir" yaml:"fs_dir,omitempty"`

	// EnableWS turns on WebSocket upgrade handling under the prefixes
	EnableWS bool `mapstructure:"enable_ws" yaml:"enable_ws"`

	// Delay postpones every response. Routes may override it.
	Delay time.Duration `mapstructure:"delay" yaml:"delay,omitempty"`

	// GatewayTimeout bounds the whole pipeline per request; on expiry the
	// response becomes a 504 envelope. Zero disables the timer.
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout" yaml:"gateway_timeout,omitempty"`

	// UnmatchedAction decides what happens to requests under a prefix that
	// nothing answers
	// Valid values: "404" (error envelope), "forward" (hand to the host)
	UnmatchedAction string `mapstructure:"unmatched_action" validate:"omitempty,oneof=404 forward" yaml:"unmatched_action,omitempty"`

	// Parser controls request body parsing
	Parser ParserConfig `mapstructure:"parser" yaml:"parser"`

	// Pagination and Filters apply to filesystem responses, keyed by
	// upper case method or "ALL"
	Pagination map[string]*listing.Pagination `mapstructure:"pagination" yaml:"pagination,omitempty"`
	Filters    map[string]*listing.Filters    `mapstructure:"filters" yaml:"filters,omitempty"`

	// Routes are declarative filesystem-delegate routes, scanned in order
	Routes []RouteConfig `mapstructure:"routes" yaml:"routes,omitempty"`
}

// ParserConfig controls request body parsing.
type ParserConfig struct {
	// Disabled skips body parsing entirely; handlers see the raw body
	Disabled bool `mapstructure:"disabled" yaml:"disabled"`

	// MaxBodySize caps request bodies read into memory
	// Supports human-readable formats: "10Mi", "512Ki", "1MB"
	// Default: 10MiB
	MaxBodySize bytesize.ByteSize `mapstructure:"max_body_size" yaml:"max_body_size,omitempty"`
}

// RouteConfig is a declarative filesystem-delegate route. It maps onto a
// rest.Handler whose FS handle carries the pre-transform replacements;
// custom handler functions cannot be expressed in a file.
type RouteConfig struct {
	// Pattern is the route pattern relative to the prefix, e.g.
	// "/users/{id}/friends"
	Pattern string `mapstructure:"pattern" validate:"required,startswith=/" yaml:"pattern"`

	// Method is the HTTP method the route answers
	// Default: GET
	Method string `mapstructure:"method" validate:"omitempty,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS get post put patch delete head options" yaml:"method,omitempty"`

	// Disabled skips the route while keeping it in the file
	Disabled bool `mapstructure:"disabled" yaml:"disabled,omitempty"`

	// Delay postpones this route's response; overrides the global delay
	Delay time.Duration `mapstructure:"delay" yaml:"delay,omitempty"`

	// PreReplace rewrites the lookup path before filesystem resolution.
	// Each entry replaces the first occurrence of its search string.
	PreReplace []rest.Replacement `mapstructure:"pre_replace" yaml:"pre_replace,omitempty"`

	// Pagination and Filters override or extend the global directives for
	// this route
	Pagination *listing.Pagination `mapstructure:"pagination" yaml:"pagination,omitempty"`
	Filters    *listing.Filters    `mapstructure:"filters" yaml:"filters,omitempty"`
}

// Load reads the configuration at configPath and returns it merged with
// environment overrides and built-in defaults. Precedence, highest first:
// DEVMOCK_* environment variables (DEVMOCK_LOGGING_LEVEL=DEBUG), the file,
// the defaults.
//
// An empty configPath consults the default location, and a missing file
// there is not an error: the defaults alone are a working configuration, so
// the server comes up with zero setup.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEVMOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	switch err := v.ReadInConfig(); {
	case err == nil:
	case isMissingConfigFile(err):
		return GetDefaultConfig(), nil
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The file only has to mention what it changes.
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// isMissingConfigFile reports whether err means no config file could be
// found. Viper signals a failed search with its own error type; an explicit
// path that does not exist surfaces as an *os.PathError instead.
func isMissingConfigFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || os.IsNotExist(err)
}

// MustLoad is Load for commands that need an existing file. Where Load
// quietly falls back to the defaults, MustLoad tells the user how to create
// the missing file instead.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file at %s\n\n"+
				"Create one with:\n"+
				"  devmock init\n\n"+
				"or point at an existing file:\n"+
				"  devmock <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Create it with:\n"+
			"  devmock init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories as
// needed.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// decodeHooks converts the string forms used in config files into the typed
// fields: "10Mi" into a bytesize.ByteSize, "30s" into a time.Duration.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeHook(),
		durationHook(),
	)
}

func byteSizeHook() mapstructure.DecodeHookFunc {
	byteSizeType := reflect.TypeOf(bytesize.ByteSize(0))
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != byteSizeType {
			return data, nil
		}

		switch v := reflect.ValueOf(data); v.Kind() {
		case reflect.String:
			return bytesize.Parse(v.String())
		case reflect.Int, reflect.Int32, reflect.Int64:
			return bytesize.ByteSize(v.Int()), nil
		case reflect.Uint, reflect.Uint32, reflect.Uint64:
			return bytesize.ByteSize(v.Uint()), nil
		case reflect.Float64:
			// The YAML decoder hands numbers over as float64.
			return bytesize.ByteSize(v.Float()), nil
		}

		return data, nil
	}
}

func durationHook() mapstructure.DecodeHookFunc {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType {
			return data, nil
		}

		switch v := reflect.ValueOf(data); v.Kind() {
		case reflect.String:
			return time.ParseDuration(v.String())
		case reflect.Int, reflect.Int64:
			// Bare integers count nanoseconds.
			return time.Duration(v.Int()), nil
		case reflect.Float64:
			return time.Duration(v.Float()), nil
		}

		return data, nil
	}
}

// getConfigDir resolves the per-user configuration directory following the
// XDG convention, falling back to the working directory when no home
// directory is known.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "devmock")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "devmock")
}

// GetDefaultConfigPath is where Load looks when no --config flag is given.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file sits at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir exposes the resolved configuration directory for the init
// command.
func GetConfigDir() string {
	return getConfigDir()
}
