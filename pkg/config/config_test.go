package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devmock/devmock/internal/bytesize"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Minimal config; everything else comes from defaults
	configContent := `
logging:
  level: "INFO"

engine:
  fs_dir: "` + yamlSafePath(tmpDir) + `/mock"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default server port 8080, got %d", cfg.Server.Port)
	}
	if len(cfg.Engine.Prefixes) != 1 || cfg.Engine.Prefixes[0] != "/api" {
		t.Errorf("Expected default prefixes [/api], got %v", cfg.Engine.Prefixes)
	}
	if cfg.Engine.UnmatchedAction != "404" {
		t.Errorf("Expected default unmatched_action '404', got %q", cfg.Engine.UnmatchedAction)
	}
	if cfg.Engine.Parser.MaxBodySize != 10*bytesize.MiB {
		t.Errorf("Expected default max body size 10Mi, got %v", cfg.Engine.Parser.MaxBodySize)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns a valid default config.
	// This allows running the server without a config file for quick testing.
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}

	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Engine.FSDir != "./mock" {
		t.Errorf("Expected default fs_dir './mock', got %q", cfg.Engine.FSDir)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_Durations(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
engine:
  delay: 150ms
  gateway_timeout: 5s
  routes:
    - pattern: /users/{id}
      method: get
      delay: 2s
shutdown_timeout: 1m
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Engine.Delay != 150*time.Millisecond {
		t.Errorf("Expected delay 150ms, got %v", cfg.Engine.Delay)
	}
	if cfg.Engine.GatewayTimeout != 5*time.Second {
		t.Errorf("Expected gateway_timeout 5s, got %v", cfg.Engine.GatewayTimeout)
	}
	if cfg.ShutdownTimeout != time.Minute {
		t.Errorf("Expected shutdown_timeout 1m, got %v", cfg.ShutdownTimeout)
	}
	if len(cfg.Engine.Routes) != 1 {
		t.Fatalf("Expected 1 route, got %d", len(cfg.Engine.Routes))
	}
	if cfg.Engine.Routes[0].Delay != 2*time.Second {
		t.Errorf("Expected route delay 2s, got %v", cfg.Engine.Routes[0].Delay)
	}
	if cfg.Engine.Routes[0].Method != "GET" {
		t.Errorf("Expected route method normalized to GET, got %q", cfg.Engine.Routes[0].Method)
	}
}

func TestLoad_MaxBodySize(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
engine:
  parser:
    max_body_size: 512Ki
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Engine.Parser.MaxBodySize != 512*bytesize.KiB {
		t.Errorf("Expected max body size 512Ki, got %v", cfg.Engine.Parser.MaxBodySize)
	}
}

func TestLoad_ListingDirectives(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
engine:
  pagination:
    GET:
      source: query
      limit: limit
      skip: skip
      sort: sort
      order: order
  filters:
    ALL:
      source: query
      rules:
        - key: name
          type: string
          comparison: regex
  routes:
    - pattern: /people/{id}
      method: GET
      pre_replace:
        - search: people
          replace: users
      pagination:
        mode: none
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	pag := cfg.Engine.Pagination["GET"]
	if pag == nil || pag.Limit != "limit" || pag.Sort != "sort" {
		t.Fatalf("Pagination directives not decoded: %+v", pag)
	}
	fil := cfg.Engine.Filters["ALL"]
	if fil == nil || len(fil.Rules) != 1 || fil.Rules[0].Key != "name" {
		t.Fatalf("Filter rules not decoded: %+v", fil)
	}
	if len(cfg.Engine.Routes) != 1 {
		t.Fatalf("Expected 1 route, got %d", len(cfg.Engine.Routes))
	}
	route := cfg.Engine.Routes[0]
	if len(route.PreReplace) != 1 || route.PreReplace[0].Search != "people" {
		t.Fatalf("Route pre_replace not decoded: %+v", route.PreReplace)
	}
	if route.Pagination == nil || route.Pagination.Mode != "none" {
		t.Fatalf("Route pagination mode not decoded: %+v", route.Pagination)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if !cfg.Engine.EnableWS {
		t.Error("Expected WebSocket support enabled by default")
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Default config should validate, got: %v", err)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if filepath.Base(dir) != "devmock" {
		t.Errorf("Expected directory name 'devmock', got %q", filepath.Base(dir))
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	_ = os.Setenv("DEVMOCK_LOGGING_LEVEL", "ERROR")
	_ = os.Setenv("DEVMOCK_SERVER_PORT", "9090")
	defer func() {
		_ = os.Unsetenv("DEVMOCK_LOGGING_LEVEL")
		_ = os.Unsetenv("DEVMOCK_SERVER_PORT")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

server:
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Environment variables override config file values
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090 from env var, got %d", cfg.Server.Port)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "saved.yaml")

	cfg := GetDefaultConfig()
	cfg.Engine.Prefixes = []string{"/api", "/v2"}
	cfg.Engine.GatewayTimeout = 3 * time.Second

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if len(loaded.Engine.Prefixes) != 2 || loaded.Engine.Prefixes[1] != "/v2" {
		t.Errorf("Prefixes did not round-trip: %v", loaded.Engine.Prefixes)
	}
	if loaded.Engine.GatewayTimeout != 3*time.Second {
		t.Errorf("GatewayTimeout did not round-trip: %v", loaded.Engine.GatewayTimeout)
	}
	if loaded.Engine.Parser.MaxBodySize != cfg.Engine.Parser.MaxBodySize {
		t.Errorf("MaxBodySize did not round-trip: %v != %v",
			loaded.Engine.Parser.MaxBodySize, cfg.Engine.Parser.MaxBodySize)
	}
}
