package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// InitOptions control the values written into a generated configuration
// file. The zero value is not useful; start from DefaultInitOptions.
type InitOptions struct {
	Port     int
	Prefix   string
	FSDir    string
	EnableWS bool
	LogLevel string
}

// DefaultInitOptions returns the init options matching GetDefaultConfig.
func DefaultInitOptions() InitOptions {
	return InitOptions{
		Port:     8080,
		Prefix:   "/api",
		FSDir:    "./mock",
		EnableWS: true,
		LogLevel: "INFO",
	}
}

// sampleConfigTemplate is what `devmock init` writes. Hand-authored rather
// than marshalled so durations and sizes stay human-readable and the
// commented sections document the optional surface.
const sampleConfigTemplate = `# DevMock Configuration File
#
# Generated by 'devmock init'. Edit what you need and delete the rest.
#
# Environment variables with the DEVMOCK_ prefix override file values:
#   DEVMOCK_LOGGING_LEVEL=DEBUG
#   DEVMOCK_SERVER_PORT=9000
#
# The engine section is the file-expressible subset of the Go options.
# Custom handler functions, middlewares and WebSocket handlers only exist
# on the Go API.

logging:
  level: %s     # DEBUG, INFO, WARN, ERROR
  format: text    # text, json
  output: stdout  # stdout, stderr, or a file path

server:
  port: %d
  read_timeout: 10s
  idle_timeout: 60s
  # Serve plain files for requests the engine forwards:
  # static_dir: ./public

metrics:
  enabled: false

engine:
  prefixes:
    - %s
  fs_dir: %s
  enable_ws: %t
  unmatched_action: "404"  # or: forward
  parser:
    max_body_size: 10Mi
  # delay: 100ms
  # gateway_timeout: 30s

  # Global listing directives, keyed by method or ALL:
  # pagination:
  #   GET:
  #     source: query
  #     limit: limit
  #     skip: skip
  #     sort: sort
  #     order: order
  # filters:
  #   GET:
  #     source: query
  #     rules:
  #       - key: name
  #         type: string
  #         comparison: eq

  # Declarative filesystem routes, matched in order:
  # routes:
  #   - pattern: /people/{id}
  #     method: GET
  #     pre_replace:
  #       - search: /people
  #         replace: /users

shutdown_timeout: 30s
`

// InitConfig creates a configuration file at the default location.
// Returns the path of the created file. Fails when the file already exists
// unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a configuration file at an explicit path with
// the default values.
func InitConfigToPath(path string, force bool) error {
	return WriteSampleConfig(path, DefaultInitOptions(), force)
}

// WriteSampleConfig renders the annotated sample configuration with the
// given options and writes it to path.
func WriteSampleConfig(path string, opts InitOptions, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	rendered := fmt.Sprintf(sampleConfigTemplate,
		opts.LogLevel, opts.Port, opts.Prefix, opts.FSDir, opts.EnableWS)

	if err := os.WriteFile(path, []byte(rendered), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// seedFiles is the example mock tree written by SeedMockTree. The layout
// exercises the three resolution forms: a directory index, sibling-prefix
// matching for path parameters, and a plain top-level resource.
var seedFiles = map[string]string{
	"users/index.json": `[
  {
    "id": 1,
    "name": "Ada Lovelace",
    "email": "ada@example.com",
    "age": 36,
    "active": true
  },
  {
    "id": 2,
    "name": "Grace Hopper",
    "email": "grace@example.com",
    "age": 85,
    "active": true
  },
  {
    "id": 3,
    "name": "Alan Turing",
    "email": "alan@example.com",
    "age": 41,
    "active": false
  }
]
`,
	"users/1.json": `{
  "id": 1,
  "name": "Ada Lovelace",
  "email": "ada@example.com",
  "age": 36,
  "active": true
}
`,
	"users/2.json": `{
  "id": 2,
  "name": "Grace Hopper",
  "email": "grace@example.com",
  "age": 85,
  "active": true
}
`,
	"messages.json": `[
  {"id": 1, "from": 1, "to": 2, "text": "counting machines?"},
  {"id": 2, "from": 2, "to": 1, "text": "compilers, mostly"}
]
`,
	"status.json": `{
  "status": "ok"
}
`,
}

// SeedMockTree writes the example mock tree under dir. Existing files are
// left alone so repeated runs never clobber edited mock data. Returns the
// paths it created.
func SeedMockTree(dir string) ([]string, error) {
	names := make([]string, 0, len(seedFiles))
	for name := range seedFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	var created []string
	for _, name := range names {
		target := filepath.Join(dir, filepath.FromSlash(name))
		if _, err := os.Stat(target); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return created, fmt.Errorf("failed to create mock directory: %w", err)
		}
		if err := os.WriteFile(target, []byte(seedFiles[name]), 0644); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", name, err)
		}
		created = append(created, target)
	}
	return created, nil
}
