package commands

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devmock/devmock/internal/cli/output"
	"github.com/devmock/devmock/pkg/config"
)

var routesOutput string

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Show the effective mock routes",
	Long: `Show the routes the server would answer with the current configuration.

The listing has two parts: the declarative route overrides from the
configuration file, and the endpoints implied by the JSON files in the
mock tree.

Examples:
  # Show routes as a table
  devmock routes

  # Show routes as JSON
  devmock routes -o json`,
	RunE: runRoutes,
}

func init() {
	routesCmd.Flags().StringVarP(&routesOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// routeInfo is a declarative route override for display.
type routeInfo struct {
	Pattern    string `json:"pattern" yaml:"pattern"`
	Method     string `json:"method" yaml:"method"`
	Delay      string `json:"delay,omitempty" yaml:"delay,omitempty"`
	Pagination string `json:"pagination,omitempty" yaml:"pagination,omitempty"`
	Filters    int    `json:"filters,omitempty" yaml:"filters,omitempty"`
	Rewrites   int    `json:"rewrites,omitempty" yaml:"rewrites,omitempty"`
	Disabled   bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// endpointInfo is a mock-tree derived endpoint for display.
type endpointInfo struct {
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
	File   string `json:"file" yaml:"file"`
}

// routesReport is the full payload for JSON and YAML output.
type routesReport struct {
	Prefixes  []string       `json:"prefixes" yaml:"prefixes"`
	FSDir     string         `json:"fs_dir" yaml:"fs_dir"`
	Routes    []routeInfo    `json:"routes" yaml:"routes"`
	Endpoints []endpointInfo `json:"endpoints" yaml:"endpoints"`
}

// routeList renders route overrides as a table.
type routeList []routeInfo

// Headers implements TableRenderer.
func (rl routeList) Headers() []string {
	return []string{"PATTERN", "METHOD", "DELAY", "PAGINATION", "FILTERS", "REWRITES", "DISABLED"}
}

// Rows implements TableRenderer.
func (rl routeList) Rows() [][]string {
	rows := make([][]string, 0, len(rl))
	for _, r := range rl {
		rows = append(rows, []string{
			r.Pattern,
			r.Method,
			emptyOr(r.Delay, "-"),
			emptyOr(r.Pagination, "-"),
			countOr(r.Filters),
			countOr(r.Rewrites),
			boolToYesNo(r.Disabled),
		})
	}
	return rows
}

// endpointList renders filesystem endpoints as a table.
type endpointList []endpointInfo

// Headers implements TableRenderer.
func (el endpointList) Headers() []string {
	return []string{"METHOD", "PATH", "FILE"}
}

// Rows implements TableRenderer.
func (el endpointList) Rows() [][]string {
	rows := make([][]string, 0, len(el))
	for _, e := range el {
		rows = append(rows, []string{e.Method, e.Path, e.File})
	}
	return rows
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(GetConfigFile())
	if err != nil {
		return err
	}

	report := routesReport{
		Prefixes: cfg.Engine.Prefixes,
		FSDir:    cfg.Engine.FSDir,
	}
	for _, rc := range cfg.Engine.Routes {
		report.Routes = append(report.Routes, newRouteInfo(rc))
	}

	if st, err := os.Stat(cfg.Engine.FSDir); err == nil && st.IsDir() {
		report.Endpoints, err = collectEndpoints(cfg.Engine.FSDir, cfg.Engine.Prefixes)
		if err != nil {
			return fmt.Errorf("failed to scan mock tree: %w", err)
		}
	}

	format, err := output.ParseFormat(routesOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, report)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, report)
	default:
		printRoutesTables(report)
	}
	return nil
}

func newRouteInfo(rc config.RouteConfig) routeInfo {
	info := routeInfo{
		Pattern:  rc.Pattern,
		Method:   rc.Method,
		Disabled: rc.Disabled,
		Rewrites: len(rc.PreReplace),
	}
	if info.Method == "" {
		info.Method = http.MethodGet
	}
	if rc.Delay > 0 {
		info.Delay = rc.Delay.String()
	}
	if rc.Pagination != nil {
		info.Pagination = string(rc.Pagination.Mode)
		if info.Pagination == "" {
			info.Pagination = "inclusive"
		}
	}
	if rc.Filters != nil {
		info.Filters = len(rc.Filters.Rules)
	}
	return info
}

// collectEndpoints walks the mock tree and derives the GET endpoints the
// filesystem resolver would serve. index.json files answer for their
// directory; every other JSON file answers for its own path.
func collectEndpoints(dir string, prefixes []string) ([]endpointInfo, error) {
	var out []endpointInfo

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		urlPath := "/" + filepath.ToSlash(strings.TrimSuffix(rel, ".json"))
		if strings.HasSuffix(urlPath, "/index") {
			urlPath = strings.TrimSuffix(urlPath, "/index")
		}

		for _, prefix := range prefixes {
			out = append(out, endpointInfo{
				Method: http.MethodGet,
				Path:   strings.TrimSuffix(prefix, "/") + urlPath,
				File:   rel,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func printRoutesTables(report routesReport) {
	if len(report.Routes) > 0 {
		fmt.Println("Configured routes:")
		_ = output.PrintTable(os.Stdout, routeList(report.Routes))
		fmt.Println()
	}

	fmt.Printf("Filesystem endpoints (%s -> %s):\n", strings.Join(report.Prefixes, ", "), report.FSDir)
	if len(report.Endpoints) == 0 {
		fmt.Println("  none - run 'devmock init' to seed an example tree")
		return
	}
	_ = output.PrintTable(os.Stdout, endpointList(report.Endpoints))
}

// boolToYesNo converts a boolean to "yes" or "no" for table display.
func boolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// emptyOr returns the value if not empty, otherwise the fallback.
func emptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func countOr(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}
