package commands

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/devmock/devmock/internal/cli/health"
	"github.com/devmock/devmock/internal/cli/output"
	"github.com/devmock/devmock/internal/cli/timeutil"
)

var (
	statusServer string
	statusOutput string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the status of a running devmock server.

This command checks the server health endpoint and displays status,
uptime and version information. The server address is derived from the
configuration unless --server is given.

Examples:
  # Check the locally configured server
  devmock status

  # Check an explicit address
  devmock status --server http://localhost:9000

  # Output as JSON
  devmock status -o json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "", "Server URL (default derived from configuration)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus is the status command's own view of a server, flattened for
// rendering in any output format.
type ServerStatus struct {
	Server    string `json:"server" yaml:"server"`
	Status    string `json:"status" yaml:"status"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Service   string `json:"service,omitempty" yaml:"service,omitempty"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	serverURL := statusServer
	if serverURL == "" {
		cfg, err := loadConfig(GetConfigFile())
		if err != nil {
			return err
		}
		serverURL = baseURL(cfg.Server.Host, cfg.Server.Port)
	}

	status := fetchStatus(serverURL)

	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	}
	printStatusTable(status)
	return nil
}

// baseURL turns a listen address into something a local client can dial;
// wildcard hosts map to localhost.
func baseURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// fetchStatus asks the health endpoint and folds the answer, or the failure
// to get one, into a ServerStatus.
func fetchStatus(serverURL string) ServerStatus {
	status := ServerStatus{Server: serverURL, Status: "unreachable"}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	var hr health.Response
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		status.Status = "unknown"
		status.Error = "failed to parse health response"
		return status
	}

	status.Status = hr.Status
	status.Healthy = hr.Healthy()
	status.Service = hr.Data.Service
	status.Version = hr.Data.Version
	status.StartedAt = hr.Data.StartedAt
	status.Uptime = hr.Data.Uptime
	status.Error = hr.Error
	return status
}

func printStatusTable(status ServerStatus) {
	fmt.Println()
	fmt.Println("DevMock Server Status")
	fmt.Println("=====================")
	fmt.Println()

	rows := []struct{ label, value string }{
		{"Server", status.Server},
		{"Status", statusLine(status)},
		{"Service", status.Service},
		{"Version", status.Version},
		{"Started", formatIfSet(timeutil.FormatTime, status.StartedAt)},
		{"Uptime", formatIfSet(timeutil.FormatUptime, status.Uptime)},
		{"Error", status.Error},
	}
	for _, row := range rows {
		if row.value == "" {
			continue
		}
		fmt.Printf("  %-11s %s\n", row.label+":", row.value)
	}
	fmt.Println()
}

// statusLine colors the status dot: green while healthy, red when the
// server cannot be reached, yellow for anything in between.
func statusLine(status ServerStatus) string {
	switch {
	case status.Healthy:
		return fmt.Sprintf("\033[32m● %s\033[0m", status.Status)
	case status.Status == "unreachable":
		return fmt.Sprintf("\033[31m○ %s\033[0m", status.Status)
	}
	return fmt.Sprintf("\033[33m● %s\033[0m", status.Status)
}

func formatIfSet(format func(string) string, value string) string {
	if value == "" {
		return ""
	}
	return format(value)
}
