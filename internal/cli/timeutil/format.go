// Package timeutil formats timestamps and durations for terminal output.
package timeutil

import (
	"fmt"
	"time"
)

// localLayout renders times like "Mon Jan 2 15:04:05 2006".
const localLayout = "Mon Jan 2 15:04:05 2006"

// FormatUptime rewrites a Go duration string ("26h3m9s") into day-granular
// form ("1d 2h 3m 9s"). Unparseable input is returned as is.
func FormatUptime(uptime string) string {
	d, err := time.ParseDuration(uptime)
	if err != nil {
		return uptime
	}

	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatTime converts an RFC3339 timestamp to the local timezone for display.
// Unparseable input is returned as is.
func FormatTime(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}
	return t.Local().Format(localLayout)
}
