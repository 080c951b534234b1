// Package logger is the process-wide structured logging facade. It fronts
// log/slog with a console handler for terminals and a JSON handler for
// machine consumption, and carries request identifiers through contexts so
// engine internals log lines that correlate with the access log.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Config selects the log level, output format and destination.
type Config struct {
	Level  string // DEBUG, INFO, WARN or ERROR
	Format string // text or json
	Output string // stdout, stderr or a file path
}

// The active logger swaps atomically so the logging hot path takes no lock.
// Level lives in a shared LevelVar, which means SetLevel never rebuilds the
// handler chain.
var (
	active  atomic.Pointer[slog.Logger]
	leveler slog.LevelVar

	mu     sync.Mutex // guards sink, asJSON, color and rebuilds
	sink   io.Writer
	asJSON bool
	color  bool
)

func init() {
	sink = os.Stdout
	color = isTerminal(os.Stdout.Fd())
	rebuild()
}

// rebuild swaps in a logger for the current sink and format. Callers hold mu
// (init runs before any other goroutine exists).
func rebuild() {
	opts := &slog.HandlerOptions{Level: &leveler}
	var h slog.Handler
	if asJSON {
		h = slog.NewJSONHandler(sink, opts)
	} else {
		h = newConsoleHandler(sink, &leveler, color)
	}
	active.Store(slog.New(h))
}

// Init applies cfg. Empty fields keep their current setting, so a partial
// config composes with the defaults chosen at startup.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(cfg.Output) {
	case "":
	case "stdout":
		sink = os.Stdout
		color = isTerminal(os.Stdout.Fd())
	case "stderr":
		sink = os.Stderr
		color = isTerminal(os.Stderr.Fd())
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %q: %w", cfg.Output, err)
		}
		sink = f
		color = false
	}

	if cfg.Level != "" {
		lvl, ok := parseLevel(cfg.Level)
		if !ok {
			return fmt.Errorf("unknown log level %q", cfg.Level)
		}
		leveler.Set(lvl)
	}

	if cfg.Format != "" {
		switch strings.ToLower(cfg.Format) {
		case "text":
			asJSON = false
		case "json":
			asJSON = true
		default:
			return fmt.Errorf("unknown log format %q (text or json)", cfg.Format)
		}
	}

	rebuild()
	return nil
}

// SetOutput redirects all logging to w with color disabled. Tests and
// embedding hosts use it to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sink = w
	color = false
	rebuild()
}

// SetLevel adjusts the minimum level at runtime. Unknown names are ignored.
func SetLevel(level string) {
	if lvl, ok := parseLevel(level); ok {
		leveler.Set(lvl)
	}
}

// SetFormat switches between "text" and "json" output. Anything else is
// ignored.
func SetFormat(format string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(format) {
	case "text":
		asJSON = false
	case "json":
		asJSON = true
	default:
		return
	}
	rebuild()
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return 0, false
}

// Debug logs msg with alternating key/value fields.
func Debug(msg string, args ...any) { active.Load().Debug(msg, args...) }

// Info logs msg with alternating key/value fields.
func Info(msg string, args ...any) { active.Load().Info(msg, args...) }

// Warn logs msg with alternating key/value fields.
func Warn(msg string, args ...any) { active.Load().Warn(msg, args...) }

// Error logs msg with alternating key/value fields.
func Error(msg string, args ...any) { active.Load().Error(msg, args...) }

// DebugCtx logs msg prefixed with the request fields carried by ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	active.Load().Debug(msg, withRequestFields(ctx, args)...)
}

// InfoCtx logs msg prefixed with the request fields carried by ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	active.Load().Info(msg, withRequestFields(ctx, args)...)
}

// WarnCtx logs msg prefixed with the request fields carried by ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	active.Load().Warn(msg, withRequestFields(ctx, args)...)
}

// ErrorCtx logs msg prefixed with the request fields carried by ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	active.Load().Error(msg, withRequestFields(ctx, args)...)
}

func withRequestFields(ctx context.Context, args []any) []any {
	rc := FromContext(ctx)
	if rc == nil {
		return args
	}
	fields := rc.fields()
	if len(fields) == 0 {
		return args
	}
	return append(fields, args...)
}
