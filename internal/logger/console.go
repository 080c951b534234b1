package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// consoleHandler renders records as single timestamped key=value lines.
// JSON mode goes through slog's stock handler; this one exists so terminals
// get compact colored lines instead of logfmt quoting.
//
// Attributes bound with WithAttrs are rendered once up front, and nested
// groups flatten into dotted keys.
type consoleHandler struct {
	out   io.Writer
	mu    *sync.Mutex // shared across WithAttrs/WithGroup clones
	level slog.Leveler
	color bool

	bound []byte // attrs from WithAttrs, already rendered
	group string // dotted prefix for attr keys
}

func newConsoleHandler(out io.Writer, level slog.Leveler, color bool) *consoleHandler {
	return &consoleHandler{out: out, mu: new(sync.Mutex), level: level, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, l slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}
	return l >= min
}

func (h *consoleHandler) Handle(_ context.Context, rec slog.Record) error {
	buf := make([]byte, 0, 256)
	buf = rec.Time.AppendFormat(buf, "2006-01-02 15:04:05.000")
	buf = append(buf, ' ')
	buf = h.appendLevel(buf, rec.Level)
	buf = append(buf, ' ')
	buf = append(buf, rec.Message...)
	buf = append(buf, h.bound...)
	rec.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := *h
	c.bound = append([]byte(nil), h.bound...)
	for _, a := range attrs {
		c.bound = c.appendAttr(c.bound, a)
	}
	return &c
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = joinKey(h.group, name)
	return &c
}

// appendLevel writes a fixed-width level tag so messages align in columns.
func (h *consoleHandler) appendLevel(buf []byte, l slog.Level) []byte {
	tag, tint := levelTag(l)
	if !h.color {
		return append(buf, tag...)
	}
	buf = append(buf, tint...)
	buf = append(buf, tag...)
	return append(buf, colorReset...)
}

func levelTag(l slog.Level) (tag, tint string) {
	switch {
	case l >= slog.LevelError:
		return "ERROR", colorRed
	case l >= slog.LevelWarn:
		return "WARN ", colorYellow
	case l >= slog.LevelInfo:
		return "INFO ", colorGreen
	default:
		return "DEBUG", colorGray
	}
}

func (h *consoleHandler) appendAttr(buf []byte, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		// h.group applies once the members reach the leaf branch below
		for _, member := range a.Value.Group() {
			member.Key = joinKey(a.Key, member.Key)
			buf = h.appendAttr(buf, member)
		}
		return buf
	}

	key := joinKey(h.group, a.Key)
	buf = append(buf, ' ')
	if h.color {
		buf = append(buf, colorCyan...)
		buf = append(buf, key...)
		buf = append(buf, colorReset...)
	} else {
		buf = append(buf, key...)
	}
	buf = append(buf, '=')
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		return append(buf, v.String()...)
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339)
	default:
		return fmt.Appendf(buf, "%v", v.Any())
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}
