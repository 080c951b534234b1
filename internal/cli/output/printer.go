package output

import (
	"fmt"
	"io"
	"os"
)

const (
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiReset  = "\033[0m"
)

// Printer writes status lines for commands. Color is a construction-time
// choice so output stays stable when piped.
type Printer struct {
	out   io.Writer
	color bool
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer, color bool) *Printer {
	return &Printer{out: out, color: color}
}

// DefaultPrinter writes to stdout. Color is on unless NO_COLOR is set.
func DefaultPrinter() *Printer {
	_, noColor := os.LookupEnv("NO_COLOR")
	return NewPrinter(os.Stdout, !noColor)
}

// Println writes its arguments followed by a newline.
func (p *Printer) Println(args ...any) {
	_, _ = fmt.Fprintln(p.out, args...)
}

// Printf writes a formatted message.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Success writes msg in green.
func (p *Printer) Success(msg string) {
	p.status(ansiGreen, msg)
}

// Warning writes msg in yellow.
func (p *Printer) Warning(msg string) {
	p.status(ansiYellow, msg)
}

// Error writes msg in red.
func (p *Printer) Error(msg string) {
	p.status(ansiRed, msg)
}

func (p *Printer) status(color, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "%s%s%s\n", color, msg, ansiReset)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}
