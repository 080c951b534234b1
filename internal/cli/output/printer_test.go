package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinter_StatusLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Success("written")
	p.Warning("careful")
	p.Error("broken")

	out := buf.String()
	assert.Contains(t, out, ansiGreen+"written"+ansiReset)
	assert.Contains(t, out, ansiYellow+"careful"+ansiReset)
	assert.Contains(t, out, ansiRed+"broken"+ansiReset)
}

func TestPrinter_NoColor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Success("written")
	p.Println("plain", "line")
	p.Printf("%d files\n", 3)

	out := buf.String()
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, "written\n")
	assert.Contains(t, out, "plain line\n")
	assert.Contains(t, out, "3 files\n")
}

func TestDefaultPrinter_HonorsNoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, DefaultPrinter().color)
}
