// Package display implements the live console echo of the backup run. Log
// lines carry the full operational record; the console shows the same
// decision points with color when the terminal supports it.
package display

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Console writes colorized status lines to a terminal, degrading to plain
// text when color is unsupported or disabled.
type Console struct {
	out       io.Writer
	colorized bool

	success *color.Color
	warning *color.Color
	failure *color.Color
	info    *color.Color
}

// NewConsole creates a console writing to stdout with terminal detection.
func NewConsole(noColor bool) *Console {
	return newConsole(os.Stdout, !noColor && detectColorSupport())
}

// NewConsoleWriter creates a console writing to an arbitrary writer; color
// is applied only when enabled explicitly.
func NewConsoleWriter(out io.Writer, colorized bool) *Console {
	return newConsole(out, colorized)
}

func newConsole(out io.Writer, colorized bool) *Console {
	return &Console{
		out:       out,
		colorized: colorized,
		success:   color.New(color.FgGreen),
		warning:   color.New(color.FgYellow),
		failure:   color.New(color.FgRed),
		info:      color.New(color.FgCyan),
	}
}

// detectColorSupport checks if the terminal supports colors
func detectColorSupport() bool {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// Info prints an informational status line.
func (c *Console) Info(format string, args ...interface{}) {
	c.line(c.info, "", format, args...)
}

// Success prints a success status line.
func (c *Console) Success(format string, args ...interface{}) {
	c.line(c.success, "OK: ", format, args...)
}

// Warn prints a warning status line.
func (c *Console) Warn(format string, args ...interface{}) {
	c.line(c.warning, "WARN: ", format, args...)
}

// Error prints a failure status line.
func (c *Console) Error(format string, args ...interface{}) {
	c.line(c.failure, "ERROR: ", format, args...)
}

func (c *Console) line(col *color.Color, prefix, format string, args ...interface{}) {
	msg := prefix + fmt.Sprintf(format, args...)
	if c.colorized {
		fmt.Fprintln(c.out, col.Sprint(msg))
		return
	}
	fmt.Fprintln(c.out, msg)
}
