// Package diagnostics prints leveled, coloured progress output for the keel CLI
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// Level represents the level of diagnostic output
type Level int

const (
	Silent Level = iota
	Error
	Warn
	Info
	Verbose
	Debug
)

// Reporter provides structured, user-friendly output
type Reporter struct {
	level  Level
	output io.Writer
	errOut io.Writer
	indent int
}

// New creates a reporter writing to stdout and stderr
func New(level Level) *Reporter {
	return NewWithWriters(level, os.Stdout, os.Stderr)
}

// NewWithWriters creates a reporter writing to the given writers. Colours
// follow fatih/color's terminal detection (NO_COLOR disables them).
func NewWithWriters(level Level, out, errOut io.Writer) *Reporter {
	return &Reporter{level: level, output: out, errOut: errOut}
}

// Level returns the reporter level
func (r *Reporter) Level() Level {
	return r.level
}

// Error outputs error messages (always shown unless silent)
func (r *Reporter) Error(format string, args ...any) {
	if r.level >= Error {
		r.write(r.errOut, "ERROR", color.FgRed, format, args...)
	}
}

// Warn outputs warning messages
func (r *Reporter) Warn(format string, args ...any) {
	if r.level >= Warn {
		r.write(r.output, "WARN", color.FgYellow, format, args...)
	}
}

// Info outputs informational messages
func (r *Reporter) Info(format string, args ...any) {
	if r.level >= Info {
		r.write(r.output, "INFO", color.FgBlue, format, args...)
	}
}

// Success outputs success messages
func (r *Reporter) Success(format string, args ...any) {
	if r.level >= Info {
		r.write(r.output, "SUCCESS", color.FgGreen, format, args...)
	}
}

// Verbose outputs detailed messages (verbose mode only)
func (r *Reporter) Verbose(format string, args ...any) {
	if r.level >= Verbose {
		r.write(r.output, "VERBOSE", color.FgHiBlack, format, args...)
	}
}

// Debug outputs debug messages
func (r *Reporter) Debug(format string, args ...any) {
	if r.level >= Debug {
		r.write(r.output, "DEBUG", color.FgMagenta, format, args...)
	}
}

// Section prints a header line
func (r *Reporter) Section(title string) {
	if r.level >= Info {
		color.New(color.FgCyan).Fprintf(r.output, "keel: %s\n", title)
	}
}

// Item prints a finished step with a checkmark
func (r *Reporter) Item(format string, args ...any) {
	if r.level >= Info {
		color.New(color.FgGreen).Fprint(r.output, "✓ ")
		fmt.Fprintf(r.output, "%s%s\n", r.prefix(), fmt.Sprintf(format, args...))
	}
}

// List outputs a bulleted list item
func (r *Reporter) List(format string, args ...any) {
	if r.level >= Info {
		fmt.Fprintf(r.output, "%s- %s\n", r.prefix(), fmt.Sprintf(format, args...))
	}
}

// Indent increases the indentation level
func (r *Reporter) Indent() {
	r.indent++
}

// Unindent decreases the indentation level
func (r *Reporter) Unindent() {
	if r.indent > 0 {
		r.indent--
	}
}

// Summary outputs a final summary, keys sorted
func (r *Reporter) Summary(title string, stats map[string]any) {
	if r.level < Info {
		return
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(r.output, "\n%s\n", title)
	for _, k := range keys {
		fmt.Fprintf(r.output, "   %s: %v\n", k, stats[k])
	}
}

func (r *Reporter) write(w io.Writer, level string, attr color.Attribute, format string, args ...any) {
	var b strings.Builder
	b.WriteString(r.prefix())
	b.WriteString(color.New(attr).Sprintf("[%s]", level))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf(format, args...))
	b.WriteString("\n")
	fmt.Fprint(w, b.String())
}

func (r *Reporter) prefix() string {
	return strings.Repeat("  ", r.indent)
}
