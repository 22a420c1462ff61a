// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package console writes user-facing status lines to stderr.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// OutputState holds output configuration. Status lines go to Err so
// stdout stays reserved for command results.
type OutputState struct {
	Verbose bool
	JSON    bool
	Quiet   bool

	Err io.Writer
}

// DefaultOutput is the process-wide console.
var DefaultOutput = &OutputState{Err: os.Stderr} //nolint:gochecknoglobals

// SetMode configures output mode.
func (o *OutputState) SetMode(verbose, json, quiet bool) {
	o.Verbose = verbose
	o.JSON = json
	o.Quiet = quiet
}

func (o *OutputState) writer() io.Writer {
	if o.Err == nil {
		return os.Stderr
	}

	return o.Err
}

// IsTTY checks if fd is a terminal (not piped/redirected).
func (o *OutputState) IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// Interactive reports whether both stdin and stdout are terminals.
func (o *OutputState) Interactive() bool {
	return o.IsTTY(os.Stdin.Fd()) && o.IsTTY(os.Stdout.Fd())
}

// Bold formats text with bold when in TTY, uppercase when piped.
func (o *OutputState) Bold(text string) string {
	if o.JSON {
		return text
	}

	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return text
	}

	if o.IsTTY(os.Stdout.Fd()) {
		return "\033[1m" + text + "\033[0m"
	}

	return strings.ToUpper(text)
}

// Progressf writes progress messages (only if verbose and not JSON).
func (o *OutputState) Progressf(format string, args ...any) {
	if o.Verbose && !o.JSON {
		_, _ = fmt.Fprintf(o.writer(), format+"\n", args...)
	}
}

// Successf writes success messages (only if neither JSON nor quiet).
func (o *OutputState) Successf(format string, args ...any) {
	if !o.JSON && !o.Quiet {
		_, _ = fmt.Fprintf(o.writer(), "✓ "+format+"\n", args...)
	}
}

// Warningf writes warning messages (suppressed when quiet).
func (o *OutputState) Warningf(format string, args ...any) {
	if !o.Quiet {
		_, _ = fmt.Fprintf(o.writer(), "⚠ "+format+"\n", args...)
	}
}

// Errorf writes error messages (always visible).
func (o *OutputState) Errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.writer(), "✗ "+format+"\n", args...)
}
