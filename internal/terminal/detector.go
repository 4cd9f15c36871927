// Package terminal provides helpers for detecting whether the helper's
// diagnostics are going to an interactive terminal or are being captured by
// the web server.
package terminal

import (
	"os"

	"golang.org/x/term"
)

// Detector reports whether standard error is connected to a terminal.
type Detector interface {
	IsTerminal() bool
}

// StderrDetector implements Detector for the process's real standard error.
type StderrDetector struct{}

// NewStderrDetector creates a detector for the current process
func NewStderrDetector() *StderrDetector {
	return &StderrDetector{}
}

// IsTerminal checks if stderr is connected to a terminal. This uses
// golang.org/x/term.IsTerminal() which is reliable on Unix systems.
func (d *StderrDetector) IsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
