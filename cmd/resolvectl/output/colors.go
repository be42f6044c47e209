// Package output provides console formatting and TTY-gated colorization
// for the resolvectl CLI.
package output

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Color schemes for the different message classes resolvectl prints.
var (
	ColorSuccess = color.New(color.FgGreen)
	ColorError   = color.New(color.FgRed)
	ColorWarning = color.New(color.FgYellow)
	ColorInfo    = color.New(color.FgCyan)
	ColorDebug   = color.New(color.FgWhite)
	ColorHeader  = color.New(color.Bold, color.FgWhite)
)

// IsColorEnabled reports whether color output should be used for f: f must
// be a real terminal, NO_COLOR must be unset, and TERM must not say "dumb".
func IsColorEnabled(f *os.File) bool {
	if !isTerminal(f) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if t := os.Getenv("TERM"); t == "dumb" || t == "" {
		return false
	}
	return true
}

// isTerminal reports whether f is a terminal, using golang.org/x/term
// rather than the raw ModeCharDevice check so the same detector also backs
// terminal-width-aware output later.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// DisableColors turns off all color output process-wide.
func DisableColors() {
	color.NoColor = true
}

// EnableColors turns on color output process-wide.
func EnableColors() {
	color.NoColor = false
}
