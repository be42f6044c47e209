package output

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Verbosity controls how much resolvectl prints about a resolution run.
type Verbosity int

const (
	// VerbosityQuiet shows errors only.
	VerbosityQuiet Verbosity = iota
	// VerbosityNormal shows errors, warnings, and top-level results (default).
	VerbosityNormal
	// VerbosityDetailed adds per-artifact progress.
	VerbosityDetailed
	// VerbosityDiagnostic adds transport-level detail (repository checks,
	// cache hits, update-policy decisions).
	VerbosityDiagnostic
)

// Console is the output abstraction every resolvectl command writes
// through, gating verbosity and colorization in one place.
type Console struct {
	out       io.Writer
	err       io.Writer
	verbosity Verbosity
	mu        sync.Mutex
	colors    bool
}

// NewConsole builds a Console writing to out/err at the given verbosity.
func NewConsole(out, err io.Writer, verbosity Verbosity) *Console {
	c := &Console{out: out, err: err, verbosity: verbosity}
	if f, ok := out.(*os.File); ok {
		c.colors = IsColorEnabled(f)
	}
	if !c.colors {
		DisableColors()
	}
	return c
}

// DefaultConsole returns a Console on stdout/stderr at normal verbosity.
func DefaultConsole() *Console {
	return NewConsole(os.Stdout, os.Stderr, VerbosityNormal)
}

// ParseVerbosity maps a --verbosity flag value to a Verbosity, defaulting
// to normal for anything unrecognized.
func ParseVerbosity(s string) Verbosity {
	switch s {
	case "quiet", "q":
		return VerbosityQuiet
	case "detailed", "d":
		return VerbosityDetailed
	case "diagnostic", "diag":
		return VerbosityDiagnostic
	default:
		return VerbosityNormal
	}
}

// SetVerbosity changes the verbosity level.
func (c *Console) SetVerbosity(v Verbosity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verbosity = v
}

// Verbosity returns the current verbosity level.
func (c *Console) Verbosity() Verbosity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verbosity
}

// SetColors enables or disables color output for every Console sharing
// this process, since the underlying color.NoColor switch is global.
func (c *Console) SetColors(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors = enabled
	if enabled {
		EnableColors()
	} else {
		DisableColors()
	}
}

// Println writes a line to stdout unconditionally.
func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, a...)
}

// Printf writes formatted output to stdout unconditionally.
func (c *Console) Printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, a...)
}

// Success prints a green confirmation line at normal verbosity or above.
func (c *Console) Success(format string, a ...any) {
	if c.Verbosity() < VerbosityNormal {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors {
		_, _ = ColorSuccess.Fprintf(c.out, format+"\n", a...)
	} else {
		_, _ = fmt.Fprintf(c.out, format+"\n", a...)
	}
}

// Error prints a red error line to stderr unconditionally.
func (c *Console) Error(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors {
		_, _ = ColorError.Fprintf(c.err, "Error: "+format+"\n", a...)
	} else {
		_, _ = fmt.Fprintf(c.err, "Error: "+format+"\n", a...)
	}
}

// Warning prints a yellow warning line at normal verbosity or above.
func (c *Console) Warning(format string, a ...any) {
	if c.Verbosity() < VerbosityNormal {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors {
		_, _ = ColorWarning.Fprintf(c.out, "Warning: "+format+"\n", a...)
	} else {
		_, _ = fmt.Fprintf(c.out, "Warning: "+format+"\n", a...)
	}
}

// Detail prints progress visible at detailed verbosity or above.
func (c *Console) Detail(format string, a ...any) {
	if c.Verbosity() < VerbosityDetailed {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format+"\n", a...)
}

// Diagnostic prints transport-level detail visible only at diagnostic
// verbosity.
func (c *Console) Diagnostic(format string, a ...any) {
	if c.Verbosity() < VerbosityDiagnostic {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors {
		_, _ = ColorDebug.Fprintf(c.out, "[diag] "+format+"\n", a...)
	} else {
		_, _ = fmt.Fprintf(c.out, "[diag] "+format+"\n", a...)
	}
}
