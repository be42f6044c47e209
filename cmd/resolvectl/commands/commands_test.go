package commands

import (
	"bytes"
	"testing"

	"github.com/caldera-build/resolver/cmd/resolvectl/output"
)

func TestNewResolveCommand(t *testing.T) {
	var out bytes.Buffer
	console := output.NewConsole(&out, &out, output.VerbosityNormal)

	cmd := NewResolveCommand(console)
	if cmd == nil {
		t.Fatal("NewResolveCommand() returned nil")
	}
	if cmd.Use != "resolve <coordinate>" {
		t.Errorf("cmd.Use = %q", cmd.Use)
	}
	if cmd.Short == "" {
		t.Error("cmd.Short is empty")
	}
}

func TestNewResolveGraphCommand_DotFlag(t *testing.T) {
	var out bytes.Buffer
	console := output.NewConsole(&out, &out, output.VerbosityNormal)

	cmd := NewResolveGraphCommand(console)
	if cmd.Use != "graph <coordinate>..." {
		t.Errorf("cmd.Use = %q", cmd.Use)
	}
	if f := cmd.Flags().Lookup("dot"); f == nil {
		t.Error("expected a --dot flag")
	}
	if f := cmd.Flags().Lookup("convergence"); f == nil {
		t.Error("expected a --convergence flag")
	}
	if f := cmd.Flags().Lookup("strategy"); f == nil {
		t.Error("expected a --strategy flag")
	}
}

func TestNewInstallCommand_ToFlag(t *testing.T) {
	var out bytes.Buffer
	console := output.NewConsole(&out, &out, output.VerbosityNormal)

	cmd := NewInstallCommand(console)
	if cmd.Use != "install <coordinate>" {
		t.Errorf("cmd.Use = %q", cmd.Use)
	}
	f := cmd.Flags().Lookup("to")
	if f == nil {
		t.Fatal("expected a --to flag")
	}
	if f.DefValue != "" {
		t.Errorf("--to default = %q, want empty", f.DefValue)
	}
}
