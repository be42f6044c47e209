package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caldera-build/resolver/cmd/resolvectl/cli"
	"github.com/caldera-build/resolver/cmd/resolvectl/commands"
)

func main() {
	resolveCmd := commands.NewResolveCommand(cli.Console)
	resolveCmd.AddCommand(commands.NewResolveGraphCommand(cli.Console))
	cli.AddCommand(resolveCmd)
	cli.AddCommand(commands.NewInstallCommand(cli.Console))
	cli.AddCommand(commands.NewStatusCommand(cli.Console))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		os.Exit(130)
	}()

	if err := cli.Execute(); err != nil {
		if err.Error() != "" {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
