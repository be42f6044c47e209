// Package cli wires the resolvectl root command and its shared Console.
package cli

import (
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/caldera-build/resolver/cmd/resolvectl/output"
	"github.com/caldera-build/resolver/observability"
)

var tracerProvider *sdktrace.TracerProvider

var rootCmd = &cobra.Command{
	Use:   "resolvectl",
	Short: "Artifact dependency resolver CLI",
	Long: `resolvectl resolves Maven-style artifact coordinates against one or
more repositories, fetches the resulting files into a local repository, and
can install them into an arbitrary target directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		trace, _ := cmd.Flags().GetBool("trace")
		if !trace {
			return nil
		}
		tp, err := observability.SetupTracing(cmd.Context(), observability.DefaultTracerConfig())
		if err != nil {
			return err
		}
		tracerProvider = tp
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if tracerProvider == nil {
			return nil
		}
		err := observability.ShutdownTracing(cmd.Context(), tracerProvider)
		tracerProvider = nil
		return err
	},
}

// Console is the shared output sink for every subcommand.
var Console *output.Console

func init() {
	Console = output.DefaultConsole()

	rootCmd.PersistentFlags().StringP("verbosity", "v", "normal", "Display verbosity (quiet, normal, detailed, diagnostic)")
	rootCmd.PersistentFlags().StringP("local-repo", "", "", "Local repository root (default: $HOME/.resolver/repository)")
	rootCmd.PersistentFlags().StringSliceP("repository", "r", nil, "Remote repository, as id=url (repeatable)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Bypass the transport response cache and always hit the repository")
	rootCmd.PersistentFlags().Bool("trace", false, "Emit OpenTelemetry traces to stdout for the duration of the command")

	rootCmd.SetHelpFunc(customHelpFunc)
}

// customHelpFunc keeps the root command's help terse and routes subcommand
// help through Cobra's own templates.
func customHelpFunc(cmd *cobra.Command, args []string) {
	if cmd != cmd.Root() {
		usage := cmd.Long
		if usage == "" {
			usage = cmd.Short
		}
		if usage != "" {
			Console.Println(usage)
			Console.Println("")
		}
		Console.Printf("%s", cmd.UsageString())
		return
	}

	Console.Println("resolvectl - artifact dependency resolver")
	Console.Println("")
	Console.Println("Usage: resolvectl [flags] <command>")
	Console.Println("")
	Console.Println("Commands:")
	for _, sub := range cmd.Root().Commands() {
		if sub.Hidden {
			continue
		}
		Console.Println("  " + padRight(sub.Name(), 10) + " " + sub.Short)
	}
	Console.Println("")
	Console.Println(`Use "resolvectl <command> --help" for more information about a command.`)
}

func padRight(s string, length int) string {
	for len(s) < length {
		s += " "
	}
	return s
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCommand returns the root command.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// AddCommand registers cmd as a top-level command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}
