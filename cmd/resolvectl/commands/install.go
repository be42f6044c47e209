package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caldera-build/resolver/cmd/resolvectl/output"
	"github.com/caldera-build/resolver/install"
	"github.com/caldera-build/resolver/resolve"
)

// NewInstallCommand creates the "install" command: resolve a coordinate and
// copy its file into a target directory tree.
func NewInstallCommand(console *output.Console) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "install <coordinate>",
		Short: "Resolve an artifact and install it into a target directory",
		Long: `Resolves one coordinate the same way "resolve" does, then copies the
resulting file into --to, laid out as group/artifact/version/artifact-version.ext.

Examples:
  resolvectl install com.example:widget:1.0 --to ./vendor`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbosity, _ := cmd.Root().PersistentFlags().GetString("verbosity")
			console.SetVerbosity(output.ParseVerbosity(verbosity))

			a, err := ParseCoordinate(args[0])
			if err != nil {
				return err
			}
			if to == "" {
				return fmt.Errorf("install: --to is required")
			}

			env, err := buildEnvironment(cmd)
			if err != nil {
				return err
			}

			resolver := resolve.New(env.sess, env.sync, env.local, env.transport, env.repositories,
				resolve.WithPostProcessors(resolve.ChecksumValidator{}))

			console.Detail("resolving %s", a)
			results, err := resolver.Resolve(cmd.Context(), []resolve.Request{{Artifact: a}})
			if err != nil {
				return err
			}

			installed, err := install.New().Install(cmd.Context(), results, to)
			if err != nil {
				return err
			}
			for _, i := range installed {
				console.Success("%s -> %s", i.Artifact, i.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target directory to install into")
	return cmd
}
