package commands

import (
	"github.com/spf13/cobra"

	"github.com/caldera-build/resolver/cmd/resolvectl/output"
	"github.com/caldera-build/resolver/resolve"
)

// NewResolveCommand creates the "resolve" command: resolve a single
// artifact coordinate against the configured repositories.
func NewResolveCommand(console *output.Console) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <coordinate>",
		Short: "Resolve a single artifact coordinate to a local file",
		Long: `Resolves one Maven-style coordinate (groupId:artifactId:version, optionally
with a classifier or extension) against the configured repositories and the
local repository cache, downloading it if necessary.

Examples:
  resolvectl resolve com.example:widget:1.0
  resolvectl resolve -r central=https://repo.example/maven com.example:widget:1.0
  resolvectl resolve com.example:widget:1.0:sources`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbosity, _ := cmd.Root().PersistentFlags().GetString("verbosity")
			console.SetVerbosity(output.ParseVerbosity(verbosity))

			a, err := ParseCoordinate(args[0])
			if err != nil {
				return err
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
				for _, r := range results {
					if r.Err != nil {
						console.Error("%s: %v", r.Artifact, r.Err)
					}
				}
				return err
			}

			for _, r := range results {
				console.Success("%s -> %s (%s)", r.Artifact, r.File, r.Repository)
			}
			return nil
		},
	}
	return cmd
}
