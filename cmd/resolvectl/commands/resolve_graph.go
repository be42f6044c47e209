package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caldera-build/resolver/artifact"
	"github.com/caldera-build/resolver/cmd/resolvectl/output"
	"github.com/caldera-build/resolver/collector"
	"github.com/caldera-build/resolver/datapool"
	"github.com/caldera-build/resolver/depmanager"
	"github.com/caldera-build/resolver/descriptor"
	"github.com/caldera-build/resolver/graph"
	"github.com/caldera-build/resolver/resolvererr"
	"github.com/caldera-build/resolver/session"
	"github.com/caldera-build/resolver/transform"
)

// noopDescriptorResolver returns an empty descriptor for every artifact.
// Descriptor wire-format parsing (reading a POM or equivalent off the
// wire) has no implementation anywhere in this module - descriptor only
// defines the collaborator contract. "resolve graph" therefore renders the
// direct request only, with no transitive edges, until a concrete
// descriptor.Resolver is wired in.
type noopDescriptorResolver struct{}

func (noopDescriptorResolver) Resolve(ctx context.Context, a artifact.Artifact, repositories []string) (*descriptor.Descriptor, error) {
	return descriptor.Empty(a, ""), nil
}

// noopVersionRangeResolver treats every version expression as a literal,
// concrete version rather than expanding it against a repository's
// available versions - the same scope boundary as noopDescriptorResolver.
type noopVersionRangeResolver struct{}

func (noopVersionRangeResolver) ResolveRange(ctx context.Context, a artifact.Artifact, versionRange string, repositories []string) (*descriptor.VersionRangeResult, error) {
	repo := ""
	if len(repositories) > 0 {
		repo = repositories[0]
	}
	return &descriptor.VersionRangeResult{Versions: []descriptor.VersionAt{{Version: versionRange, Repository: repo}}}, nil
}

// convergencePolicyFlag parses the --convergence flag value.
func convergencePolicyFlag(v string) (transform.ConvergencePolicy, error) {
	switch strings.ToLower(v) {
	case "", "none":
		return transform.ConvergenceNone, nil
	case "version":
		return transform.ConvergenceVersion, nil
	case "major", "major-version":
		return transform.ConvergenceMajorVersion, nil
	default:
		return 0, fmt.Errorf("invalid --convergence %q: want none, version, or major", v)
	}
}

// versionStrategyFlag parses the --strategy flag value.
func versionStrategyFlag(v string) (session.VersionStrategy, error) {
	switch strings.ToLower(v) {
	case "", "nearest":
		return session.StrategyNearest, nil
	case "highest":
		return session.StrategyHighest, nil
	default:
		return session.VersionStrategy(""), fmt.Errorf("invalid --strategy %q: want nearest or highest", v)
	}
}

// NewResolveGraphCommand creates the "resolve graph" subcommand: discover
// the dependency graph for one or more coordinates, run it through the
// conflict-resolution transformer pipeline, and render the result as a DOT
// digraph or as an indented tree.
func NewResolveGraphCommand(console *output.Console) *cobra.Command {
	var dot bool
	var convergence string
	var strategy string
	var verboseConflicts bool

	cmd := &cobra.Command{
		Use:   "graph <coordinate>...",
		Short: "Print the resolved dependency graph for one or more coordinates",
		Long: `Discovers the dependency graph rooted at one or more coordinates, resolves
scopes and conflicting versions through the transformer pipeline, and
prints the result either as an indented tree (default) or as a Graphviz
DOT digraph (--dot).

Passing more than one coordinate lets the same groupId:artifactId appear
at different versions as siblings, which is what makes a conflict group
reachable without a wired descriptor resolver.

Without a wired descriptor resolver this module only ever discovers the
given coordinates directly - use --repository to point at repositories;
graph expansion beyond the direct requests requires a concrete
descriptor.Resolver, which this CLI does not supply.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			convergencePolicy, err := convergencePolicyFlag(convergence)
			if err != nil {
				return err
			}
			versionStrategy, err := versionStrategyFlag(strategy)
			if err != nil {
				return err
			}

			direct := make([]artifact.Dependency, 0, len(args))
			for _, arg := range args {
				a, err := ParseCoordinate(arg)
				if err != nil {
					return err
				}
				direct = append(direct, artifact.Dependency{Artifact: a, Scope: artifact.ScopeCompile})
			}

			env, err := buildEnvironment(cmd)
			if err != nil {
				return err
			}
			repoIDs := make([]string, len(env.repositories))
			for i, r := range env.repositories {
				repoIDs[i] = r.ID
			}

			sess := session.New()
			sess.SetVersionSelectorStrategy(versionStrategy)
			if verboseConflicts {
				sess.SetConflictResolverVerbose(session.VerbosityStandard)
			}
			c := collector.New(noopDescriptorResolver{}, noopVersionRangeResolver{}, sess, datapool.New())

			result, err := c.Collect(cmd.Context(), artifact.Artifact{}, direct, []depmanager.ManagedEntry{}, repoIDs)
			if err != nil {
				return err
			}

			pipeline := transform.New(sess, convergencePolicy)
			if err := pipeline.Run(cmd.Context(), result.Root); err != nil {
				var rerr *resolvererr.Error
				if errors.As(err, &rerr) && rerr.Kind == resolvererr.VersionConflict {
					console.Error("conflict %s did not converge: %v", rerr.Coordinates, rerr.ConflictGroup)
				}
				return err
			}

			if dot {
				console.Println(renderDOT(result.Root))
			} else {
				renderTree(console, result.Root, 0)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dot, "dot", false, "Render the graph as a Graphviz DOT digraph")
	cmd.Flags().StringVar(&convergence, "convergence", "none", "Convergence policy: none, version, or major")
	cmd.Flags().StringVar(&strategy, "strategy", "nearest", "Conflict winner strategy: nearest or highest")
	cmd.Flags().BoolVar(&verboseConflicts, "verbose-conflicts", false, "Retain losing conflict nodes in the output, annotated with their winner")
	return cmd
}

// nodeAnnotation renders a node's derived scope and, once a conflict group
// has been resolved, its disposition relative to the winner.
func nodeAnnotation(n *graph.Node) string {
	label := n.Dependency.Artifact.String()
	if n.Dependency.Scope != "" {
		label += fmt.Sprintf(" [%s]", n.Dependency.Scope)
	}
	switch n.Disposition {
	case graph.DispositionRejected:
		label += " (conflict: rejected"
		if w, ok := n.Data[graph.DataWinner].(*graph.Node); ok && w != nil {
			label += ", winner " + w.Dependency.Artifact.Version
		}
		label += ")"
	case graph.DispositionAccepted:
		if _, ok := n.Data[graph.DataConflictID]; ok {
			label += " (conflict: winner)"
		}
	}
	return label
}

func renderTree(console *output.Console, n *graph.Node, depth int) {
	if n.Dependency != nil {
		console.Println(strings.Repeat("  ", depth) + nodeAnnotation(n))
	}
	for _, child := range n.Children {
		renderTree(console, child, depth+1)
	}
}

func renderDOT(root *graph.Node) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	graph.Walk(root, func(n *graph.Node) {
		if n.Dependency == nil {
			return
		}
		label := n.Dependency.Artifact.String()
		b.WriteString(fmt.Sprintf("  %q [label=%q];\n", label, nodeAnnotation(n)))
		if n.Parent != nil && n.Parent.Dependency != nil {
			b.WriteString(fmt.Sprintf("  %q -> %q;\n", n.Parent.Dependency.Artifact.String(), label))
		}
	})
	b.WriteString("}\n")
	return b.String()
}
