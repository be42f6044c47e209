// Package transform implements the graph transformer pipeline that turns a
// raw, possibly-conflicting dependency tree produced by the collector into
// a resolved one: scopes are derived along each path, conflicting versions
// are marked and reduced to a single winner, and the winner's effective
// scope and optionality are recomputed across every path that contributed
// to the conflict.
package transform

import (
	"context"

	"github.com/caldera-build/resolver/artifact"
	"github.com/caldera-build/resolver/graph"
	"github.com/caldera-build/resolver/observability"
	"github.com/caldera-build/resolver/session"
)

// Pipeline runs the ordered graph transformer stages over a collected
// tree. It is stateless and safe to reuse across trees.
type Pipeline struct {
	sess        *session.Session
	convergence ConvergencePolicy
}

// New builds a Pipeline. convergence may be ConvergenceNone to let the
// version selector resolve every conflict without failing the run.
func New(sess *session.Session, convergence ConvergencePolicy) *Pipeline {
	return &Pipeline{sess: sess, convergence: convergence}
}

// Run transforms root in place. On a convergence failure the tree is left
// with scopes derived and conflicts marked, but no winners selected.
func (p *Pipeline) Run(ctx context.Context, root *graph.Node) error {
	nodeCount := 0
	graph.Walk(root, func(*graph.Node) { nodeCount++ })
	_, span := observability.StartConflictTransformSpan(ctx, "pipeline", nodeCount)

	deriveScopes(root, artifact.ScopeCompile)

	groups := graph.ConflictGroups(root)
	markConflicts(groups)

	if err := checkConvergence(groups, p.convergence); err != nil {
		observability.EndSpanWithError(span, err)
		return err
	}

	strategy := p.sess.VersionSelectorStrategy()
	verbosity := p.sess.ConflictResolverVerbose()

	for id, nodes := range groups {
		winner := selectWinner(nodes, strategy)
		applyGroupContext(winner, nodes)
		finalize(id, nodes, winner, verbosity)
	}

	refineContext(root)
	observability.EndSpanWithError(span, nil)
	return nil
}

// markConflicts annotates every node with its conflict group id. Groups of
// size one are still marked so Node.Data consistently reports group
// membership, even though they have nothing to resolve.
func markConflicts(groups map[string][]*graph.Node) {
	for id, nodes := range groups {
		for _, n := range nodes {
			n.Data[graph.DataConflictID] = id
		}
	}
}

// applyGroupContext recomputes the winner's effective scope and
// optionality from every node in its conflict group: narrowest scope
// wins, and the winner is optional only if every contributing path
// declared it optional.
func applyGroupContext(winner *graph.Node, group []*graph.Node) {
	scopes := make([]artifact.Scope, len(group))
	allOptional := true
	for i, n := range group {
		scopes[i] = n.Dependency.Scope
		if !n.Dependency.Optional {
			allOptional = false
		}
	}
	winner.Dependency.Scope = narrowestScope(scopes)
	winner.Dependency.Optional = allOptional
}

// finalize applies the verbosity policy to a resolved conflict group: in
// standard mode losers are pruned from the tree entirely, in verbose
// modes they remain with a winner back-reference.
func finalize(conflictID string, group []*graph.Node, winner *graph.Node, verbosity session.ConflictVerbosity) {
	winner.Disposition = graph.DispositionAccepted

	for _, n := range group {
		if n == winner {
			continue
		}
		n.Disposition = graph.DispositionRejected

		if verbosity == session.VerbosityNone {
			removeFromParent(n)
			continue
		}
		n.Data[graph.DataWinner] = winner
	}

	if verbosity == session.VerbosityNone {
		delete(winner.Data, graph.DataConflictID)
	}
}

// removeFromParent detaches n from its parent's Children slice. A node
// with multiple tracked ParentNodes (a shared sub-tree) is only detached
// from its primary Parent; the other tracked parents are left as they are.
func removeFromParent(n *graph.Node) {
	if n.Parent == nil {
		return
	}
	siblings := n.Parent.Children
	for i, c := range siblings {
		if c == n {
			n.Parent.Children = append(siblings[:i], siblings[i+1:]...)
			return
		}
	}
}

// deriveScopes walks the tree top-down, computing each node's effective
// scope from its parent's already-derived scope and its own declared
// scope, and writing the result back onto the node's Dependency. Cycle
// back-references carry no Dependency of their own and are skipped.
func deriveScopes(n *graph.Node, scope artifact.Scope) {
	for _, child := range n.Children {
		if child.BackRef != nil || child.Dependency == nil {
			continue
		}
		derived := deriveScope(scope, child.Dependency.Scope)
		child.Dependency.Scope = derived
		deriveScopes(child, derived)
	}
}

// refineContext stamps every resolved node with the classpath context it
// contributes to, derived from its final effective scope.
func refineContext(root *graph.Node) {
	graph.Walk(root, func(n *graph.Node) {
		if n.Dependency == nil {
			return
		}
		n.Data[graph.DataRequestContext] = "project/" + string(n.Dependency.Scope)
	})
}
