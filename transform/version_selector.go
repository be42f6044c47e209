package transform

import (
	"sort"

	"github.com/caldera-build/resolver/graph"
	"github.com/caldera-build/resolver/session"
	"github.com/caldera-build/resolver/version"
)

// selectWinner picks the winning node of a conflict group per strategy.
// Nodes are assumed to already be in declaration order (graph.Walk visits
// pre-order, left to right), which sort.SliceStable preserves on ties -
// satisfying "ties broken by declaration order" without a separate index.
func selectWinner(nodes []*graph.Node, strategy session.VersionStrategy) *graph.Node {
	if len(nodes) == 1 {
		return nodes[0]
	}

	ranked := make([]*graph.Node, len(nodes))
	copy(ranked, nodes)

	switch strategy {
	case session.StrategyHighest:
		sort.SliceStable(ranked, func(i, j int) bool {
			vi, erri := version.Parse(ranked[i].Dependency.Artifact.Version)
			vj, errj := version.Parse(ranked[j].Dependency.Artifact.Version)
			if erri != nil || errj != nil {
				return false
			}
			return vi.GreaterThan(vj)
		})
	default: // session.StrategyNearest
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Depth < ranked[j].Depth
		})
	}
	return ranked[0]
}
