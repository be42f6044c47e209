// Package graph defines the dependency graph vertex and the annotations the
// collector and graph transformers attach to it. A graph has exactly one
// synthetic root; every other node carries a non-nil Dependency, except
// cycle back-reference nodes (see Node.BackRef), whose Dependency is nil.
package graph

import "github.com/caldera-build/resolver/artifact"

// ManagedBit flags which facets of a node's dependency were overridden by
// dependency management rather than declared directly.
type ManagedBit int

const (
	BitVersion ManagedBit = 1 << iota
	BitScope
	BitOptional
	BitExclusions
	BitProperties
)

func (b ManagedBit) Has(flag ManagedBit) bool {
	return b&flag != 0
}

// Disposition tracks the state of a node after traversal and conflict
// resolution.
type Disposition int

const (
	DispositionAcceptable Disposition = iota
	DispositionRejected
	DispositionAccepted
	DispositionPotentiallyDowngraded
	DispositionCycle
)

func (d Disposition) String() string {
	switch d {
	case DispositionAcceptable:
		return "Acceptable"
	case DispositionRejected:
		return "Rejected"
	case DispositionAccepted:
		return "Accepted"
	case DispositionPotentiallyDowngraded:
		return "PotentiallyDowngraded"
	case DispositionCycle:
		return "Cycle"
	default:
		return "Unknown"
	}
}

// Public data annotation keys, documented for consumers reading Node.Data.
const (
	DataConflictID              = "conflict.id"
	DataWinner                  = "winner"
	DataScopeDerivationContext  = "scope.derivation.context"
	DataPremanagedVersion       = "premanaged.version"
	DataPremanagedScope         = "premanaged.scope"
	DataPremanagedOptional      = "premanaged.optional"
	DataPremanagedExclusions    = "premanaged.exclusions"
	DataPremanagedProperties    = "premanaged.properties"
	DataPremanagedVersionHint   = "premanaged.version.source.hint"
	DataPremanagedScopeHint     = "premanaged.scope.source.hint"
	DataPremanagedOptionalHint  = "premanaged.optional.source.hint"
	DataPremanagedExclusionHint = "premanaged.exclusions.source.hint"
	DataPremanagedPropertyHint  = "premanaged.properties.source.hint"
	DataRelocations             = "relocations"
	DataRequestContext          = "request.context"
)

// Premanaged captures the pre-management snapshot of a dependency, recorded
// only when the session's dependencyManager.verbose is set.
type Premanaged struct {
	Version      string
	Scope        artifact.Scope
	Optional     bool
	Exclusions   []artifact.Exclusion
	Properties   map[string]string
	SourceHints  map[string]string // facet name -> human-readable provenance
}

// Node is a mutable dependency graph vertex. The graph exclusively owns its
// nodes; construction is single-writer (the collector builds children,
// then transformers run sequentially over the finished tree).
type Node struct {
	// Key identifies this node's artifact by full coordinate. A cycle
	// back-reference node (see BackRef) carries the repeated artifact's
	// coordinate.
	Key string

	// Dependency is nil for the synthetic root and for cycle
	// back-reference nodes.
	Dependency *artifact.Dependency

	Parent      *Node
	Children    []*Node
	ParentNodes []*Node // tracks multiple logical parents when a sub-graph is shared

	Disposition Disposition
	Depth       int
	ManagedBits ManagedBit
	Premanaged  *Premanaged

	// Data holds transformer annotations (conflict id, winner reference,
	// scope derivation context, premanaged snapshots in verbose mode).
	Data map[string]any

	// Repositories reachable from this node (parent repos aggregated with
	// the descriptor's own, unless ignoreArtifactDescriptorRepositories).
	Repositories []string

	// BackRef, when set, marks this node as a cycle edge: a reference to
	// an ancestor rather than an owning child. Children must be empty on
	// a back-reference node.
	BackRef *Node
}

// NewRoot creates the synthetic root node.
func NewRoot() *Node {
	return &Node{
		Children:    make([]*Node, 0),
		ParentNodes: make([]*Node, 0),
		Disposition: DispositionAcceptable,
		Data:        make(map[string]any),
	}
}

// NewChild creates a child node of parent for the given dependency.
func NewChild(parent *Node, key string, dep artifact.Dependency, repositories []string) *Node {
	return &Node{
		Key:          key,
		Dependency:   &dep,
		Parent:       parent,
		Children:     make([]*Node, 0),
		ParentNodes:  make([]*Node, 0),
		Disposition:  DispositionAcceptable,
		Depth:        parent.Depth + 1,
		Data:         make(map[string]any),
		Repositories: repositories,
	}
}

// VersionlessID returns the conflict-grouping identity for this node's
// artifact, or "" for the root.
func (n *Node) VersionlessID() string {
	if n.Dependency == nil {
		return ""
	}
	return n.Dependency.Artifact.VersionlessID()
}

// PathFromRoot returns the chain of node keys from the root to this node,
// inclusive.
func (n *Node) PathFromRoot() []string {
	if n == nil {
		return nil
	}

	path := make([]string, 0, n.Depth+1)
	for current := n; current != nil; current = current.Parent {
		if current.Key != "" {
			path = append([]string{current.Key}, path...)
		}
	}
	return path
}

// AreAllParentsRejected reports whether every tracked parent of a shared
// node has been rejected, meaning this node is dead weight that can be
// pruned.
func (n *Node) AreAllParentsRejected() bool {
	if len(n.ParentNodes) == 0 {
		return false
	}
	for _, p := range n.ParentNodes {
		if p.Disposition != DispositionRejected {
			return false
		}
	}
	return true
}

// Walk visits every node in the tree in declaration order (pre-order),
// not following BackRef edges (they are not owning children).
func Walk(root *Node, visit func(*Node)) {
	if root == nil {
		return
	}
	visit(root)
	for _, child := range root.Children {
		Walk(child, visit)
	}
}

// ConflictGroups partitions every node that carries a Dependency by
// VersionlessID; the root and cycle back-reference nodes are not grouped.
func ConflictGroups(root *Node) map[string][]*Node {
	groups := make(map[string][]*Node)
	Walk(root, func(n *Node) {
		if n.Dependency == nil {
			return
		}
		id := n.VersionlessID()
		groups[id] = append(groups[id], n)
	})
	return groups
}
