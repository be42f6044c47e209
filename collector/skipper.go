package collector

import (
	"sync"

	"github.com/caldera-build/resolver/graph"
	"github.com/caldera-build/resolver/version"
)

// Skipper decides whether a node's sub-tree needs expanding at all, and
// records nodes it has already seen so later encounters of the same
// artifact can be short-circuited.
type Skipper interface {
	SkipResolution(n *graph.Node, parents []*graph.Node) bool
	Cache(n *graph.Node, parents []*graph.Node)
}

type seenEntry struct {
	depth   int
	version string
}

// defaultSkipper keys on (versionless id, derived scope) rather than raw
// identity: a narrower later encounter of the same artifact at a wider
// scope still needs its own sub-tree walked, since scope changes what is
// ultimately included.
type defaultSkipper struct {
	mu   sync.Mutex
	seen map[string]seenEntry
}

// NewDefaultSkipper returns the skipper used when the session has
// collector.bf.skipper enabled (the default).
func NewDefaultSkipper() Skipper {
	return &defaultSkipper{seen: make(map[string]seenEntry)}
}

func (s *defaultSkipper) key(n *graph.Node) string {
	return n.VersionlessID() + "~" + string(n.Dependency.Scope)
}

// SkipResolution reports true when this node's versionless id (at this
// scope) was already resolved at a depth at or above the current path,
// with a version that is not older than the one being considered now.
func (s *defaultSkipper) SkipResolution(n *graph.Node, parents []*graph.Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok := s.seen[s.key(n)]
	if !ok {
		return false
	}
	if prior.depth > len(parents) {
		return false
	}

	current, errCurrent := version.Parse(n.Dependency.Artifact.Version)
	seen, errSeen := version.Parse(prior.version)
	if errCurrent != nil || errSeen != nil {
		return prior.version == n.Dependency.Artifact.Version
	}
	return seen.Compare(current) >= 0
}

// Cache records the node as resolved at the current path depth.
func (s *defaultSkipper) Cache(n *graph.Node, parents []*graph.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[s.key(n)] = seenEntry{depth: len(parents), version: n.Dependency.Artifact.Version}
}

// noopSkipper never skips, matching collector.bf.skipper=false.
type noopSkipper struct{}

func (noopSkipper) SkipResolution(*graph.Node, []*graph.Node) bool { return false }
func (noopSkipper) Cache(*graph.Node, []*graph.Node)               {}
