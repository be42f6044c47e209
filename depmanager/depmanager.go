// Package depmanager tracks managed dependency facets (version, scope,
// optional, local path, exclusions) across traversal depth, and decides
// when a managed value overrides what a dependency declares directly.
//
// There is one concrete Manager type parameterized by (deriveUntil,
// applyFrom) rather than a hierarchy of manager variants - per the
// re-architecture guidance, strategy is data, not a subclass.
package depmanager

import "github.com/caldera-build/resolver/artifact"

type facetValue[T any] struct {
	depth int
	value T
}

type exclusionEntry struct {
	depth      int
	exclusions []artifact.Exclusion
}

// Manager holds the depth-tagged facet maps described in the data model:
// (versionless-id -> (depth, value)) for version/scope/optional/localPath,
// and (versionless-id -> [(depth, exclusions), ...]) for exclusions.
type Manager struct {
	depth int

	// deriveUntil: beyond this depth, DeriveChild is a no-op.
	deriveUntil int
	// applyFrom: only at depth >= applyFrom does ManageDependency apply
	// version/scope/optional.
	applyFrom int

	version    map[string]facetValue[string]
	scope      map[string]facetValue[artifact.Scope]
	optional   map[string]facetValue[bool]
	localPath  map[string]facetValue[string]
	exclusions map[string][]exclusionEntry
}

func newManager(depth, deriveUntil, applyFrom int) *Manager {
	return &Manager{
		depth:       depth,
		deriveUntil: deriveUntil,
		applyFrom:   applyFrom,
		version:     make(map[string]facetValue[string]),
		scope:       make(map[string]facetValue[artifact.Scope]),
		optional:    make(map[string]facetValue[bool]),
		localPath:   make(map[string]facetValue[string]),
		exclusions:  make(map[string][]exclusionEntry),
	}
}

// NewClassic matches "Classic Maven": deriveUntil=2, applyFrom=2.
func NewClassic() *Manager { return newManager(0, 2, 2) }

// NewTransitive derives management rules at every depth but still only
// applies them from depth 2 onward.
func NewTransitive() *Manager { return newManager(0, 1<<30, 2) }

// NewAggressive derives and applies management at every depth.
func NewAggressive() *Manager { return newManager(0, 1<<30, 0) }

// ManagedEntry is one declared managed dependency, keyed by its artifact's
// VersionlessID when inserted into the manager.
type ManagedEntry struct {
	Dependency  artifact.Dependency
	HasVersion  bool
	HasScope    bool
	HasOptional bool
	LocalPath   string
	HasLocalPath bool
}

// DeriveChild walks the given managed dependencies and, for each facet not
// already mapped for that versionless id (first-wins), inserts it tagged
// with the current depth. Returns a new Manager at depth+1. Beyond
// deriveUntil, returns the receiver unchanged (no-op).
func (m *Manager) DeriveChild(managed []ManagedEntry) *Manager {
	if m.depth >= m.deriveUntil {
		return m
	}

	child := newManager(m.depth+1, m.deriveUntil, m.applyFrom)
	for k, v := range m.version {
		child.version[k] = v
	}
	for k, v := range m.scope {
		child.scope[k] = v
	}
	for k, v := range m.optional {
		child.optional[k] = v
	}
	for k, v := range m.localPath {
		child.localPath[k] = v
	}
	for k, v := range m.exclusions {
		child.exclusions[k] = append([]exclusionEntry(nil), v...)
	}

	for _, entry := range managed {
		id := entry.Dependency.Artifact.VersionlessID()

		if entry.HasVersion {
			if _, exists := child.version[id]; !exists {
				child.version[id] = facetValue[string]{depth: m.depth, value: entry.Dependency.Artifact.Version}
			}
		}
		if entry.HasScope {
			if _, exists := child.scope[id]; !exists {
				child.scope[id] = facetValue[artifact.Scope]{depth: m.depth, value: entry.Dependency.Scope}
			}
		}
		if entry.HasOptional {
			if _, exists := child.optional[id]; !exists {
				child.optional[id] = facetValue[bool]{depth: m.depth, value: entry.Dependency.Optional}
			}
		}
		if entry.HasLocalPath {
			if _, exists := child.localPath[id]; !exists {
				child.localPath[id] = facetValue[string]{depth: m.depth, value: entry.LocalPath}
			}
		}
		// Exclusions are merged unconditionally - additive information,
		// never first-wins.
		if len(entry.Dependency.Exclusions) > 0 {
			child.exclusions[id] = append(child.exclusions[id], exclusionEntry{
				depth:      m.depth,
				exclusions: entry.Dependency.Exclusions,
			})
		}
	}

	return child
}

// DependencyManagement is the set of facets ManageDependency decided apply
// to a dependency at a given depth.
type DependencyManagement struct {
	Version      string
	HasVersion   bool
	Scope        artifact.Scope
	HasScope     bool
	Optional     bool
	HasOptional  bool
	LocalPath    string
	HasLocalPath bool
	// Exclusions are merged unconditionally regardless of applyFrom -
	// additive information is never suppressed.
	Exclusions []artifact.Exclusion
}

// applies decides whether a facet recorded at recordedDepth overrides a
// dependency encountered at currentDepth: nothing applies before
// currentDepth reaches applyFrom; from there, root-sourced (depth 0) rules
// always apply, and any other facet must have been captured by an
// ancestor at least two levels above the current node.
func (m *Manager) applies(recordedDepth, currentDepth int) bool {
	if currentDepth < m.applyFrom {
		return false
	}
	if recordedDepth == 0 {
		return true
	}
	return currentDepth-recordedDepth >= 2
}

// ManageDependency looks up every facet for dep's versionless id and
// returns which ones apply at currentDepth.
func (m *Manager) ManageDependency(currentDepth int, dep artifact.Dependency) DependencyManagement {
	id := dep.Artifact.VersionlessID()
	var out DependencyManagement

	if fv, ok := m.version[id]; ok && m.applies(fv.depth, currentDepth) {
		out.Version, out.HasVersion = fv.value, true
	}
	if fv, ok := m.scope[id]; ok && m.applies(fv.depth, currentDepth) {
		out.Scope, out.HasScope = fv.value, true
	}
	if fv, ok := m.optional[id]; ok && m.applies(fv.depth, currentDepth) {
		out.Optional, out.HasOptional = fv.value, true
	}
	// System-scope local-path alignment is always applied, independent of
	// applyFrom, so the same artifact resolves to the same local path
	// across the graph.
	if fv, ok := m.localPath[id]; ok {
		out.LocalPath, out.HasLocalPath = fv.value, true
	}
	for _, entry := range m.exclusions[id] {
		out.Exclusions = append(out.Exclusions, entry.exclusions...)
	}

	return out
}

// Depth returns the manager's current traversal depth.
func (m *Manager) Depth() int { return m.depth }
