// Package collector implements breadth-first dependency graph discovery:
// parallel descriptor fetching, cycle detection, relocation handling,
// dependency-management derivation, and skip-aware sub-tree reuse.
package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/caldera-build/resolver/artifact"
	"github.com/caldera-build/resolver/datapool"
	"github.com/caldera-build/resolver/depmanager"
	"github.com/caldera-build/resolver/descriptor"
	"github.com/caldera-build/resolver/graph"
	"github.com/caldera-build/resolver/observability"
	"github.com/caldera-build/resolver/resolvererr"
	"github.com/caldera-build/resolver/session"
	"github.com/caldera-build/resolver/version"
)

// Selector decides whether a dependency should be included in the graph
// at all (scope/optional inclusion policy), given the depth it was
// encountered at.
type Selector func(dep artifact.Dependency, depth int) bool

// DefaultSelector excludes optional dependencies beyond the direct
// dependency level - the common transitive-exclusion-of-optional rule.
func DefaultSelector(dep artifact.Dependency, depth int) bool {
	if dep.Optional && depth > 1 {
		return false
	}
	return true
}

// Traverser decides whether a node's own dependencies should be walked,
// given its resolved descriptor.
type Traverser func(dep artifact.Dependency, desc *descriptor.Descriptor) bool

// DefaultTraverser never walks into test or provided scoped dependencies'
// own transitive closure, matching the common scope-transitivity rule.
func DefaultTraverser(dep artifact.Dependency, desc *descriptor.Descriptor) bool {
	switch dep.Scope {
	case artifact.ScopeTest, artifact.ScopeProvided:
		return false
	default:
		return len(desc.Dependencies) > 0
	}
}

// DependencyError captures a per-dependency failure. Collection continues
// past these; they are reported alongside the (partial) graph.
type DependencyError struct {
	Coordinates string
	Err         error
}

// CycleRecord documents one detected cycle: the path from the root down
// to (and including) the repeated artifact.
type CycleRecord struct {
	Path     []string
	Repeated string
}

// Diagnostics accumulates everything Collect observed besides the graph
// itself.
type Diagnostics struct {
	mu          sync.Mutex
	Errors      []DependencyError
	Cycles      []CycleRecord
	Interrupted bool
}

func (d *Diagnostics) addError(coordinates string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Errors = append(d.Errors, DependencyError{Coordinates: coordinates, Err: err})
}

func (d *Diagnostics) addCycle(c CycleRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Cycles = append(d.Cycles, c)
}

// Result is what Collect returns: the discovered (pre-transform) graph,
// plus diagnostics for whatever went wrong along the way.
type Result struct {
	Root        *graph.Node
	Diagnostics *Diagnostics
}

// Collector performs BFS dependency discovery against external descriptor
// and version-range resolver collaborators.
type Collector struct {
	descriptors   descriptor.Resolver
	ranges        descriptor.VersionRangeResolver
	noDescriptor  descriptor.NoDescriptorPolicy
	versionFilter descriptor.VersionFilter
	sess          *session.Session
	pool          *datapool.Pool
	selector      Selector
	traverser     Traverser

	cache *descriptorCache
}

// New builds a Collector. descriptors and ranges are the external
// collaborators (§6); pool is shared with the rest of a single resolution
// so interning survives across Collect calls in the same operation.
func New(descriptors descriptor.Resolver, ranges descriptor.VersionRangeResolver, sess *session.Session, pool *datapool.Pool) *Collector {
	return &Collector{
		descriptors:   descriptors,
		ranges:        ranges,
		noDescriptor:  descriptor.DefaultNoDescriptorPolicy,
		versionFilter: descriptor.AllowAll,
		sess:          sess,
		pool:          pool,
		selector:      DefaultSelector,
		traverser:     DefaultTraverser,
		cache:         newDescriptorCache(),
	}
}

// WithSelector overrides the dependency-inclusion policy.
func (c *Collector) WithSelector(s Selector) *Collector { c.selector = s; return c }

// WithTraverser overrides the sub-tree-walk policy.
func (c *Collector) WithTraverser(t Traverser) *Collector { c.traverser = t; return c }

// WithNoDescriptorPolicy overrides which artifacts are treated as
// descriptor-less.
func (c *Collector) WithNoDescriptorPolicy(p descriptor.NoDescriptorPolicy) *Collector {
	c.noDescriptor = p
	return c
}

// WithVersionFilter overrides which candidate versions are considered
// during range expansion.
func (c *Collector) WithVersionFilter(f descriptor.VersionFilter) *Collector {
	c.versionFilter = f
	return c
}

// processingContext carries everything needed to resolve one dependency
// into a graph node: the dependency itself, its parent chain, the
// dependency-management state inherited from ancestors, and the
// repositories reachable from here.
type processingContext struct {
	dependency   artifact.Dependency
	parentNode   *graph.Node
	parentChain  []*graph.Node // ancestors from root to parentNode inclusive
	manager      *depmanager.Manager
	repositories []string
}

func (c *Collector) skipper() Skipper {
	if c.sess.CollectorSkipperEnabled() {
		return NewDefaultSkipper()
	}
	return noopSkipper{}
}

// Collect discovers the transitive dependency graph reachable from direct,
// with managed providing the root's declared dependency-management rules.
func (c *Collector) Collect(ctx context.Context, root artifact.Artifact, direct []artifact.Dependency, managed []depmanager.ManagedEntry, repositories []string) (*Result, error) {
	ctx, span := observability.StartCollectSpan(ctx, root.ID(), len(direct))

	rootNode := graph.NewRoot()
	rootNode.Key = root.ID()
	diag := &Diagnostics{}
	skip := c.skipper()

	baseManager := depmanager.NewClassic().DeriveChild(managed)

	var interrupted atomic.Bool
	var wg sync.WaitGroup
	sem := make(chan struct{}, c.sess.CollectorThreads())

	var enqueue func(pctx processingContext)
	enqueue = func(pctx processingContext) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				interrupted.Store(true)
				return
			}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				interrupted.Store(true)
				return
			}
			c.process(ctx, pctx, diag, skip, enqueue)
		}()
	}

	for _, dep := range direct {
		if !c.selector(dep, 1) {
			continue
		}
		enqueue(processingContext{
			dependency:   dep,
			parentNode:   rootNode,
			parentChain:  []*graph.Node{rootNode},
			manager:      baseManager,
			repositories: repositories,
		})
	}

	wg.Wait()

	if interrupted.Load() {
		diag.Interrupted = true
		err := resolvererr.New(resolvererr.CollectionInterrupted, root.ID(), nil)
		observability.EndSpanWithError(span, err)
		return &Result{Root: rootNode, Diagnostics: diag}, err
	}

	observability.EndSpanWithError(span, nil)
	return &Result{Root: rootNode, Diagnostics: diag}, nil
}

// process resolves one dependency: range expansion, descriptor fetch,
// cycle detection, relocation, node construction, and recursion.
func (c *Collector) process(ctx context.Context, pctx processingContext, diag *Diagnostics, skip Skipper, enqueue func(processingContext)) {
	coordinates := pctx.dependency.Artifact.String()
	depth := pctx.parentNode.Depth + 1

	ctx, span := observability.StartDescriptorResolveSpan(ctx, coordinates, string(pctx.dependency.Scope))
	defer span.End()

	// Dependency management is applied to the declared dependency before
	// any descriptor I/O happens, so a managed version is what actually
	// gets fetched - not the declared one.
	mgmt := pctx.manager.ManageDependency(depth, pctx.dependency)
	declared, managedBits := applyManagement(pctx.dependency, &mgmt)

	candidates, err := c.expandRange(ctx, declared.Artifact, pctx.repositories)
	if err != nil {
		diag.addError(coordinates, err)
		return
	}
	if len(candidates) == 0 {
		diag.addError(coordinates, resolvererr.New(resolvererr.NotFound, coordinates, nil))
		return
	}

	var desc *descriptor.Descriptor
	var resolvedArtifact artifact.Artifact
	var lastErr error

	for _, candidate := range candidates {
		a := declared.Artifact.WithVersion(candidate.Version)

		if c.noDescriptor(a) {
			desc = descriptor.Empty(a, candidate.Repository)
			resolvedArtifact = a
			lastErr = nil
			break
		}

		key := a.ID()
		d, fetchErr := c.cache.getOrStart(ctx, key, func(ctx context.Context) (*descriptor.Descriptor, error) {
			return c.descriptors.Resolve(ctx, a, pctx.repositories)
		})
		if fetchErr != nil {
			lastErr = fetchErr
			continue
		}
		desc = d
		resolvedArtifact = d.Artifact
		lastErr = nil
		break
	}

	if desc == nil {
		diag.addError(coordinates, resolvererr.New(resolvererr.NotFound, coordinates, lastErr))
		return
	}

	dep := declared.WithArtifact(resolvedArtifact)

	// Cycle check: search the parent chain, newest (closest) first, for a
	// node matching this artifact's identity ignoring version.
	for i := len(pctx.parentChain) - 1; i >= 0; i-- {
		ancestor := pctx.parentChain[i]
		if ancestor.Dependency == nil {
			continue
		}
		if ancestor.Dependency.Artifact.VersionlessID() == dep.Artifact.VersionlessID() {
			backRef := &graph.Node{
				Key:         dep.Artifact.ID(),
				Parent:      pctx.parentNode,
				Disposition: graph.DispositionCycle,
				Depth:       pctx.parentNode.Depth + 1,
				BackRef:     ancestor,
				Data:        make(map[string]any),
			}
			pctx.parentNode.Children = append(pctx.parentNode.Children, backRef)

			pathKeys := make([]string, 0, len(pctx.parentChain))
			for _, n := range pctx.parentChain {
				if n.Key != "" {
					pathKeys = append(pathKeys, n.Key)
				}
			}
			diag.addCycle(CycleRecord{Path: pathKeys, Repeated: dep.Artifact.ID()})
			return
		}
	}

	if !c.selector(dep, depth) {
		return
	}

	repositories := mergeRepositories(pctx.repositories, desc.Repositories)

	c.pool.Intern(dep.Artifact.ID(), dep)

	child := graph.NewChild(pctx.parentNode, dep.Artifact.ID(), dep, repositories)
	child.ManagedBits = managedBits

	if len(desc.Relocations) > 0 {
		child.Data[graph.DataRelocations] = desc.Relocations
	}

	pctx.parentNode.Children = append(pctx.parentNode.Children, child)

	if skip.SkipResolution(child, pctx.parentChain) {
		skip.Cache(child, pctx.parentChain)
		return
	}
	skip.Cache(child, pctx.parentChain)

	if !c.traverser(dep, desc) {
		return
	}

	childManagedEntries := make([]depmanager.ManagedEntry, 0, len(desc.ManagedDependencies))
	for _, md := range desc.ManagedDependencies {
		childManagedEntries = append(childManagedEntries, depmanager.ManagedEntry{
			Dependency: md,
			HasVersion: md.Artifact.Version != "",
			HasScope:   md.Scope != "",
		})
	}
	childManager := pctx.manager.DeriveChild(childManagedEntries)

	// A cache hit means this exact (artifact, repos, management state)
	// combination already had its children enumerated elsewhere; the
	// first resolution's enqueued work covers this sub-tree too.
	cacheKey := fmt.Sprintf("%s|%v|%d", child.Key, repositories, childManager.Depth())
	if _, ok := c.pool.GetChildren(cacheKey); ok {
		return
	}

	childKeys := make([]string, 0, len(desc.Dependencies))
	nextChain := append(append([]*graph.Node(nil), pctx.parentChain...), child)
	for _, childDep := range desc.Dependencies {
		if dep.Excludes(childDep.Artifact) {
			continue
		}
		childKeys = append(childKeys, childDep.Artifact.VersionlessID())
		enqueue(processingContext{
			dependency:   childDep,
			parentNode:   child,
			parentChain:  nextChain,
			manager:      childManager,
			repositories: repositories,
		})
	}
	c.pool.SetChildren(cacheKey, childKeys)
}

// applyManagement folds a DependencyManagement decision into the declared
// dependency, returning the effective dependency and which facets were
// overridden.
func applyManagement(dep artifact.Dependency, mgmt *depmanager.DependencyManagement) (artifact.Dependency, graph.ManagedBit) {
	var bits graph.ManagedBit
	if mgmt.HasVersion {
		dep.Artifact = dep.Artifact.WithVersion(mgmt.Version)
		bits |= graph.BitVersion
	}
	if mgmt.HasScope {
		dep.Scope = mgmt.Scope
		bits |= graph.BitScope
	}
	if mgmt.HasOptional {
		dep.Optional = mgmt.Optional
		bits |= graph.BitOptional
	}
	if len(mgmt.Exclusions) > 0 {
		dep = dep.WithExclusions(mgmt.Exclusions...)
		bits |= graph.BitExclusions
	}
	if mgmt.HasLocalPath {
		dep.Artifact.LocalPath = mgmt.LocalPath
	}
	return dep, bits
}

// expandRange resolves a.Version (possibly a range expression) to concrete
// candidates, filtered and ordered newest-first.
func (c *Collector) expandRange(ctx context.Context, a artifact.Artifact, repositories []string) ([]descriptor.VersionAt, error) {
	result, err := c.ranges.ResolveRange(ctx, a, a.Version, repositories)
	if err != nil {
		return nil, err
	}

	filtered := make([]descriptor.VersionAt, 0, len(result.Versions))
	for _, v := range result.Versions {
		if c.versionFilter(v.Version) {
			filtered = append(filtered, v)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		vi, erri := version.Parse(filtered[i].Version)
		vj, errj := version.Parse(filtered[j].Version)
		if erri != nil || errj != nil {
			return filtered[i].Version > filtered[j].Version
		}
		return vi.Compare(vj) > 0
	})

	return filtered, nil
}

func mergeRepositories(parent, descriptorRepos []string) []string {
	seen := make(map[string]bool, len(parent)+len(descriptorRepos))
	merged := make([]string, 0, len(parent)+len(descriptorRepos))
	for _, r := range parent {
		if !seen[r] {
			seen[r] = true
			merged = append(merged, r)
		}
	}
	for _, r := range descriptorRepos {
		if !seen[r] {
			seen[r] = true
			merged = append(merged, r)
		}
	}
	return merged
}
