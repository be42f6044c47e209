package collector

import (
	"context"
	"testing"

	"github.com/caldera-build/resolver/artifact"
	"github.com/caldera-build/resolver/datapool"
	"github.com/caldera-build/resolver/depmanager"
	"github.com/caldera-build/resolver/descriptor"
	"github.com/caldera-build/resolver/graph"
	"github.com/caldera-build/resolver/session"
)

// fakeDescriptors serves canned descriptors keyed by full coordinate ID.
type fakeDescriptors struct {
	byID map[string]*descriptor.Descriptor
}

func (f *fakeDescriptors) Resolve(ctx context.Context, a artifact.Artifact, repositories []string) (*descriptor.Descriptor, error) {
	d, ok := f.byID[a.ID()]
	if !ok {
		return nil, &notFoundError{a.ID()}
	}
	return d, nil
}

type notFoundError struct{ id string }

func (e *notFoundError) Error() string { return "not found: " + e.id }

// fakeRanges resolves every artifact's declared version verbatim - no
// floating/range expansion, just echoing the one version back.
type fakeRanges struct{}

func (fakeRanges) ResolveRange(ctx context.Context, a artifact.Artifact, versionRange string, repositories []string) (*descriptor.VersionRangeResult, error) {
	return &descriptor.VersionRangeResult{Versions: []descriptor.VersionAt{{Version: versionRange, Repository: "central"}}}, nil
}

func newTestCollector(descs map[string]*descriptor.Descriptor) *Collector {
	return New(&fakeDescriptors{byID: descs}, fakeRanges{}, session.New(), datapool.New())
}

func comDep(id, version string, deps ...artifact.Dependency) (string, *descriptor.Descriptor) {
	a := artifact.Artifact{GroupID: "com.example", ArtifactID: id, Extension: "jar", Version: version}
	return a.ID(), &descriptor.Descriptor{Artifact: a, Dependencies: deps}
}

func dependency(id, version string) artifact.Dependency {
	return artifact.Dependency{
		Artifact: artifact.Artifact{GroupID: "com.example", ArtifactID: id, Extension: "jar", Version: version},
		Scope:    artifact.ScopeCompile,
	}
}

func TestCollect_SimpleChain(t *testing.T) {
	bID, bDesc := comDep("b", "1.0")
	aID, aDesc := comDep("a", "1.0", dependency("b", "1.0"))
	descs := map[string]*descriptor.Descriptor{aID: aDesc, bID: bDesc}

	c := newTestCollector(descs)
	result, err := c.Collect(context.Background(), artifact.Artifact{GroupID: "root", ArtifactID: "root", Version: "1.0"},
		[]artifact.Dependency{dependency("a", "1.0")}, nil, []string{"central"})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(result.Root.Children) != 1 {
		t.Fatalf("expected 1 direct child, got %d", len(result.Root.Children))
	}
	a := result.Root.Children[0]
	if a.Dependency.Artifact.ArtifactID != "a" {
		t.Fatalf("expected child 'a', got %q", a.Dependency.Artifact.ArtifactID)
	}
	if len(a.Children) != 1 || a.Children[0].Dependency.Artifact.ArtifactID != "b" {
		t.Fatalf("expected 'a' to have child 'b', got %+v", a.Children)
	}
}

func TestCollect_CycleDetection(t *testing.T) {
	// a -> b -> a
	aID, _ := comDep("a", "1.0")
	bID, bDesc := comDep("b", "1.0", dependency("a", "1.0"))
	_, aDesc := comDep("a", "1.0", dependency("b", "1.0"))
	descs := map[string]*descriptor.Descriptor{aID: aDesc, bID: bDesc}

	c := newTestCollector(descs)
	result, err := c.Collect(context.Background(), artifact.Artifact{GroupID: "root", ArtifactID: "root", Version: "1.0"},
		[]artifact.Dependency{dependency("a", "1.0")}, nil, []string{"central"})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(result.Diagnostics.Cycles) != 1 {
		t.Fatalf("expected 1 recorded cycle, got %d: %+v", len(result.Diagnostics.Cycles), result.Diagnostics.Cycles)
	}

	a := result.Root.Children[0]
	if len(a.Children) != 1 {
		t.Fatalf("expected 'a' to have 1 child ('b'), got %d", len(a.Children))
	}
	b := a.Children[0]
	if len(b.Children) != 1 {
		t.Fatalf("expected 'b' to have 1 child (cycle back-ref), got %d", len(b.Children))
	}
	cycleNode := b.Children[0]
	if cycleNode.Disposition != graph.DispositionCycle {
		t.Errorf("expected cycle node disposition, got %v", cycleNode.Disposition)
	}
	if cycleNode.BackRef == nil {
		t.Error("expected cycle node to carry a BackRef")
	}
}

func TestCollect_MissingDescriptorRecordsError(t *testing.T) {
	c := newTestCollector(map[string]*descriptor.Descriptor{})
	result, err := c.Collect(context.Background(), artifact.Artifact{GroupID: "root", ArtifactID: "root", Version: "1.0"},
		[]artifact.Dependency{dependency("missing", "1.0")}, nil, []string{"central"})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(result.Diagnostics.Errors) != 1 {
		t.Fatalf("expected 1 diagnostic error, got %d", len(result.Diagnostics.Errors))
	}
	if len(result.Root.Children) != 0 {
		t.Errorf("expected no children for an unresolved dependency, got %d", len(result.Root.Children))
	}
}

func TestCollect_ManagedVersionApplied(t *testing.T) {
	bID, bDesc := comDep("b", "1.0")
	aID, aDesc := comDep("a", "1.0", dependency("b", "1.0"))
	descs := map[string]*descriptor.Descriptor{aID: aDesc, bID: bDesc}

	managedB := dependency("b", "9.9")
	managed := []depmanager.ManagedEntry{{Dependency: managedB, HasVersion: true}}

	// Register the managed version too, since the fake range resolver
	// echoes whatever version string it is asked for.
	managedBID, managedBDesc := comDep("b", "9.9")
	descs[managedBID] = managedBDesc

	c := newTestCollector(descs)
	result, err := c.Collect(context.Background(), artifact.Artifact{GroupID: "root", ArtifactID: "root", Version: "1.0"},
		[]artifact.Dependency{dependency("a", "1.0")}, managed, []string{"central"})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	a := result.Root.Children[0]
	b := a.Children[0]
	if b.Dependency.Artifact.Version != "9.9" {
		t.Errorf("expected managed version 9.9 to apply at depth 2, got %q", b.Dependency.Artifact.Version)
	}
	if !b.ManagedBits.Has(graph.BitVersion) {
		t.Error("expected BitVersion to be recorded on the managed node")
	}
}
