// Package descriptor defines the external collaborator contract for artifact
// descriptor metadata: given an artifact, the collaborator yields its
// dependencies, managed dependencies, repositories, relocations, and
// properties. Descriptor parsing itself (the wire format) is out of scope
// here - this package only states what the collector and resolver can rely
// on from whatever parses it.
package descriptor

import (
	"context"

	"github.com/caldera-build/resolver/artifact"
)

// Descriptor is the metadata a collaborator returns for one artifact.
type Descriptor struct {
	// Artifact is the resolved artifact after following the relocation
	// chain (the terminal artifact, not the one originally requested).
	Artifact artifact.Artifact

	Dependencies        []artifact.Dependency
	ManagedDependencies []artifact.Dependency
	Exclusions          []artifact.Exclusion
	Aliases             []string

	// Repositories are additional repositories declared by the descriptor,
	// aggregated with the parent's unless the session disables that.
	Repositories []string

	Properties map[string]string

	// Relocations records every hop the original coordinate took to reach
	// Artifact. Empty if no relocation occurred.
	Relocations []artifact.Artifact

	// SourceRepository is the repository the descriptor itself was read
	// from.
	SourceRepository string
}

// Empty returns a synthetic empty descriptor for artifacts whose
// classifier/extension policy says they carry no descriptor at all
// (e.g. a signature or checksum side-file).
func Empty(a artifact.Artifact, repository string) *Descriptor {
	return &Descriptor{Artifact: a, SourceRepository: repository}
}

// Resolver is the external collaborator that fetches a Descriptor for a
// concrete artifact version. Implementations may hit a remote repository,
// a local cache, or both.
type Resolver interface {
	Resolve(ctx context.Context, a artifact.Artifact, repositories []string) (*Descriptor, error)
}

// VersionAt pairs a concrete version with the repository it was found on.
type VersionAt struct {
	Version    string
	Repository string
}

// VersionRangeResult is the outcome of expanding a version range against a
// set of repositories: every concrete version satisfying the range, and
// which repository produced it.
type VersionRangeResult struct {
	Versions []VersionAt
}

// VersionRangeResolver expands a version range expression into concrete
// versions. The collector iterates the result newest-first to maximize
// skipper hits, after applying the session's VersionFilter.
type VersionRangeResolver interface {
	ResolveRange(ctx context.Context, a artifact.Artifact, versionRange string, repositories []string) (*VersionRangeResult, error)
}

// NoDescriptorPolicy decides whether an artifact (by extension/classifier)
// is known to carry no descriptor, letting callers short-circuit I/O and
// substitute Empty.
type NoDescriptorPolicy func(a artifact.Artifact) bool

// DefaultNoDescriptorPolicy treats checksum and signature side-files as
// descriptor-less.
func DefaultNoDescriptorPolicy(a artifact.Artifact) bool {
	switch a.Extension {
	case "sha1", "sha256", "sha512", "md5", "asc":
		return true
	default:
		return false
	}
}

// VersionFilter decides whether a candidate version should be considered
// during range expansion (e.g. excluding prereleases unless requested).
type VersionFilter func(version string) bool

// AllowAll is the identity VersionFilter.
func AllowAll(string) bool { return true }
