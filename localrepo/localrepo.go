// Package localrepo defines the local repository collaborator contract:
// where a resolved artifact lives on disk, whether it is already present,
// and the per-remote-repository bookkeeping (last-checked timestamps,
// cached errors) the update policy consults before issuing a new fetch.
package localrepo

import (
	"context"
	"time"

	"github.com/caldera-build/resolver/artifact"
)

// Result reports what the local repository knows about an artifact.
type Result struct {
	File      string
	Available bool
}

// Repository is the external collaborator the resolve pipeline consults
// for "is this already here" and "remember I looked" bookkeeping. The
// core never touches the on-disk layout directly.
type Repository interface {
	// Find reports whether a is already installed locally.
	Find(ctx context.Context, a artifact.Artifact) (Result, error)

	// Add registers sourceFile as the local copy of a, originating from
	// originRepository, and associates requestContext with it (e.g.
	// "project/compile") if non-empty.
	Add(ctx context.Context, a artifact.Artifact, sourceFile, originRepository, requestContext string) error

	// GetPathForRemoteArtifact returns the path a would occupy once
	// downloaded from repository, without implying it exists yet.
	GetPathForRemoteArtifact(a artifact.Artifact, repository string) string

	// LastChecked reports when repository was last consulted for a, if
	// ever.
	LastChecked(ctx context.Context, a artifact.Artifact, repository string) (time.Time, bool, error)

	// MarkChecked records that repository was just consulted for a,
	// regardless of outcome - the update policy's clock.
	MarkChecked(ctx context.Context, a artifact.Artifact, repository string, at time.Time) error

	// CacheError records cause as the outcome of the last attempt against
	// repository, so a subsequent attempt within the update policy's
	// window can fail fast instead of retrying transport.
	CacheError(ctx context.Context, a artifact.Artifact, repository string, cause error) error

	// CachedError returns the last cached error for (a, repository), if
	// any is still recorded.
	CachedError(ctx context.Context, a artifact.Artifact, repository string) (error, bool)
}
