package syncctx

import (
	"github.com/caldera-build/resolver/artifact"
	"github.com/caldera-build/resolver/session"
)

// NameMapper reduces an artifact to the canonical key its lock is held
// under. Two artifacts mapping to the same name serialize against each
// other even if their full coordinates differ.
type NameMapper func(a artifact.Artifact) string

// StaticNameMapper maps every artifact to the same key: the whole
// resolution session shares one lock.
func StaticNameMapper() NameMapper {
	return func(artifact.Artifact) string { return "static" }
}

// GAVNameMapper keys on group, artifact, and base version, ignoring any
// snapshot timestamp qualifier and the classifier/extension - the default,
// matching how most conflicts in practice are over the same (g, a, v).
func GAVNameMapper() NameMapper {
	return func(a artifact.Artifact) string {
		base := a.BaseVersion
		if base == "" {
			base = a.Version
		}
		return a.GroupID + "~" + a.ArtifactID + "~" + base
	}
}

// DiscriminatingNameMapper extends GAVNameMapper with classifier and
// extension, so e.g. a jar and its sources classifier don't serialize
// against each other.
func DiscriminatingNameMapper() NameMapper {
	gav := GAVNameMapper()
	return func(a artifact.Artifact) string {
		return gav(a) + "~" + a.Classifier + "~" + a.Extension
	}
}

// FileNameMapper keys on the local filesystem path an artifact resolves
// to, guarding concurrent writers to the same file regardless of which
// logical coordinate produced it.
func FileNameMapper(pathFor func(a artifact.Artifact) string) NameMapper {
	return func(a artifact.Artifact) string { return pathFor(a) }
}

// NewNameMapper builds the mapper named by a session's
// syncContext.named.nameMapper setting. pathFor is only consulted for
// NameMapperFile; a nil pathFor falls back to GAVNameMapper.
func NewNameMapper(kind session.NameMapperKind, pathFor func(a artifact.Artifact) string) NameMapper {
	switch kind {
	case session.NameMapperStatic:
		return StaticNameMapper()
	case session.NameMapperDiscriminating:
		return DiscriminatingNameMapper()
	case session.NameMapperFile:
		if pathFor != nil {
			return FileNameMapper(pathFor)
		}
		return GAVNameMapper()
	default:
		return GAVNameMapper()
	}
}
