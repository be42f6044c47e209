// Package artifact defines the coordinate and dependency value types shared
// by every stage of resolution: collection, conflict transformation, and
// file resolution.
package artifact

import "fmt"

// Artifact identifies an addressable binary by Maven-style coordinates.
// Equality is on identity+version; VersionlessID groups artifacts that
// differ only by version for conflict resolution.
type Artifact struct {
	GroupID    string
	ArtifactID string
	Classifier string
	Extension  string

	// Version is the concrete version. BaseVersion is the unresolved form
	// for snapshots (e.g. "1.0-SNAPSHOT" when Version is a timestamped
	// build like "1.0-20240102.030405-7").
	Version     string
	BaseVersion string

	// Properties is a free-form bag carried alongside the coordinate
	// (e.g. descriptor-declared metadata).
	Properties map[string]string

	// LocalPath, when set, marks this artifact as unhosted: resolution
	// treats it as already present at this path rather than fetching it.
	LocalPath string
}

// VersionlessID returns the identity used to group conflicting versions of
// the same artifact: group, artifact, classifier, extension - no version.
func (a Artifact) VersionlessID() string {
	return fmt.Sprintf("%s:%s:%s:%s", a.GroupID, a.ArtifactID, a.Classifier, a.Extension)
}

// ID returns the full coordinate including version.
func (a Artifact) ID() string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", a.GroupID, a.ArtifactID, a.Classifier, a.Extension, a.Version)
}

func (a Artifact) String() string {
	if a.Classifier == "" {
		return fmt.Sprintf("%s:%s:%s:%s", a.GroupID, a.ArtifactID, a.Extension, a.Version)
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s", a.GroupID, a.ArtifactID, a.Extension, a.Classifier, a.Version)
}

// IsSnapshot reports whether this artifact resolves to a timestamped
// snapshot build distinct from its declared base version.
func (a Artifact) IsSnapshot() bool {
	return a.BaseVersion != "" && a.BaseVersion != a.Version
}

// WithVersion returns a copy of the artifact with a new concrete version.
func (a Artifact) WithVersion(version string) Artifact {
	a.Version = version
	return a
}

// Scope is a usage label controlling classpath membership and transitivity.
type Scope string

const (
	ScopeCompile  Scope = "compile"
	ScopeProvided Scope = "provided"
	ScopeRuntime  Scope = "runtime"
	ScopeTest     Scope = "test"
	ScopeSystem   Scope = "system"
)

// scopeRank orders scopes from narrowest to widest for scope selection
// (narrowest wins when multiple paths disagree). System is excluded: it
// is never selected by rank, only preserved when already present.
var scopeRank = map[Scope]int{
	ScopeCompile:  0,
	ScopeRuntime:  1,
	ScopeProvided: 2,
	ScopeTest:     3,
}

// Narrower reports whether scope a is narrower than (wins over) scope b.
func (s Scope) Narrower(other Scope) bool {
	if s == ScopeSystem || other == ScopeSystem {
		return s == ScopeSystem
	}
	ra, aok := scopeRank[s]
	rb, bok := scopeRank[other]
	if !aok || !bok {
		return false
	}
	return ra < rb
}

// Exclusion is a wildcard-capable pattern excluding matching artifacts from
// a dependency's transitive closure. "*" matches any value for that field.
type Exclusion struct {
	GroupID    string
	ArtifactID string
	Classifier string
	Extension  string
}

// Matches reports whether the exclusion pattern matches the given artifact.
func (e Exclusion) Matches(a Artifact) bool {
	return matchField(e.GroupID, a.GroupID) &&
		matchField(e.ArtifactID, a.ArtifactID) &&
		matchField(e.Classifier, a.Classifier) &&
		matchField(e.Extension, a.Extension)
}

func matchField(pattern, value string) bool {
	return pattern == "*" || pattern == "" || pattern == value
}

// Dependency is an Artifact in the context of a consumer: a scope, an
// optionality flag, and a set of exclusions applied to its transitive
// dependencies. Immutable - every With* method returns a new value.
type Dependency struct {
	Artifact   Artifact
	Scope      Scope
	Optional   bool
	Exclusions []Exclusion
}

// WithScope returns a copy of the dependency with a new scope.
func (d Dependency) WithScope(s Scope) Dependency {
	d.Scope = s
	return d
}

// WithOptional returns a copy of the dependency with a new optional flag.
func (d Dependency) WithOptional(opt bool) Dependency {
	d.Optional = opt
	return d
}

// WithExclusions returns a copy of the dependency with exclusions merged in
// (additive - existing exclusions are preserved).
func (d Dependency) WithExclusions(exclusions ...Exclusion) Dependency {
	merged := make([]Exclusion, 0, len(d.Exclusions)+len(exclusions))
	merged = append(merged, d.Exclusions...)
	merged = append(merged, exclusions...)
	d.Exclusions = merged
	return d
}

// WithArtifact returns a copy of the dependency pointing at a different
// artifact (used for relocation).
func (d Dependency) WithArtifact(a Artifact) Dependency {
	d.Artifact = a
	return d
}

// Excludes reports whether any exclusion in this dependency matches a.
func (d Dependency) Excludes(a Artifact) bool {
	for _, ex := range d.Exclusions {
		if ex.Matches(a) {
			return true
		}
	}
	return false
}

func (d Dependency) String() string {
	if d.Optional {
		return fmt.Sprintf("%s (%s, optional)", d.Artifact, d.Scope)
	}
	return fmt.Sprintf("%s (%s)", d.Artifact, d.Scope)
}
