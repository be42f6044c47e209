package transform

import (
	"github.com/caldera-build/resolver/graph"
	"github.com/caldera-build/resolver/resolvererr"
	"github.com/caldera-build/resolver/version"
)

// ConvergencePolicy controls whether a multi-version conflict group fails
// the pipeline outright instead of being resolved by the version selector.
type ConvergencePolicy int

const (
	// ConvergenceNone lets the version selector resolve every conflict.
	ConvergenceNone ConvergencePolicy = iota
	// ConvergenceVersion requires every path to agree on an exact version.
	ConvergenceVersion
	// ConvergenceMajorVersion only requires agreement on the major version,
	// tolerating minor/patch drift across paths.
	ConvergenceMajorVersion
)

func distinctVersions(nodes []*graph.Node) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range nodes {
		v := n.Dependency.Artifact.Version
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func distinctMajors(nodes []*graph.Node) map[int]bool {
	majors := make(map[int]bool)
	for _, n := range nodes {
		if v, err := version.Parse(n.Dependency.Artifact.Version); err == nil {
			majors[v.Major] = true
		}
	}
	return majors
}

// checkConvergence returns a resolvererr.VersionConflict error for the
// first conflict group that violates the policy. Groups are checked in no
// particular order; the pipeline stops at the first violation.
func checkConvergence(groups map[string][]*graph.Node, policy ConvergencePolicy) error {
	if policy == ConvergenceNone {
		return nil
	}

	for id, nodes := range groups {
		versions := distinctVersions(nodes)
		if len(versions) <= 1 {
			continue
		}
		if policy == ConvergenceVersion {
			return resolvererr.New(resolvererr.VersionConflict, id, nil).WithConflictGroup(versions)
		}
		if policy == ConvergenceMajorVersion && len(distinctMajors(nodes)) > 1 {
			return resolvererr.New(resolvererr.VersionConflict, id, nil).WithConflictGroup(versions)
		}
	}
	return nil
}
