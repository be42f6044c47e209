// Package commands implements the resolvectl subcommands as thin wrappers
// around the resolve, collector, and install packages.
package commands

import (
	"fmt"
	"strings"

	"github.com/caldera-build/resolver/artifact"
)

// ParseCoordinate parses a Maven-style coordinate string into an Artifact.
// Accepted forms:
//
//	groupId:artifactId:version
//	groupId:artifactId:version:classifier
//	groupId:artifactId:extension:version
//	groupId:artifactId:extension:classifier:version
//
// The 4-field form is disambiguated the same way Maven's own CLI does: if
// the third field looks like a version (starts with a digit), it is read
// as groupId:artifactId:version:classifier; otherwise as
// groupId:artifactId:extension:version.
func ParseCoordinate(s string) (artifact.Artifact, error) {
	parts := strings.Split(s, ":")
	a := artifact.Artifact{Extension: "jar"}

	switch len(parts) {
	case 3:
		a.GroupID, a.ArtifactID, a.Version = parts[0], parts[1], parts[2]
	case 4:
		a.GroupID, a.ArtifactID = parts[0], parts[1]
		if looksLikeVersion(parts[2]) {
			a.Version, a.Classifier = parts[2], parts[3]
		} else {
			a.Extension, a.Version = parts[2], parts[3]
		}
	case 5:
		a.GroupID, a.ArtifactID, a.Extension, a.Classifier, a.Version = parts[0], parts[1], parts[2], parts[3], parts[4]
	default:
		return artifact.Artifact{}, fmt.Errorf("invalid coordinate %q: expected groupId:artifactId:version[:classifier], groupId:artifactId:extension:version or groupId:artifactId:extension:classifier:version", s)
	}

	if a.GroupID == "" || a.ArtifactID == "" || a.Version == "" {
		return artifact.Artifact{}, fmt.Errorf("invalid coordinate %q: groupId, artifactId, and version are required", s)
	}
	return a, nil
}

func looksLikeVersion(s string) bool {
	return s != "" && (s[0] >= '0' && s[0] <= '9')
}
