package resolve

import (
	"strings"

	"github.com/caldera-build/resolver/artifact"
)

// ArtifactPath returns the Maven-style repository-relative path for a:
// groupId (dots as slashes)/artifactId/version/artifactId-version[-classifier].extension.
// The directory segment uses BaseVersion when set (the snapshot's
// unresolved form); the filename uses the concrete Version.
func ArtifactPath(a artifact.Artifact) string {
	dirVersion := a.Version
	if a.BaseVersion != "" {
		dirVersion = a.BaseVersion
	}

	group := strings.ReplaceAll(a.GroupID, ".", "/")
	name := a.ArtifactID + "-" + a.Version
	if a.Classifier != "" {
		name += "-" + a.Classifier
	}
	ext := a.Extension
	if ext == "" {
		ext = "jar"
	}
	return group + "/" + a.ArtifactID + "/" + dirVersion + "/" + name + "." + ext
}

// ArtifactURL joins a repository base URL with a's repository-relative path.
func ArtifactURL(repositoryBaseURL string, a artifact.Artifact) string {
	base := strings.TrimSuffix(repositoryBaseURL, "/")
	return base + "/" + ArtifactPath(a)
}
