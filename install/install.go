// Package install is a thin mirror of resolve: given a resolved batch, it
// copies the files the ArtifactResolver already fetched into a target
// directory tree. There is no publish/deploy path - installing is always
// local, and uploading belongs to resolve.Transport.Put.
package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caldera-build/resolver/artifact"
	"github.com/caldera-build/resolver/resolve"
)

// Installed is one artifact copied into the target tree.
type Installed struct {
	Artifact artifact.Artifact
	Path     string
}

// Installer copies resolved artifact files into a target directory laid
// out the same way resolve's repository layout is: group/artifact/version/
// artifact-version[-classifier].extension.
type Installer struct{}

// New returns an Installer.
func New() *Installer { return &Installer{} }

// Install copies every successfully resolved result into targetDir,
// skipping entries that failed resolution. Per-file failures are
// accumulated and joined rather than aborting the rest of the batch,
// matching resolve.ArtifactResolver.Resolve's own failure handling.
func (i *Installer) Install(ctx context.Context, results []resolve.Result, targetDir string) ([]Installed, error) {
	installed := make([]Installed, 0, len(results))
	var failures []error

	for _, res := range results {
		if ctx.Err() != nil {
			failures = append(failures, ctx.Err())
			break
		}
		if res.Err != nil || res.File == "" {
			continue
		}

		dest := filepath.Join(targetDir, filepath.FromSlash(resolve.ArtifactPath(res.Artifact)))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			failures = append(failures, fmt.Errorf("install: create directory for %s: %w", res.Artifact, err))
			continue
		}
		if err := copyFile(res.File, dest); err != nil {
			failures = append(failures, fmt.Errorf("install: copy %s: %w", res.Artifact, err))
			continue
		}
		installed = append(installed, Installed{Artifact: res.Artifact, Path: dest})
	}

	if len(failures) > 0 {
		return installed, errors.Join(failures...)
	}
	return installed, nil
}

// copyFile copies src to dest via a temp file in dest's directory followed
// by a rename, the same atomic write pattern used throughout this module's
// on-disk collaborators.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + fmt.Sprintf(".tmp.%d", time.Now().UnixNano())
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
