package resolve

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caldera-build/resolver/artifact"
)

// NormalizeSnapshot makes a snapshot artifact's timestamped file available
// under its base-version name too (e.g. widget-1.0-20240102.030405-7.jar ->
// widget-1.0-SNAPSHOT.jar), the name callers that only know the declared
// version expect to find. It copies only when the destination is missing or
// its size/mtime differ from the source, and preserves lastModified (the
// source's Last-Modified time, when known) on the copy.
func NormalizeSnapshot(a artifact.Artifact, file string, lastModified time.Time) (string, error) {
	if a.BaseVersion == "" || a.BaseVersion == a.Version {
		return file, nil
	}

	dest := snapshotAlias(a, file)
	if dest == file {
		return file, nil
	}

	srcInfo, err := os.Stat(file)
	if err != nil {
		return "", err
	}
	if destInfo, err := os.Stat(dest); err == nil {
		if destInfo.Size() == srcInfo.Size() && destInfo.ModTime().Equal(srcInfo.ModTime()) {
			return dest, nil
		}
	}

	if err := copyFile(file, dest); err != nil {
		return "", fmt.Errorf("resolve: normalize snapshot alias: %w", err)
	}
	if !lastModified.IsZero() {
		_ = os.Chtimes(dest, lastModified, lastModified)
	}
	return dest, nil
}

// snapshotAlias substitutes a's BaseVersion for its Version in file's
// basename, leaving the directory untouched.
func snapshotAlias(a artifact.Artifact, file string) string {
	dir := filepath.Dir(file)
	base := filepath.Base(file)
	alias := strings.Replace(base, a.Version, a.BaseVersion, 1)
	if alias == base {
		return file
	}
	return filepath.Join(dir, alias)
}

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
