package resolve

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/caldera-build/resolver/artifact"
)

// PostProcessor runs after an artifact's file has landed in the local
// repository, e.g. to validate a checksum or unpack an archive. A
// PostProcessor that returns an error fails the whole request; the local
// repository's error cache is populated from that failure.
type PostProcessor interface {
	Process(ctx context.Context, a artifact.Artifact, file string, checksums map[string]string) error
}

// ChecksumValidator verifies file's digest against whichever of the
// transport-advertised checksums it recognizes, preferring the strongest
// algorithm present. It is a no-op when no recognized checksum was
// advertised, since not every repository exposes one.
type ChecksumValidator struct{}

func (ChecksumValidator) Process(ctx context.Context, a artifact.Artifact, file string, checksums map[string]string) error {
	for _, alg := range []string{"sha256", "sha1"} {
		want, ok := checksums[alg]
		if !ok || want == "" {
			continue
		}
		got, err := digest(file, alg)
		if err != nil {
			return fmt.Errorf("resolve: compute %s for %s: %w", alg, a, err)
		}
		if !strings.EqualFold(got, want) {
			return fmt.Errorf("resolve: checksum mismatch for %s: %s advertised %s, computed %s", a, alg, want, got)
		}
		return nil
	}
	return nil
}

func digest(file, alg string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var h hash.Hash
	switch alg {
	case "sha256":
		h = sha256.New()
	case "sha1":
		h = sha1.New()
	default:
		return "", fmt.Errorf("unsupported checksum algorithm %q", alg)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
