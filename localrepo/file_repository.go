package localrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caldera-build/resolver/artifact"
)

// FileRepository is a filesystem-backed Repository laid out as
// <root>/<groupId>/<artifactId>/<version>/<artifactId>-<version>[-<classifier>].<extension>,
// with a JSON sidecar tracking per-remote-repository state. Writes are
// atomic (temp file, then rename), the same two-phase pattern used by
// this module's disk cache.
type FileRepository struct {
	root string
	mu   sync.Mutex // serializes metadata read-modify-write within this process
}

// NewFileRepository creates the repository root if needed and returns a
// FileRepository rooted there.
func NewFileRepository(root string) (*FileRepository, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localrepo: create root: %w", err)
	}
	return &FileRepository{root: root}, nil
}

func (r *FileRepository) layoutDir(a artifact.Artifact) string {
	return filepath.Join(r.root, a.GroupID, a.ArtifactID, a.Version)
}

func (r *FileRepository) filename(a artifact.Artifact) string {
	name := a.ArtifactID + "-" + a.Version
	if a.Classifier != "" {
		name += "-" + a.Classifier
	}
	ext := a.Extension
	if ext == "" {
		ext = "jar"
	}
	return name + "." + ext
}

// GetPathForRemoteArtifact returns the local path a would occupy; the
// repository parameter does not affect layout, only bookkeeping.
func (r *FileRepository) GetPathForRemoteArtifact(a artifact.Artifact, repository string) string {
	return filepath.Join(r.layoutDir(a), r.filename(a))
}

func (r *FileRepository) metadataPath(a artifact.Artifact) string {
	return r.GetPathForRemoteArtifact(a, "") + ".meta.json"
}

// Find reports whether a's file is present on disk.
func (r *FileRepository) Find(ctx context.Context, a artifact.Artifact) (Result, error) {
	path := r.GetPathForRemoteArtifact(a, "")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Result{}, nil
		}
		return Result{}, err
	}
	return Result{File: path, Available: true}, nil
}

// Add copies sourceFile into the repository layout and records the
// origin repository and request context.
func (r *FileRepository) Add(ctx context.Context, a artifact.Artifact, sourceFile, originRepository, requestContext string) error {
	dest := r.GetPathForRemoteArtifact(a, originRepository)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("localrepo: create artifact directory: %w", err)
	}
	if err := atomicCopy(sourceFile, dest); err != nil {
		return fmt.Errorf("localrepo: install artifact: %w", err)
	}

	return r.update(a, func(m *metadata) {
		m.OriginRepository = originRepository
		if requestContext != "" && !containsString(m.RequestContexts, requestContext) {
			m.RequestContexts = append(m.RequestContexts, requestContext)
		}
	})
}

func (r *FileRepository) LastChecked(ctx context.Context, a artifact.Artifact, repository string) (time.Time, bool, error) {
	m, err := r.read(a)
	if err != nil {
		return time.Time{}, false, err
	}
	state, ok := m.Repositories[repository]
	if !ok || state.LastChecked.IsZero() {
		return time.Time{}, false, nil
	}
	return state.LastChecked, true, nil
}

func (r *FileRepository) MarkChecked(ctx context.Context, a artifact.Artifact, repository string, at time.Time) error {
	return r.update(a, func(m *metadata) {
		state := m.Repositories[repository]
		state.LastChecked = at
		m.setRepository(repository, state)
	})
}

func (r *FileRepository) CacheError(ctx context.Context, a artifact.Artifact, repository string, cause error) error {
	return r.update(a, func(m *metadata) {
		state := m.Repositories[repository]
		state.CachedErrorMessage = cause.Error()
		state.CachedErrorAt = time.Now()
		m.setRepository(repository, state)
	})
}

func (r *FileRepository) CachedError(ctx context.Context, a artifact.Artifact, repository string) (error, bool) {
	m, err := r.read(a)
	if err != nil {
		return nil, false
	}
	state, ok := m.Repositories[repository]
	if !ok || state.CachedErrorMessage == "" {
		return nil, false
	}
	return errors.New(state.CachedErrorMessage), true
}

type repoState struct {
	LastChecked        time.Time `json:"lastChecked,omitzero"`
	CachedErrorMessage string    `json:"cachedErrorMessage,omitempty"`
	CachedErrorAt      time.Time `json:"cachedErrorAt,omitzero"`
}

type metadata struct {
	OriginRepository string               `json:"originRepository,omitempty"`
	RequestContexts  []string             `json:"requestContexts,omitempty"`
	Repositories     map[string]repoState `json:"repositories,omitempty"`
}

func (m *metadata) setRepository(repository string, state repoState) {
	if m.Repositories == nil {
		m.Repositories = make(map[string]repoState)
	}
	m.Repositories[repository] = state
}

func (r *FileRepository) read(a artifact.Artifact) (*metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.metadataPath(a))
	if err != nil {
		if os.IsNotExist(err) {
			return &metadata{}, nil
		}
		return nil, err
	}
	var m metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("localrepo: decode metadata: %w", err)
	}
	return &m, nil
}

func (r *FileRepository) update(a artifact.Artifact, mutate func(*metadata)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.metadataPath(a)
	m := &metadata{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, m); err != nil {
			return fmt.Errorf("localrepo: decode metadata: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	mutate(m)

	encoded, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("localrepo: encode metadata: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomicWrite(path, encoded)
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// atomicCopy copies src to dest via a temp file in dest's directory
// followed by a rename, so a reader never observes a partially-written
// file at dest.
func atomicCopy(src, dest string) error {
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

// atomicWrite writes data to path via the same temp-then-rename pattern.
func atomicWrite(path string, data []byte) error {
	tmp := path + fmt.Sprintf(".tmp.%d", time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
