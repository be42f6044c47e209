// Package resolve implements the two-phase artifact file resolver: given a
// set of coordinates, decide what is already on disk, what update policy
// allows a fresh remote check for, fetch what's missing under a named lock,
// and register the outcome with the local repository.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caldera-build/resolver/artifact"
	"github.com/caldera-build/resolver/localrepo"
	"github.com/caldera-build/resolver/observability"
	"github.com/caldera-build/resolver/resolvererr"
	"github.com/caldera-build/resolver/session"
	"github.com/caldera-build/resolver/syncctx"
)

// Repository is one remote source an ArtifactResolver may fetch from.
type Repository struct {
	ID     string
	URL    string
	Policy UpdatePolicy
}

// WorkspaceReader resolves an artifact against in-progress local build
// output (e.g. a sibling module not yet installed) before falling back to
// the local repository and remote fetch.
type WorkspaceReader interface {
	Find(a artifact.Artifact) (file string, ok bool)
}

// Request is one artifact an ArtifactResolver batch should resolve to a
// file on disk.
type Request struct {
	Artifact artifact.Artifact

	// RequestContext is recorded with the local repository on a successful
	// fetch (e.g. "project/compile"), per-artifact provenance.
	RequestContext string

	// Repositories restricts which configured Repository IDs this request
	// may use; empty means every configured repository, in order.
	Repositories []string
}

// Result is the outcome for one Request.
type Result struct {
	Artifact   artifact.Artifact
	File       string
	Repository string
	Err        error
}

type pendingRequest struct {
	req    Request
	result Result
}

// Option configures an ArtifactResolver at construction.
type Option func(*ArtifactResolver)

// WithWorkspaceReader installs a WorkspaceReader consulted before the local
// repository.
func WithWorkspaceReader(w WorkspaceReader) Option {
	return func(r *ArtifactResolver) { r.workspace = w }
}

// WithPostProcessors installs PostProcessors run, in order, after every
// successful download and before the artifact is registered with the local
// repository.
func WithPostProcessors(p ...PostProcessor) Option {
	return func(r *ArtifactResolver) { r.postProcessors = append(r.postProcessors, p...) }
}

// ArtifactResolver resolves artifact coordinates to files on disk, per the
// collaborators documented on Repository, WorkspaceReader, localrepo.Repository
// and Transport.
type ArtifactResolver struct {
	sess           *session.Session
	sync           *syncctx.SyncContext
	local          localrepo.Repository
	transport      Transport
	workspace      WorkspaceReader
	postProcessors []PostProcessor
	repositories   []Repository
}

// New builds an ArtifactResolver. repositories is consulted in order when a
// Request does not restrict its own candidate set.
func New(sess *session.Session, sc *syncctx.SyncContext, local localrepo.Repository, transport Transport, repositories []Repository, opts ...Option) *ArtifactResolver {
	r := &ArtifactResolver{
		sess:         sess,
		sync:         sc,
		local:        local,
		transport:    transport,
		repositories: repositories,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves every request to a file, or an error, doing at most one
// remote fetch per artifact. It acquires a shared named lock for the whole
// batch to check what's already present, then - only for artifacts that
// need a remote fetch - escalates to an exclusive lock on just those before
// downloading, so unrelated concurrent resolutions of already-cached
// artifacts never block on network I/O they don't need.
func (r *ArtifactResolver) Resolve(ctx context.Context, requests []Request) ([]Result, error) {
	pendings := make([]*pendingRequest, len(requests))
	lockable := make([]artifact.Artifact, 0, len(requests))
	for i, req := range requests {
		pendings[i] = &pendingRequest{req: req, result: Result{Artifact: req.Artifact}}
		if req.Artifact.LocalPath != "" {
			pendings[i].result.File = req.Artifact.LocalPath
			continue
		}
		lockable = append(lockable, req.Artifact)
	}

	var tasks []downloadTask
	if len(lockable) > 0 {
		shared, err := r.sync.AcquireShared(ctx, lockable)
		if err != nil {
			return nil, err
		}
		tasks = r.resolveLocally(ctx, pendings)
		shared.Close()
	}

	if len(tasks) > 0 {
		fetchArtifacts := make([]artifact.Artifact, len(tasks))
		for i, t := range tasks {
			fetchArtifacts[i] = t.pending.req.Artifact
		}
		excl, err := r.sync.AcquireExclusive(ctx, fetchArtifacts)
		if err != nil {
			for _, t := range tasks {
				t.pending.result.Err = resolvererr.New(resolvererr.LockAcquisition, t.pending.req.Artifact.String(), err)
			}
		} else {
			r.fetchAll(ctx, tasks)
			excl.Close()
		}
	}

	results := make([]Result, len(pendings))
	var failures []error
	for i, p := range pendings {
		results[i] = p.result
		if p.result.Err != nil {
			failures = append(failures, p.result.Err)
		}
	}
	if len(failures) > 0 {
		return results, errors.Join(failures...)
	}
	return results, nil
}

// resolveLocally fills in whatever pendings can be answered from the
// workspace or local repository, and returns a download task for every one
// that needs a remote fetch.
func (r *ArtifactResolver) resolveLocally(ctx context.Context, pendings []*pendingRequest) []downloadTask {
	var tasks []downloadTask
	for _, p := range pendings {
		if p.result.File != "" || p.result.Err != nil {
			continue
		}
		a := p.req.Artifact

		if r.workspace != nil {
			if file, ok := r.workspace.Find(a); ok {
				p.result.File = file
				p.result.Repository = "workspace"
				continue
			}
		}

		found, err := r.local.Find(ctx, a)
		if err != nil {
			p.result.Err = err
			continue
		}
		if found.Available {
			p.result.File = found.File
			continue
		}

		repo, eligible, cachedErr := r.selectRepository(ctx, p.req)
		if !eligible {
			if cachedErr != nil {
				p.result.Err = resolvererr.New(resolvererr.TransferFailed, a.String(), cachedErr)
			} else {
				p.result.Err = resolvererr.New(resolvererr.NotFound, a.String(), nil)
			}
			continue
		}
		tasks = append(tasks, downloadTask{pending: p, repository: repo})
	}
	return tasks
}

// selectRepository picks the first candidate repository whose update
// policy allows a fresh check right now. If none are eligible, it surfaces
// the most recent cached error across the candidates, if any, so the
// caller can fail fast instead of silently reporting not-found.
func (r *ArtifactResolver) selectRepository(ctx context.Context, req Request) (Repository, bool, error) {
	candidates := r.repositories
	if len(req.Repositories) > 0 {
		candidates = filterRepositories(r.repositories, req.Repositories)
	}

	var cachedErr error
	for _, repo := range candidates {
		last, known, err := r.local.LastChecked(ctx, req.Artifact, repo.ID)
		if err != nil {
			continue
		}
		if repo.Policy == nil {
			repo.Policy = UpdatePolicyDaily{}
		}
		if repo.Policy.ShouldCheck(last, known) {
			return repo, true, nil
		}
		if e, ok := r.local.CachedError(ctx, req.Artifact, repo.ID); ok {
			cachedErr = e
		}
	}
	return Repository{}, false, cachedErr
}

func filterRepositories(all []Repository, ids []string) []Repository {
	allowed := make(map[string]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	var out []Repository
	for _, repo := range all {
		if allowed[repo.ID] {
			out = append(out, repo)
		}
	}
	return out
}

// fetchAll downloads every task, one goroutine per repository so a slow or
// rate-limited repository never blocks fetches from another.
func (r *ArtifactResolver) fetchAll(ctx context.Context, tasks []downloadTask) {
	groups := groupByRepository(tasks)
	var wg sync.WaitGroup
	for _, group := range groups {
		wg.Add(1)
		go func(group []downloadTask) {
			defer wg.Done()
			for _, task := range group {
				r.fetchOne(ctx, task)
			}
		}(group)
	}
	wg.Wait()
}

func (r *ArtifactResolver) fetchOne(ctx context.Context, task downloadTask) {
	a := task.pending.req.Artifact
	repo := task.repository
	now := time.Now()

	ctx, span := observability.StartArtifactDownloadSpan(ctx, a.VersionlessID(), a.Version, repo.URL)
	start := time.Now()
	fail := func(err error) {
		observability.ArtifactDownloadsTotal.WithLabelValues("failure").Inc()
		observability.ArtifactDownloadDuration.WithLabelValues(a.ID()).Observe(time.Since(start).Seconds())
		observability.EndSpanWithError(span, err)
		task.pending.result.Err = err
	}

	dest := r.local.GetPathForRemoteArtifact(a, repo.ID)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		fail(fmt.Errorf("resolve: create download directory: %w", err))
		return
	}

	url := ArtifactURL(repo.URL, a)
	headers, checksums, err := r.transport.Get(ctx, url, dest, 0)
	if err != nil {
		_ = r.local.CacheError(ctx, a, repo.ID, err)
		_ = r.local.MarkChecked(ctx, a, repo.ID, now)
		fail(resolvererr.New(resolvererr.TransferFailed, a.String(), err).WithRepository(repo.ID))
		return
	}

	for _, pp := range r.postProcessors {
		if err := pp.Process(ctx, a, dest, checksums); err != nil {
			_ = r.local.CacheError(ctx, a, repo.ID, err)
			_ = r.local.MarkChecked(ctx, a, repo.ID, now)
			fail(resolvererr.New(resolvererr.ChecksumMismatch, a.String(), err).WithRepository(repo.ID))
			return
		}
	}

	file := dest
	if r.sess.ArtifactResolverSnapshotNormalization() {
		if normalized, err := NormalizeSnapshot(a, dest, lastModifiedFrom(headers)); err == nil {
			file = normalized
		}
	}

	if err := r.local.Add(ctx, a, file, repo.ID, task.pending.req.RequestContext); err != nil {
		fail(fmt.Errorf("resolve: register artifact: %w", err))
		return
	}
	_ = r.local.MarkChecked(ctx, a, repo.ID, now)

	observability.ArtifactDownloadsTotal.WithLabelValues("success").Inc()
	observability.ArtifactDownloadDuration.WithLabelValues(a.ID()).Observe(time.Since(start).Seconds())
	observability.EndSpanWithError(span, nil)

	task.pending.result.File = file
	task.pending.result.Repository = repo.ID
}

func lastModifiedFrom(headers map[string][]string) time.Time {
	for _, key := range []string{"Last-Modified", "last-modified"} {
		if vs, ok := headers[key]; ok && len(vs) > 0 {
			if t, err := http.ParseTime(vs[0]); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
