// Package syncctx implements named-lock coordination so concurrent
// resolutions of the same artifact don't race each other: many shared
// holders may read/compute concurrently, but an exclusive holder (an
// actual download or local-repository write) excludes everyone else.
package syncctx

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/caldera-build/resolver/artifact"
	"github.com/caldera-build/resolver/observability"
	"github.com/caldera-build/resolver/resolvererr"
	"github.com/caldera-build/resolver/session"
)

// Handle is a batch of acquired locks. Close releases them in reverse
// acquisition order. Close is not idempotent: a second call releases the
// locks again, so callers must not call it more than once.
type Handle struct {
	release func()
}

// Close releases every lock this handle holds.
func (h *Handle) Close() {
	if h == nil || h.release == nil {
		return
	}
	h.release()
}

// SyncContext coordinates named locks across a resolution session.
type SyncContext struct {
	mapper    NameMapper
	registry  *lockRegistry
	shared    time.Duration
	exclusive time.Duration
	retry     int
	retryWait time.Duration
}

// New builds a SyncContext from session configuration.
func New(sess *session.Session, mapper NameMapper) *SyncContext {
	return &SyncContext{
		mapper:    mapper,
		registry:  newLockRegistry(),
		shared:    sess.SyncNamedTime(),
		exclusive: sess.SyncNamedExclusiveTime(),
		retry:     sess.SyncNamedRetry(),
		retryWait: sess.SyncNamedRetryWait(),
	}
}

// AcquireShared acquires shared locks for every artifact, letting other
// shared holders of the same name proceed concurrently.
func (c *SyncContext) AcquireShared(ctx context.Context, artifacts []artifact.Artifact) (*Handle, error) {
	return c.acquire(ctx, false, artifacts)
}

// AcquireExclusive acquires exclusive locks for every artifact, excluding
// both other exclusive holders and any shared holder of the same name.
func (c *SyncContext) AcquireExclusive(ctx context.Context, artifacts []artifact.Artifact) (*Handle, error) {
	return c.acquire(ctx, true, artifacts)
}

func (c *SyncContext) acquire(ctx context.Context, exclusive bool, artifacts []artifact.Artifact) (*Handle, error) {
	names := c.canonicalNames(artifacts)
	timeout := c.shared
	if exclusive {
		timeout = c.exclusive
	}

	ctx, span := observability.StartLockAcquireSpan(ctx, strings.Join(names, ","), exclusive)

	attempts := c.retry
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		held, err := c.acquireAll(ctx, exclusive, names, timeout)
		if err == nil {
			observability.EndSpanWithError(span, nil)
			return &Handle{release: func() { c.releaseAll(held, exclusive) }}, nil
		}
		lastErr = err

		if attempt < attempts-1 {
			timer := time.NewTimer(c.retryWait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				observability.EndSpanWithError(span, ctx.Err())
				return nil, ctx.Err()
			}
		}
	}
	err := resolvererr.New(resolvererr.LockAcquisition, "", lastErr).WithConflictGroup(names)
	observability.EndSpanWithError(span, err)
	return nil, err
}

// acquireAll acquires every named lock in canonical order, releasing
// whatever it already holds (in reverse) if any later lock fails.
func (c *SyncContext) acquireAll(ctx context.Context, exclusive bool, names []string, timeout time.Duration) ([]*namedLock, error) {
	held := make([]*namedLock, 0, len(names))
	for _, name := range names {
		lock := c.registry.get(name)
		if err := lock.acquire(ctx, exclusive, timeout); err != nil {
			c.releaseAll(held, exclusive)
			return nil, err
		}
		held = append(held, lock)
	}
	return held, nil
}

func (c *SyncContext) releaseAll(held []*namedLock, exclusive bool) {
	for i := len(held) - 1; i >= 0; i-- {
		held[i].release(exclusive)
	}
}

// canonicalNames maps every artifact to its lock name, dedupes, and sorts
// so independent callers locking an overlapping batch always acquire in
// the same order and can never deadlock against each other.
func (c *SyncContext) canonicalNames(artifacts []artifact.Artifact) []string {
	seen := make(map[string]bool, len(artifacts))
	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		name := c.mapper(a)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
