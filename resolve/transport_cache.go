package resolve

import (
	"context"
	"os"

	"github.com/caldera-build/resolver/cache"
)

// CachingTransport decorates a Transport with a multi-tier (memory + disk)
// byte cache keyed by URL. Repeated resolution runs against the same
// repositories - the common case for a local repository that is mostly
// already populated, or for a CI job re-resolving the same coordinates
// across builds - skip the network for any response younger than the
// cache context's MaxAge.
//
// Only full downloads (resumeOffset 0) are cacheable; a resumed partial
// download always goes to the origin. A cache hit cannot revalidate
// against the origin, so it reports no response headers or checksums -
// ChecksumValidator already no-ops when no recognized checksum key is
// present, so this degrades safely rather than failing validation.
type CachingTransport struct {
	next  Transport
	cache *cache.MultiTierCache
}

// NewCachingTransport wraps next with c. c is typically rooted under the
// local repository so cache contents survive across invocations.
func NewCachingTransport(next Transport, c *cache.MultiTierCache) *CachingTransport {
	return &CachingTransport{next: next, cache: c}
}

func (t *CachingTransport) Peek(ctx context.Context, url string) (bool, error) {
	return t.next.Peek(ctx, url)
}

func (t *CachingTransport) Get(ctx context.Context, url, dataPath string, resumeOffset int64) (map[string][]string, map[string]string, error) {
	cacheCtx := cache.FromContext(ctx)
	if cacheCtx == nil {
		cacheCtx = cache.NewSourceCacheContext()
	}

	if resumeOffset == 0 && !cacheCtx.NoCache {
		if data, ok, err := t.cache.Get(ctx, url, url, cacheCtx.MaxAge); err == nil && ok {
			if writeErr := os.WriteFile(dataPath, data, 0o644); writeErr == nil {
				return nil, nil, nil
			}
		}
	}

	headers, checksums, err := t.next.Get(ctx, url, dataPath, resumeOffset)
	if err != nil {
		return headers, checksums, err
	}

	if resumeOffset == 0 && !cacheCtx.NoCache && !cacheCtx.DirectDownload {
		if f, openErr := os.Open(dataPath); openErr == nil {
			_ = t.cache.Set(ctx, url, url, f, cacheCtx.MaxAge, nil)
			f.Close()
		}
	}
	return headers, checksums, nil
}

func (t *CachingTransport) Put(ctx context.Context, url, path string) error {
	return t.next.Put(ctx, url, path)
}
