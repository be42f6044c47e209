package collector

import (
	"context"
	"sync"

	"github.com/caldera-build/resolver/descriptor"
)

// descriptorCache gives every concurrent caller asking for the same
// artifact's descriptor a shared one-shot future: the first caller runs
// the computation, later callers for the same key wait on its result
// instead of repeating the fetch.
type descriptorCache struct {
	operations sync.Map // cache key -> *descriptorFuture
}

type descriptorFuture struct {
	once sync.Once
	done chan struct{}
	desc *descriptor.Descriptor
	err  error
}

func newDescriptorCache() *descriptorCache {
	return &descriptorCache{}
}

// getOrStart returns the descriptor for key, running compute exactly once
// across every concurrent caller that races to request the same key.
func (c *descriptorCache) getOrStart(ctx context.Context, key string, compute func(context.Context) (*descriptor.Descriptor, error)) (*descriptor.Descriptor, error) {
	future := &descriptorFuture{done: make(chan struct{})}
	actual, loaded := c.operations.LoadOrStore(key, future)
	future = actual.(*descriptorFuture)

	if !loaded {
		future.once.Do(func() {
			future.desc, future.err = compute(ctx)
			close(future.done)
		})
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-future.done:
		return future.desc, future.err
	}
}

// cacheVersionRangeDescriptor installs an already-resolved descriptor under
// a secondary key, letting a version-range expansion short-circuit a later
// exact-version lookup for the same artifact.
func (c *descriptorCache) cacheVersionRangeDescriptor(key string, desc *descriptor.Descriptor) {
	future := &descriptorFuture{done: make(chan struct{}), desc: desc}
	close(future.done)
	c.operations.LoadOrStore(key, future)
}
