package fetch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Loader warms a cache key. Every Coordinator is a Loader, so coordinators
// of different value types can be prefetched together.
type Loader interface {
	Preload(ctx context.Context) error
}

// Preload loads the coordinator's value, discarding it. The cache keeps
// the result.
func (c *Coordinator[T]) Preload(ctx context.Context) error {
	_, err := c.Load(ctx)
	return err
}

// PrefetchAll warms loaders concurrently, at most limit at a time
// (limit <= 0 means unbounded). The first error cancels the remaining
// loads and is returned.
func PrefetchAll(ctx context.Context, limit int, loaders ...Loader) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, l := range loaders {
		l := l
		g.Go(func() error {
			return l.Preload(ctx)
		})
	}
	return g.Wait()
}
