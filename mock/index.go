package mock

import (
	"context"
	"time"

	"github.com/lexcorpus/lexcorpus"
)

var _ lexcorpus.IndexCache = (*IndexCache)(nil)

// IndexCache is a mock implementation of lexcorpus.IndexCache.
type IndexCache struct {
	RefreshedFn func(ctx context.Context, source string) (time.Time, error)
	EntriesFn   func(ctx context.Context, source string) ([]lexcorpus.Entry, error)
	ReplaceFn   func(ctx context.Context, source string, entries []lexcorpus.Entry, refreshedAt time.Time) error
}

func (c *IndexCache) Refreshed(ctx context.Context, source string) (time.Time, error) {
	return c.RefreshedFn(ctx, source)
}

func (c *IndexCache) Entries(ctx context.Context, source string) ([]lexcorpus.Entry, error) {
	return c.EntriesFn(ctx, source)
}

func (c *IndexCache) Replace(ctx context.Context, source string, entries []lexcorpus.Entry, refreshedAt time.Time) error {
	return c.ReplaceFn(ctx, source, entries, refreshedAt)
}
