package lexcorpus

import (
	"context"
	"time"
)

// IndexCache persists each source's last listing so sources are re-indexed
// only when their refresh interval has elapsed. Implementations must keep the
// refresh timestamp and the entry set consistent: Replace is atomic per
// source.
type IndexCache interface {
	// Refreshed returns when the source's listing was last replaced, or the
	// zero time if it never was.
	Refreshed(ctx context.Context, source string) (time.Time, error)

	// Entries returns the cached listing for the source.
	Entries(ctx context.Context, source string) ([]Entry, error)

	// Replace swaps the source's cached listing and records the refresh
	// time.
	Replace(ctx context.Context, source string, entries []Entry, refreshedAt time.Time) error
}
