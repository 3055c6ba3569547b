// Package semaphore provides bounded-permit gates backed by weighted
// semaphores.
package semaphore

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/lexcorpus/lexcorpus"
)

// Gate bounds concurrent holders of a resource. The coordinator uses one gate
// per source for whole-document fetch units and one global gate for OCR.
type Gate struct {
	sem *semaphore.Weighted
}

var _ lexcorpus.Gate = (*Gate)(nil)

// NewGate creates a gate admitting at most n concurrent holders. n must be
// positive.
func NewGate(n int64) *Gate {
	if n < 1 {
		n = 1
	}
	return &Gate{sem: semaphore.NewWeighted(n)}
}

// Acquire blocks until a permit is available or ctx is canceled.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Release returns a permit. It must be called exactly once per successful
// Acquire.
func (g *Gate) Release() {
	g.sem.Release(1)
}
