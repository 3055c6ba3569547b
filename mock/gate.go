package mock

import (
	"context"

	"github.com/lexcorpus/lexcorpus"
)

var _ lexcorpus.Gate = (*Gate)(nil)

// Gate is a mock implementation of lexcorpus.Gate.
type Gate struct {
	AcquireFn func(ctx context.Context) error
	ReleaseFn func()
}

func (g *Gate) Acquire(ctx context.Context) error {
	return g.AcquireFn(ctx)
}

func (g *Gate) Release() {
	g.ReleaseFn()
}
