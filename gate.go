package lexcorpus

import "context"

// Gate is a bounded-permit pool. Acquire suspends until a permit is free or
// the context is canceled; every successful Acquire must be paired with
// exactly one Release on all exit paths.
type Gate interface {
	Acquire(ctx context.Context) error
	Release()
}
