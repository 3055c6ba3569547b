package mock

import (
	"context"

	"github.com/lexcorpus/lexcorpus"
)

var _ lexcorpus.Recognizer = (*Recognizer)(nil)

// Recognizer is a mock implementation of lexcorpus.Recognizer.
type Recognizer struct {
	RecognizeFn func(ctx context.Context, pdf []byte) (string, error)
}

func (r *Recognizer) Recognize(ctx context.Context, pdf []byte) (string, error) {
	return r.RecognizeFn(ctx, pdf)
}
