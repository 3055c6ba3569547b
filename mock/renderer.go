package mock

import (
	"context"

	"github.com/lexcorpus/lexcorpus"
)

var _ lexcorpus.Renderer = (*Renderer)(nil)

// Renderer is a mock implementation of lexcorpus.Renderer.
type Renderer struct {
	RenderFn func(ctx context.Context, url string) (string, error)
	CloseFn  func() error
}

func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	return r.RenderFn(ctx, url)
}

func (r *Renderer) Close() error {
	return r.CloseFn()
}
