package lexcorpus

import "context"

// Renderer fetches a page through a scripting-capable browser and returns the
// rendered HTML. Sources whose listing pages are script-driven use it in
// place of a plain GET.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)

	// Close releases browser resources.
	Close() error
}
