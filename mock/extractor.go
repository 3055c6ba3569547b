package mock

import (
	"context"

	"github.com/lexcorpus/lexcorpus"
)

var _ lexcorpus.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of lexcorpus.Extractor.
type Extractor struct {
	ExtractFn func(ctx context.Context, scraper lexcorpus.Scraper, entry lexcorpus.Entry, raw *lexcorpus.RawDocument) (*lexcorpus.Extraction, error)
}

func (e *Extractor) Extract(ctx context.Context, scraper lexcorpus.Scraper, entry lexcorpus.Entry, raw *lexcorpus.RawDocument) (*lexcorpus.Extraction, error) {
	return e.ExtractFn(ctx, scraper, entry, raw)
}
