package mock

import (
	"context"

	"github.com/lexcorpus/lexcorpus"
)

var _ lexcorpus.Scraper = (*Scraper)(nil)

// Scraper is a mock implementation of lexcorpus.Scraper.
type Scraper struct {
	DescriptorFn    func() lexcorpus.Descriptor
	ListDocumentsFn func(ctx context.Context) ([]lexcorpus.Entry, error)
	FetchDocumentFn func(ctx context.Context, entry lexcorpus.Entry) (*lexcorpus.RawDocument, error)
}

func (s *Scraper) Descriptor() lexcorpus.Descriptor {
	return s.DescriptorFn()
}

func (s *Scraper) ListDocuments(ctx context.Context) ([]lexcorpus.Entry, error) {
	return s.ListDocumentsFn(ctx)
}

func (s *Scraper) FetchDocument(ctx context.Context, entry lexcorpus.Entry) (*lexcorpus.RawDocument, error) {
	return s.FetchDocumentFn(ctx, entry)
}

var (
	_ lexcorpus.Scraper          = (*AlternateScraper)(nil)
	_ lexcorpus.AlternateFetcher = (*AlternateScraper)(nil)
)

// AlternateScraper is a mock scraper that also serves alternate renditions.
type AlternateScraper struct {
	Scraper
	FetchAlternateFn func(ctx context.Context, entry lexcorpus.Entry, exclude string) (*lexcorpus.RawDocument, error)
}

func (s *AlternateScraper) FetchAlternate(ctx context.Context, entry lexcorpus.Entry, exclude string) (*lexcorpus.RawDocument, error) {
	return s.FetchAlternateFn(ctx, entry, exclude)
}
