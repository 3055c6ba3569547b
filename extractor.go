package lexcorpus

import "context"

// Extraction holds the extracted content of one fetched document.
type Extraction struct {
	// Text is the normalized plain text.
	Text string

	// Fingerprint identifies the extracted content: the 64-bit xxHash of the
	// pre-normalization text, rendered as 16 hex digits.
	Fingerprint string

	// MIME is the media type of the rendition actually extracted, which
	// differs from the fetched one when a legacy DOC fell back to an
	// alternate rendition.
	MIME string

	// Warnings carry non-fatal oddities worth surfacing in the run summary.
	Warnings []string
}

// Extractor turns a fetched document into normalized text with a content
// fingerprint. Implementations dispatch on the raw document's media type and
// may call back into the scraper for an alternate rendition.
type Extractor interface {
	Extract(ctx context.Context, scraper Scraper, entry Entry, raw *RawDocument) (*Extraction, error)
}
