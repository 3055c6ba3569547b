package lexcorpus

import (
	"context"
	"time"
)

// Default scheduling parameters shared by source descriptors.
const (
	DefaultConcurrency          = 10
	DefaultIndexRefreshInterval = 14 * 24 * time.Hour
	DefaultMinContentLength     = 9
)

// Entry identifies one document a source currently lists, together with the
// lightweight metadata the listing exposes.
type Entry struct {
	Source       string
	ID           string
	URL          string
	Citation     string
	Date         string
	Type         string
	Jurisdiction string
	MIME         string

	// SourceVersion is a source-declared version marker (register id,
	// sitemap lastmod, immutable slug). When it matches the stored record's
	// marker the document is classified Unchanged without fetching. It never
	// substitutes for the computed content fingerprint.
	SourceVersion string
}

// Key returns the source-qualified document id used throughout the corpus.
func (e Entry) Key() string {
	return e.Source + "/" + e.ID
}

// Validate returns an error if the entry cannot identify a document.
func (e Entry) Validate() error {
	if e.Source == "" {
		return Errorf(EINVALID, "entry source required")
	}
	if e.ID == "" {
		return Errorf(EINVALID, "entry id required")
	}
	return nil
}

// HTMLProfile carries a source's extraction hints for HTML content: where the
// substantive text lives, which intra-document artifacts to remove before
// rendering, and how CSS classes map to indentation.
type HTMLProfile struct {
	// ContentSelector isolates the substantive content region. When empty,
	// the extraction pipeline falls back to generic main-content detection.
	ContentSelector string

	// StripSelectors are removed before rendering (inline history notes,
	// editorial annotations, navigation chrome).
	StripSelectors []string

	// IndentClasses maps a CSS class to the number of leading spaces applied
	// to every line of a matching block (quotation levels in judgments).
	IndentClasses map[string]int

	// DropLoneBreaks removes <br> elements that are not adjacent to another
	// <br>, for sources that scatter single breaks mid-sentence.
	DropLoneBreaks bool
}

// RawDocument is the unextracted result of fetching one document: the content
// parts in document order plus everything the fetch learned about them. Parts
// holding textual formats are UTF-8.
type RawDocument struct {
	Parts         [][]byte
	MIME          string
	SourceVersion string

	// Date and Citation override the listing's metadata when the document
	// page declares better values.
	Date     string
	Citation string

	// Profile carries the source's HTML extraction hints; nil selects
	// generic main-content extraction.
	Profile *HTMLProfile
}

// RetryPolicy configures the request layer's retry behavior. It is pure
// configuration with no mutable state.
type RetryPolicy struct {
	// MaxRetries bounds retries after the initial attempt: a request makes
	// at most 1+MaxRetries attempts.
	MaxRetries int

	BaseDelay time.Duration
	MaxDelay  time.Duration

	// MaxTotalWait is a hard ceiling on elapsed time across all attempts.
	MaxTotalWait time.Duration

	RetryableStatuses []int

	// RetryableBodyMarkers mark an otherwise-successful response as a
	// disguised overload error: some sources return 200 with an error page
	// when struggling.
	RetryableBodyMarkers []string
}

// DefaultRetryPolicy returns the retry configuration sources start from.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        8,
		BaseDelay:         time.Second,
		MaxDelay:          150 * time.Second,
		MaxTotalWait:      15 * time.Minute,
		RetryableStatuses: []int{429, 500, 502, 503, 504},
	}
}

// Retryable reports whether the HTTP status triggers a retry.
func (p RetryPolicy) Retryable(status int) bool {
	for _, s := range p.RetryableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Descriptor is a source's scheduling configuration: constructed at startup,
// immutable for the run.
type Descriptor struct {
	Name string

	// Concurrency caps simultaneous whole-document fetch units for the
	// source.
	Concurrency int64

	// RequestsPerSecond paces individual requests; zero means unpaced.
	RequestsPerSecond float64

	// IndexRefreshInterval is the minimum time between re-listing the
	// source's documents.
	IndexRefreshInterval time.Duration

	Retry RetryPolicy
}

// Scraper is the contract each legal-document source implements. The engine
// is generic over this interface and never special-cases a source by name.
type Scraper interface {
	// Descriptor returns the source's scheduling configuration.
	Descriptor() Descriptor

	// ListDocuments enumerates the documents the source currently exposes.
	// The listing is finite and restartable; it is re-queried on each
	// refresh cycle.
	ListDocuments(ctx context.Context) ([]Entry, error)

	// FetchDocument materializes one listed document. Every network call
	// needed to do so (frame parts, rendition downloads, redirects) happens
	// inside this one call so the concurrency coordinator sees a single
	// bounded unit of work. Returns ENOTFOUND for missing documents and
	// source-declared unavailability, EPARSE for malformed bodies, and
	// EUNAVAILABLE when retries are exhausted.
	FetchDocument(ctx context.Context, entry Entry) (*RawDocument, error)
}

// AlternateFetcher is an optional Scraper capability for sources publishing
// several renditions of a document. The extraction pipeline uses it to locate
// a PDF or DOCX rendition when the primary one turns out to be legacy DOC.
type AlternateFetcher interface {
	// FetchAlternate returns a rendition whose MIME differs from exclude,
	// or ENOFORMAT when the source has none.
	FetchAlternate(ctx context.Context, entry Entry, exclude string) (*RawDocument, error)
}
