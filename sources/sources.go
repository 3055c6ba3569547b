// Package sources implements the Scraper contract for each supported
// legal-document database. Each source owns its HTTP client so retry policy
// and pacing stay per-source, lists the documents its database currently
// exposes, and fetches single documents as raw renditions for the extraction
// pipeline.
package sources

import (
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/lexcorpus/lexcorpus"
	lexhttp "github.com/lexcorpus/lexcorpus/http"
)

// Option configures a source.
type Option func(*options)

type options struct {
	httpOptions []lexhttp.Option
	renderer    lexcorpus.Renderer
	concurrency int64
	refresh     time.Duration
	bounds      *retryBounds
	logger      *slog.Logger
}

// retryBounds overlays backoff bounds onto a source's retry policy.
// Non-positive fields keep the source's value.
type retryBounds struct {
	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	maxTotalWait time.Duration
}

// WithHTTPOptions appends options to the source's HTTP client, after the
// source's own defaults so callers can override retry policy and pacing.
func WithHTTPOptions(opts ...lexhttp.Option) Option {
	return func(o *options) {
		o.httpOptions = append(o.httpOptions, opts...)
	}
}

// WithRenderer supplies a headless browser for sources whose listing pages
// are script-driven. Sources that never need one ignore it.
func WithRenderer(r lexcorpus.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithConcurrency overrides the source's fetch-unit concurrency bound.
func WithConcurrency(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRefreshInterval overrides how long the source's cached listing stays
// fresh.
func WithRefreshInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.refresh = d
		}
	}
}

// WithRetryBounds overrides the backoff bounds of the source's retry policy
// while keeping its retryable statuses and body markers. Negative maxRetries
// and non-positive durations keep the source's own values.
func WithRetryBounds(maxRetries int, baseDelay, maxDelay, maxTotalWait time.Duration) Option {
	return func(o *options) {
		o.bounds = &retryBounds{
			maxRetries:   maxRetries,
			baseDelay:    baseDelay,
			maxDelay:     maxDelay,
			maxTotalWait: maxTotalWait,
		}
	}
}

// WithLogger sets the logger for source-level warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// retryPolicy applies any configured bounds overlay to the source's policy.
func (o options) retryPolicy(p lexcorpus.RetryPolicy) lexcorpus.RetryPolicy {
	if o.bounds == nil {
		return p
	}
	if o.bounds.maxRetries >= 0 {
		p.MaxRetries = o.bounds.maxRetries
	}
	if o.bounds.baseDelay > 0 {
		p.BaseDelay = o.bounds.baseDelay
	}
	if o.bounds.maxDelay > 0 {
		p.MaxDelay = o.bounds.maxDelay
	}
	if o.bounds.maxTotalWait > 0 {
		p.MaxTotalWait = o.bounds.maxTotalWait
	}
	return p
}

// descriptor fills a source's scheduling defaults, applying any construction
// overrides.
func (o options) descriptor(d lexcorpus.Descriptor) lexcorpus.Descriptor {
	if o.concurrency > 0 {
		d.Concurrency = o.concurrency
	}
	if d.Concurrency < 1 {
		d.Concurrency = lexcorpus.DefaultConcurrency
	}
	if o.refresh > 0 {
		d.IndexRefreshInterval = o.refresh
	}
	if d.IndexRefreshInterval <= 0 {
		d.IndexRefreshInterval = lexcorpus.DefaultIndexRefreshInterval
	}
	return d
}

var builders = map[string]func(opts ...Option) lexcorpus.Scraper{
	"federalregister": func(opts ...Option) lexcorpus.Scraper { return NewFederalRegister(opts...) },
	"highcourt":       func(opts ...Option) lexcorpus.Scraper { return NewHighCourt(opts...) },
	"statutebook":     func(opts ...Option) lexcorpus.Scraper { return NewStatuteBook(opts...) },
	"federalcourt":    func(opts ...Option) lexcorpus.Scraper { return NewFederalCourt(opts...) },
}

// Names returns the registered source names in stable order.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the named source.
func New(name string, opts ...Option) (lexcorpus.Scraper, error) {
	builder, ok := builders[name]
	if !ok {
		return nil, lexcorpus.Errorf(lexcorpus.ENOTFOUND, "unknown source %q", name)
	}
	return builder(opts...), nil
}

// All constructs every registered source, in Names order.
func All(opts ...Option) []lexcorpus.Scraper {
	scrapers := make([]lexcorpus.Scraper, 0, len(builders))
	for _, name := range Names() {
		scrapers = append(scrapers, builders[name](opts...))
	}
	return scrapers
}

// longDateLayouts cover the date formats the court and legislation databases
// print, like "2 Mar 2001" and "14 February 2024".
var longDateLayouts = []string{"2 Jan 2006", "2 January 2006"}

// parseLongDate converts a human-readable date to ISO form. It returns ""
// when the value does not parse; listing dates are best-effort metadata.
func parseLongDate(value string) string {
	for _, layout := range longDateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// resolveURL resolves ref against base, returning "" for unparseable input.
func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}
