// Package slog provides logging decorators for the corpus services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexcorpus/lexcorpus"
)

var (
	_ lexcorpus.Scraper          = (*LoggingScraper)(nil)
	_ lexcorpus.AlternateFetcher = (*LoggingAlternateScraper)(nil)
)

// LoggingScraper wraps a Scraper with timing logs on every operation.
type LoggingScraper struct {
	next   lexcorpus.Scraper
	logger *slog.Logger
}

// NewLoggingScraper decorates a scraper. A scraper that can fetch alternate
// renditions keeps that capability through the decorator.
func NewLoggingScraper(next lexcorpus.Scraper, logger *slog.Logger) lexcorpus.Scraper {
	s := &LoggingScraper{next: next, logger: logger}
	if alt, ok := next.(lexcorpus.AlternateFetcher); ok {
		return &LoggingAlternateScraper{LoggingScraper: s, alt: alt}
	}
	return s
}

// Descriptor delegates to the wrapped scraper.
func (s *LoggingScraper) Descriptor() lexcorpus.Descriptor {
	return s.next.Descriptor()
}

// ListDocuments delegates to the wrapped scraper and logs the listing.
func (s *LoggingScraper) ListDocuments(ctx context.Context) (entries []lexcorpus.Entry, err error) {
	defer func(begin time.Time) {
		s.logger.Info("list documents",
			"source", s.next.Descriptor().Name,
			"count", len(entries),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ListDocuments(ctx)
}

// FetchDocument delegates to the wrapped scraper and logs the fetch.
func (s *LoggingScraper) FetchDocument(ctx context.Context, entry lexcorpus.Entry) (raw *lexcorpus.RawDocument, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("fetch document",
			"id", entry.Key(),
			"mime", rawMIME(raw),
			"bytes", rawBytes(raw),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FetchDocument(ctx, entry)
}

// LoggingAlternateScraper is the decorator for scrapers that also implement
// AlternateFetcher.
type LoggingAlternateScraper struct {
	*LoggingScraper
	alt lexcorpus.AlternateFetcher
}

// FetchAlternate delegates to the wrapped scraper and logs the fetch.
func (s *LoggingAlternateScraper) FetchAlternate(ctx context.Context, entry lexcorpus.Entry, exclude string) (raw *lexcorpus.RawDocument, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("fetch alternate rendition",
			"id", entry.Key(),
			"exclude", exclude,
			"mime", rawMIME(raw),
			"bytes", rawBytes(raw),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.alt.FetchAlternate(ctx, entry, exclude)
}

func rawMIME(raw *lexcorpus.RawDocument) string {
	if raw == nil {
		return ""
	}
	return raw.MIME
}

func rawBytes(raw *lexcorpus.RawDocument) int {
	if raw == nil {
		return 0
	}
	n := 0
	for _, part := range raw.Parts {
		n += len(part)
	}
	return n
}
