// Package extract turns fetched raw documents into normalized corpus text.
//
// The pipeline dispatches on MIME (HTML, PDF with OCR fallback, DOCX, RTF),
// fingerprints the extracted text before normalization, then cleans it:
// mojibake repair, control stripping, blank-line collapsing, and a minimum
// content filter. Legacy binary DOC has no direct extractor; the pipeline
// asks the scraper for an alternate rendition instead.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/lexcorpus/lexcorpus"
)

// ErrLegacyDOC reports content in the legacy binary Word format, which has no
// direct extractor.
var ErrLegacyDOC = errors.New("legacy doc format")

// ole2Magic is the compound-file signature of legacy binary Office formats.
var ole2Magic = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

// isLegacyDOC reports whether the part is a legacy binary Word file
// regardless of its declared MIME. One court source labels DOC downloads as
// RTF.
func isLegacyDOC(part []byte) bool {
	return bytes.HasPrefix(part, ole2Magic)
}

// Fingerprint returns the content fingerprint for extracted text: the 64-bit
// xxHash rendered as 16 hex digits. It is computed over the extracted,
// pre-normalization text so normalization changes never masquerade as
// content changes.
func Fingerprint(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// Ensure Pipeline implements lexcorpus.Extractor at compile time.
var _ lexcorpus.Extractor = (*Pipeline)(nil)

// Pipeline extracts and normalizes document content. It is stateless with
// respect to the corpus and safe for concurrent use.
type Pipeline struct {
	ocr              lexcorpus.Recognizer
	gate             lexcorpus.Gate
	minContentLength int
	logger           *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecognizer enables OCR for PDFs without a text layer.
func WithRecognizer(r lexcorpus.Recognizer) Option {
	return func(p *Pipeline) {
		p.ocr = r
	}
}

// WithOCRGate bounds concurrent OCR invocations. OCR is CPU- and
// memory-bound, so the gate is global across sources.
func WithOCRGate(g lexcorpus.Gate) Option {
	return func(p *Pipeline) {
		p.gate = g
	}
}

// WithMinContentLength overrides the minimum number of alphabetic characters
// a document must retain after cleaning.
func WithMinContentLength(n int) Option {
	return func(p *Pipeline) {
		p.minContentLength = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a Pipeline with the given options.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		minContentLength: lexcorpus.DefaultMinContentLength,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract produces normalized text and a content fingerprint for one fetched
// document. When the raw content is legacy DOC it asks the scraper for an
// alternate rendition; ENOFORMAT means no usable rendition exists, ESHORTTEXT
// means the cleaned text fell below the minimum content length. Both classify
// the document as Skipped upstream.
func (p *Pipeline) Extract(ctx context.Context, scraper lexcorpus.Scraper, entry lexcorpus.Entry, raw *lexcorpus.RawDocument) (*lexcorpus.Extraction, error) {
	text, err := p.extractRaw(ctx, raw)
	var warnings []string
	if errors.Is(err, ErrLegacyDOC) {
		raw, err = p.fetchAlternate(ctx, scraper, entry, raw)
		if err != nil {
			return nil, err
		}
		text, err = p.extractRaw(ctx, raw)
		if errors.Is(err, ErrLegacyDOC) {
			return nil, lexcorpus.Errorf(lexcorpus.ENOFORMAT, "alternate rendition of %s is also legacy doc", entry.Key())
		}
		warnings = append(warnings, "primary rendition is legacy doc; extracted "+raw.MIME)
	}
	if err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(text)
	normalized := Normalize(text)

	if n := lexcorpus.AlphabeticCount(normalized); n < p.minContentLength {
		return nil, lexcorpus.Errorf(lexcorpus.ESHORTTEXT,
			"%s has %d alphabetic characters after cleaning, minimum is %d", entry.Key(), n, p.minContentLength)
	}

	return &lexcorpus.Extraction{
		Text:        normalized,
		Fingerprint: fingerprint,
		MIME:        raw.MIME,
		Warnings:    warnings,
	}, nil
}

// fetchAlternate locates a non-DOC rendition through the scraper's optional
// AlternateFetcher capability.
func (p *Pipeline) fetchAlternate(ctx context.Context, scraper lexcorpus.Scraper, entry lexcorpus.Entry, raw *lexcorpus.RawDocument) (*lexcorpus.RawDocument, error) {
	af, ok := scraper.(lexcorpus.AlternateFetcher)
	if !ok {
		return nil, lexcorpus.Errorf(lexcorpus.ENOFORMAT, "only legacy doc rendition available for %s", entry.Key())
	}

	p.logger.Debug("legacy doc, fetching alternate rendition",
		slog.String("id", entry.Key()),
		slog.String("mime", raw.MIME))

	alt, err := af.FetchAlternate(ctx, entry, raw.MIME)
	if err != nil {
		if lexcorpus.ErrorCode(err) == lexcorpus.ENOFORMAT {
			return nil, lexcorpus.Errorf(lexcorpus.ENOFORMAT, "only legacy doc rendition available for %s", entry.Key())
		}
		return nil, err
	}
	return alt, nil
}

// extractRaw dispatches each content part to its format extractor and joins
// the parts in document order.
func (p *Pipeline) extractRaw(ctx context.Context, raw *lexcorpus.RawDocument) (string, error) {
	if raw == nil || len(raw.Parts) == 0 {
		return "", lexcorpus.Errorf(lexcorpus.EINVALID, "fetch produced no content")
	}

	mime := canonicalMIME(raw.MIME)
	parts := make([]string, 0, len(raw.Parts))
	for _, part := range raw.Parts {
		var (
			text string
			err  error
		)
		switch {
		case strings.Contains(mime, "html"):
			text, err = extractHTML(string(part), raw.Profile)
		case mime == lexcorpus.MIMEPDF:
			text, err = p.extractPDF(ctx, part)
		case mime == lexcorpus.MIMEDocx:
			text, err = extractDOCX(part)
		case mime == lexcorpus.MIMERTF || mime == "text/rtf":
			text, err = extractRTF(part)
		case mime == lexcorpus.MIMEDoc:
			return "", ErrLegacyDOC
		case strings.HasPrefix(mime, "text/"):
			text = string(part)
		default:
			return "", lexcorpus.Errorf(lexcorpus.ENOFORMAT, "no extractor for %q", raw.MIME)
		}
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), nil
}

// canonicalMIME lowercases a media type and strips its parameters.
func canonicalMIME(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
