// Package lexcorpus builds and maintains a deduplicated plain-text corpus of
// legal documents. It scrapes heterogeneous sources under bounded
// concurrency, extracts and normalizes text from HTML, PDF (with OCR
// fallback), DOCX and RTF renditions, detects per-document version changes
// via content fingerprints, and reconciles the results against a JSON Lines
// corpus store.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency or concern (e.g., http/, sqlite/, extract/,
// scrape/).
package lexcorpus
