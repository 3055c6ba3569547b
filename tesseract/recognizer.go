// Package tesseract recognizes text in scanned PDFs by shelling out to the
// poppler pdftoppm and tesseract command line tools.
package tesseract

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lexcorpus/lexcorpus"
)

// Ensure Recognizer implements lexcorpus.Recognizer at compile time.
var _ lexcorpus.Recognizer = (*Recognizer)(nil)

// DefaultDPI is the resolution pages are rasterized at before recognition.
const DefaultDPI = 216

// DefaultLanguage is the tesseract language model used when none is
// configured.
const DefaultLanguage = "eng"

// Recognizer runs OCR over scanned PDFs. Each document is rasterized to one
// grayscale image per page, then each page runs through tesseract in turn,
// so a Recognize call holds at most one child process at a time. Recognizer
// is safe for concurrent use; callers bound concurrency with the OCR gate.
type Recognizer struct {
	languages []string
	dpi       int
	logger    *slog.Logger
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithLanguages sets the tesseract language models, tried together in order.
func WithLanguages(languages ...string) Option {
	return func(r *Recognizer) {
		if len(languages) > 0 {
			r.languages = languages
		}
	}
}

// WithDPI sets the rasterization resolution. Defaults to DefaultDPI.
func WithDPI(dpi int) Option {
	return func(r *Recognizer) {
		if dpi > 0 {
			r.dpi = dpi
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recognizer) {
		r.logger = logger
	}
}

// NewRecognizer creates a Recognizer, verifying that the pdftoppm and
// tesseract binaries are on PATH.
func NewRecognizer(opts ...Option) (*Recognizer, error) {
	r := &Recognizer{
		languages: []string{DefaultLanguage},
		dpi:       DefaultDPI,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, tool := range []string{"pdftoppm", "tesseract"} {
		if _, err := exec.LookPath(tool); err != nil {
			return nil, lexcorpus.Errorf(lexcorpus.EINVALID, "%s is not installed", tool)
		}
	}
	return r, nil
}

// Recognize rasterizes the PDF and returns the recognized text of all pages
// joined by blank lines.
func (r *Recognizer) Recognize(ctx context.Context, pdf []byte) (string, error) {
	begin := time.Now()

	dir, err := os.MkdirTemp("", "lexcorpus-ocr-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return "", err
	}

	pages, err := r.rasterize(ctx, dir, input)
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		text, err := r.recognizePage(ctx, page)
		if err != nil {
			return "", err
		}
		// tesseract terminates each page with a form feed.
		texts = append(texts, strings.TrimRight(text, "\n\f"))
	}

	r.logger.Debug("recognized pdf",
		"pages", len(pages),
		"duration", time.Since(begin),
	)
	return strings.Join(texts, "\n\n"), nil
}

// rasterize renders every page to a grayscale png and returns the page
// images in document order. pdftoppm zero-pads page numbers, so the
// lexicographic sort is the page order.
func (r *Recognizer) rasterize(ctx context.Context, dir, input string) ([]string, error) {
	prefix := filepath.Join(dir, "page")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "pdftoppm", "-r", strconv.Itoa(r.dpi), "-gray", "-png", input, prefix)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "rasterizing pdf: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, lexcorpus.Errorf(lexcorpus.EPARSE, "pdf rasterized to no pages")
	}
	sort.Strings(pages)
	return pages, nil
}

// recognizePage runs tesseract over a single page image.
func (r *Recognizer) recognizePage(ctx context.Context, page string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "tesseract", page, "stdout", "-l", strings.Join(r.languages, "+"))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", lexcorpus.Errorf(lexcorpus.EINTERNAL, "recognizing %s: %v: %s", filepath.Base(page), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
