package extract

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/lexcorpus/lexcorpus"
)

// extractPDF extracts a PDF part's text layer, falling back to OCR under the
// global OCR gate when the layer holds no real text (scanned documents).
func (p *Pipeline) extractPDF(ctx context.Context, part []byte) (string, error) {
	text, err := pdfTextLayer(part)
	if err != nil {
		return "", err
	}
	if lexcorpus.AlphabeticCount(text) >= p.minContentLength {
		return text, nil
	}

	if p.ocr == nil {
		return "", lexcorpus.Errorf(lexcorpus.ENOFORMAT, "pdf has no text layer and ocr is disabled")
	}
	p.logger.Debug("pdf text layer empty, running ocr", slog.Int("bytes", len(part)))

	if p.gate != nil {
		if err := p.gate.Acquire(ctx); err != nil {
			return "", err
		}
		defer p.gate.Release()
	}
	return p.ocr.Recognize(ctx, part)
}

// pdfTextLayer reads the embedded text layer. The underlying parser panics on
// some malformed files, so the recover converts those into parse errors. An
// unreadable text layer on a structurally valid file means a scanned
// document, reported as empty text.
func pdfTextLayer(part []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = lexcorpus.Errorf(lexcorpus.EPARSE, "reading pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(part), int64(len(part)))
	if err != nil {
		return "", lexcorpus.Errorf(lexcorpus.EPARSE, "reading pdf: %v", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", nil
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", nil
	}
	return buf.String(), nil
}
