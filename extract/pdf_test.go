package extract_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/lexcorpus/lexcorpus"
	"github.com/lexcorpus/lexcorpus/extract"
	"github.com/lexcorpus/lexcorpus/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scannedPDF assembles a structurally valid single-page PDF whose content
// stream is empty, the shape of a scanned document with no text layer.
func scannedPDF(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	offsets := make([]int, 5)

	buf.WriteString("%PDF-1.4\n")

	offsets[1] = buf.Len()
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = buf.Len()
	buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = buf.Len()
	buf.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << >> >>\nendobj\n")

	offsets[4] = buf.Len()
	buf.WriteString("4 0 obj\n<< /Length 0 >>\nstream\nendstream\nendobj\n")

	xref := buf.Len()
	buf.WriteString("xref\n0 5\n")
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	buf.WriteString("trailer\n<< /Size 5 /Root 1 0 R >>\nstartxref\n")
	fmt.Fprintf(&buf, "%d\n", xref)
	buf.WriteString("%%EOF\n")

	return buf.Bytes()
}

func TestPipeline_Extract_PDF(t *testing.T) {
	t.Parallel()

	t.Run("empty text layer falls back to ocr", func(t *testing.T) {
		t.Parallel()

		recognizer := &mock.Recognizer{
			RecognizeFn: func(ctx context.Context, pdf []byte) (string, error) {
				return "Recognized text of the scanned judgment.", nil
			},
		}

		p := extract.NewPipeline(extract.WithRecognizer(recognizer))
		res, err := p.Extract(context.Background(), nil, testEntry(), &lexcorpus.RawDocument{
			Parts: [][]byte{scannedPDF(t)},
			MIME:  lexcorpus.MIMEPDF,
		})

		require.NoError(t, err)
		assert.Equal(t, "Recognized text of the scanned judgment.", res.Text)
		assert.Equal(t, extract.Fingerprint("Recognized text of the scanned judgment."), res.Fingerprint)
	})

	t.Run("ocr runs under the ocr gate", func(t *testing.T) {
		t.Parallel()

		var acquired, released int
		gate := &mock.Gate{
			AcquireFn: func(ctx context.Context) error {
				acquired++
				return nil
			},
			ReleaseFn: func() {
				released++
			},
		}
		recognizer := &mock.Recognizer{
			RecognizeFn: func(ctx context.Context, pdf []byte) (string, error) {
				require.Equal(t, 1, acquired)
				require.Equal(t, 0, released)
				return "Recognized while holding the permit.", nil
			},
		}

		p := extract.NewPipeline(extract.WithRecognizer(recognizer), extract.WithOCRGate(gate))
		_, err := p.Extract(context.Background(), nil, testEntry(), &lexcorpus.RawDocument{
			Parts: [][]byte{scannedPDF(t)},
			MIME:  lexcorpus.MIMEPDF,
		})

		require.NoError(t, err)
		assert.Equal(t, 1, acquired)
		assert.Equal(t, 1, released)
	})

	t.Run("gate release survives ocr failure", func(t *testing.T) {
		t.Parallel()

		var released int
		gate := &mock.Gate{
			AcquireFn: func(ctx context.Context) error { return nil },
			ReleaseFn: func() { released++ },
		}
		recognizer := &mock.Recognizer{
			RecognizeFn: func(ctx context.Context, pdf []byte) (string, error) {
				return "", lexcorpus.Errorf(lexcorpus.EINTERNAL, "ocr engine crashed")
			},
		}

		p := extract.NewPipeline(extract.WithRecognizer(recognizer), extract.WithOCRGate(gate))
		_, err := p.Extract(context.Background(), nil, testEntry(), &lexcorpus.RawDocument{
			Parts: [][]byte{scannedPDF(t)},
			MIME:  lexcorpus.MIMEPDF,
		})

		require.Error(t, err)
		assert.Equal(t, 1, released)
	})

	t.Run("no ocr capability fails with ENOFORMAT", func(t *testing.T) {
		t.Parallel()

		p := extract.NewPipeline()
		_, err := p.Extract(context.Background(), nil, testEntry(), &lexcorpus.RawDocument{
			Parts: [][]byte{scannedPDF(t)},
			MIME:  lexcorpus.MIMEPDF,
		})

		require.Error(t, err)
		assert.Equal(t, lexcorpus.ENOFORMAT, lexcorpus.ErrorCode(err))
	})

	t.Run("garbage bytes fail with EPARSE", func(t *testing.T) {
		t.Parallel()

		p := extract.NewPipeline()
		_, err := p.Extract(context.Background(), nil, testEntry(), &lexcorpus.RawDocument{
			Parts: [][]byte{[]byte("definitely not a portable document")},
			MIME:  lexcorpus.MIMEPDF,
		})

		require.Error(t, err)
		assert.Equal(t, lexcorpus.EPARSE, lexcorpus.ErrorCode(err))
	})
}
